// Package audit provides a tamper-evident append-only log: each entry is
// hashed together with its predecessor's hash, so any edit or removal breaks
// the chain.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// LogEntry is a single hash-chained audit record.
type LogEntry struct {
	Seq          uint64 `json:"seq"`
	Timestamp    string `json:"timestamp"`
	Payload      string `json:"payload"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
}

// ChainLogger appends payloads to an in-process hash chain.
type ChainLogger struct {
	mu       sync.Mutex
	seq      uint64
	lastHash string
	now      func() time.Time
}

// NewChainLogger creates a logger anchored at the zero hash.
func NewChainLogger() *ChainLogger {
	return &ChainLogger{
		lastHash: strings.Repeat("0", 64),
		now:      time.Now,
	}
}

// Append records the payload and returns the completed entry.
func (c *ChainLogger) Append(payload string) *LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	entry := &LogEntry{
		Seq:          c.seq,
		Timestamp:    c.now().UTC().Format(time.RFC3339Nano),
		Payload:      payload,
		PreviousHash: c.lastHash,
	}
	entry.Hash = entryHash(entry)

	c.lastHash = entry.Hash
	return entry
}

func entryHash(e *LogEntry) string {
	input := fmt.Sprintf("%d|%s|%s|%s", e.Seq, e.Timestamp, e.Payload, e.PreviousHash)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// VerifyChain reports whether entries form an unbroken, correctly hashed
// chain.
func VerifyChain(entries []*LogEntry) bool {
	for i, e := range entries {
		if i > 0 && e.PreviousHash != entries[i-1].Hash {
			return false
		}
		if entryHash(e) != e.Hash {
			return false
		}
	}
	return true
}
