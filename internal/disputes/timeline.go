package disputes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// genesisHash anchors the first event of every case.
var genesisHash = strings.Repeat("0", 64)

// clampUnit is the minimum gap enforced between an event and a caller-supplied
// timestamp that would otherwise run backwards.
const clampUnit = time.Millisecond

// EventSpec describes an event to be appended. At is optional; when zero the
// log assigns the current time. Sequence numbers and hashes are never supplied
// by callers.
type EventSpec struct {
	Kind        EventKind
	Title       string
	Description string
	Party       Party
	At          time.Time
}

// Log is the append-only timeline of every case. It assigns sequence numbers,
// clamps out-of-order timestamps and chains each event to the previous one by
// hash before handing the batch to the store, which commits it atomically with
// the status change.
type Log struct {
	store Store
	now   func() time.Time
}

// NewLog creates a timeline log over the given store.
func NewLog(store Store) *Log {
	return &Log{store: store, now: time.Now}
}

// Head returns the case's current status and write cursor.
func (l *Log) Head(ctx context.Context, caseID string) (*Head, error) {
	return l.store.Head(ctx, caseID)
}

// LatestStatus returns the authoritative current status of a case. This is the
// single read the state machine consults before validating a transition, so a
// cached field can never drift from the log.
func (l *Log) LatestStatus(ctx context.Context, caseID string) (Status, error) {
	head, err := l.store.Head(ctx, caseID)
	if err != nil {
		return "", err
	}
	return head.Status, nil
}

// Query returns the case's events ordered by sequence number ascending.
func (l *Log) Query(ctx context.Context, caseID string) ([]*TimelineEvent, error) {
	return l.store.Events(ctx, caseID)
}

// Append builds the events described by specs on top of head and commits them
// together with newStatus. It fails with *ConcurrentModificationError if the
// case moved past head in the meantime.
func (l *Log) Append(ctx context.Context, caseID string, head *Head, newStatus Status, specs []EventSpec) ([]*TimelineEvent, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("append to case %s: no events", caseID)
	}

	events := buildEvents(caseID, head.Seq, head.LastEventAt, head.LastHash, specs, l.now)
	if err := l.store.AppendEvents(ctx, caseID, head.Seq, newStatus, events); err != nil {
		return nil, err
	}
	return events, nil
}

// buildEvents materializes specs into hash-chained events following the given
// cursor. Timestamps earlier than the preceding event are clamped to one unit
// past it so the timeline stays non-decreasing.
func buildEvents(caseID string, lastSeq uint64, lastAt time.Time, lastHash string, specs []EventSpec, now func() time.Time) []*TimelineEvent {
	if lastHash == "" {
		lastHash = genesisHash
	}

	events := make([]*TimelineEvent, 0, len(specs))
	for i, spec := range specs {
		at := spec.At
		if at.IsZero() {
			at = now()
		}
		if !lastAt.IsZero() && at.Before(lastAt) {
			at = lastAt.Add(clampUnit)
		}

		e := &TimelineEvent{
			ID:          uuid.NewString(),
			CaseID:      caseID,
			Seq:         lastSeq + uint64(i) + 1,
			Kind:        spec.Kind,
			Title:       spec.Title,
			Description: spec.Description,
			Party:       spec.Party,
			CreatedAt:   at,
			PrevHash:    lastHash,
		}
		e.Hash = eventHash(e)

		events = append(events, e)
		lastAt = at
		lastHash = e.Hash
	}
	return events
}

// eventHash computes the chain hash of an event from its recorded fields, so
// verification is deterministic.
func eventHash(e *TimelineEvent) string {
	input := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%s",
		e.CaseID,
		e.Seq,
		e.Kind,
		e.Party,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.Title,
		e.Description,
		e.PrevHash,
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// VerifyChain checks that events form an unbroken, correctly hashed chain with
// contiguous sequence numbers starting at 1.
func VerifyChain(events []*TimelineEvent) error {
	prevHash := genesisHash
	for i, e := range events {
		if e.Seq != uint64(i)+1 {
			return fmt.Errorf("sequence gap at event %s: expected %d, got %d", e.ID, i+1, e.Seq)
		}
		if e.PrevHash != prevHash {
			return fmt.Errorf("hash chain broken at event %s: expected prev %s, got %s", e.ID, prevHash, e.PrevHash)
		}
		if got := eventHash(e); got != e.Hash {
			return fmt.Errorf("hash mismatch at event %s: expected %s, got %s", e.ID, got, e.Hash)
		}
		prevHash = e.Hash
	}
	return nil
}

// ReplayStatus derives the current status by replaying the timeline from the
// start. The timeline of a stored case is never empty.
func ReplayStatus(events []*TimelineEvent) (Status, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("empty timeline")
	}
	if events[0].Kind != EventCreated {
		return "", fmt.Errorf("timeline does not start with a created event: %s", events[0].Kind)
	}

	var status Status
	for _, e := range events {
		if next, ok := statusAfter(e.Kind); ok {
			status = next
		}
	}
	return status, nil
}

// statusAfter maps the event kinds that change status to the status they
// produce. Informational kinds report ok=false.
func statusAfter(kind EventKind) (Status, bool) {
	switch kind {
	case EventCreated:
		return StatusPendingAtOperator, true
	case EventForwardedToBank, EventReviewResumed:
		return StatusPendingAtBank, true
	case EventInfoRequested:
		return StatusPendingInfo, true
	case EventApproved:
		return StatusApproved, true
	case EventRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}
