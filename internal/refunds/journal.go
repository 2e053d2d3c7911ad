// Package refunds records the refund side effect of approved chargebacks.
package refunds

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one refund posted for an approved case.
type Entry struct {
	ID           string          `json:"id"`
	CaseID       string          `json:"case_id"`
	CustomerID   string          `json:"customer_id"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Journal is an append-only record of refunds.
type Journal interface {
	Record(ctx context.Context, entry *Entry) error
	ListByCustomer(ctx context.Context, customerID string) ([]*Entry, error)
}

// MemoryJournal keeps refund entries in memory. Used in development and tests.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Record appends the entry, assigning an ID if the caller left it empty.
func (j *MemoryJournal) Record(ctx context.Context, entry *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := *entry
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	entry.ID = e.ID
	j.entries = append(j.entries, &e)
	return nil
}

// ListByCustomer returns the customer's refunds in insertion order.
func (j *MemoryJournal) ListByCustomer(ctx context.Context, customerID string) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []*Entry
	for _, e := range j.entries {
		if e.CustomerID == customerID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}
