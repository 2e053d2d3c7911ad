package disputes

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memoryCase holds one case and its log. Each case has its own lock so
// mutations on different cases never contend; the sequence check under the
// lock gives losers of an append race a ConcurrentModificationError instead
// of silently re-applying.
type memoryCase struct {
	mu     sync.RWMutex
	c      Case
	events []*TimelineEvent
}

func (mc *memoryCase) head() *Head {
	last := mc.events[len(mc.events)-1]
	return &Head{
		Status:      mc.c.Status,
		Seq:         last.Seq,
		LastEventAt: last.CreatedAt,
		LastHash:    last.Hash,
	}
}

// MemoryStore is the in-memory Store used by tests and development mode. The
// outer lock guards only the case index; per-case business state lives behind
// each case's own lock.
type MemoryStore struct {
	mu         sync.RWMutex
	cases      map[string]*memoryCase
	byCustomer map[string][]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:      make(map[string]*memoryCase),
		byCustomer: make(map[string][]string),
	}
}

func (s *MemoryStore) lookup(caseID string) (*memoryCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mc, ok := s.cases[caseID]
	if !ok {
		return nil, &NotFoundError{CaseID: caseID}
	}
	return mc, nil
}

// CreateCase inserts the case with its first event.
func (s *MemoryStore) CreateCase(ctx context.Context, c *Case, created *TimelineEvent) error {
	if created == nil || created.Seq != 1 {
		return fmt.Errorf("create case %s: first event must have seq 1", c.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[c.ID]; ok {
		return fmt.Errorf("case %s already exists", c.ID)
	}

	ev := *created
	s.cases[c.ID] = &memoryCase{c: *c, events: []*TimelineEvent{&ev}}
	s.byCustomer[c.CustomerID] = append(s.byCustomer[c.CustomerID], c.ID)
	return nil
}

// GetCase returns a copy of the current case snapshot.
func (s *MemoryStore) GetCase(ctx context.Context, caseID string) (*Case, error) {
	mc, err := s.lookup(caseID)
	if err != nil {
		return nil, err
	}

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	c := mc.c
	return &c, nil
}

// ListCases returns matching case snapshots, newest first.
func (s *MemoryStore) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.cases))
	if filter.CustomerID != "" {
		ids = append(ids, s.byCustomer[filter.CustomerID]...)
	} else {
		for id := range s.cases {
			ids = append(ids, id)
		}
	}
	candidates := make([]*memoryCase, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, s.cases[id])
	}
	s.mu.RUnlock()

	var out []*Case
	for _, mc := range candidates {
		mc.mu.RLock()
		c := mc.c
		mc.mu.RUnlock()

		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if !filter.CreatedAfter.IsZero() && c.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		if !filter.CreatedUntil.IsZero() && c.CreatedAt.After(filter.CreatedUntil) {
			continue
		}
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Head returns the case's write cursor.
func (s *MemoryStore) Head(ctx context.Context, caseID string) (*Head, error) {
	mc, err := s.lookup(caseID)
	if err != nil {
		return nil, err
	}

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.head(), nil
}

// AppendEvents commits the batch if the case's last sequence number still
// equals expectedSeq.
func (s *MemoryStore) AppendEvents(ctx context.Context, caseID string, expectedSeq uint64, newStatus Status, events []*TimelineEvent) error {
	mc, err := s.lookup(caseID)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	last := mc.events[len(mc.events)-1]
	if last.Seq != expectedSeq {
		return &ConcurrentModificationError{CaseID: caseID, ExpectedSeq: expectedSeq}
	}

	for i, e := range events {
		if e.Seq != expectedSeq+uint64(i)+1 {
			return fmt.Errorf("append to case %s: non-contiguous seq %d", caseID, e.Seq)
		}
	}

	for _, e := range events {
		ev := *e
		mc.events = append(mc.events, &ev)
	}
	mc.c.Status = newStatus
	return nil
}

// Events returns a copy of the case's timeline in sequence order.
func (s *MemoryStore) Events(ctx context.Context, caseID string) ([]*TimelineEvent, error) {
	mc, err := s.lookup(caseID)
	if err != nil {
		return nil, err
	}

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make([]*TimelineEvent, 0, len(mc.events))
	for _, e := range mc.events {
		ev := *e
		out = append(out, &ev)
	}
	return out, nil
}
