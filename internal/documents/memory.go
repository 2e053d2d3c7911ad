package documents

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in memory, grouped by case.
type MemoryStore struct {
	mu     sync.RWMutex
	byCase map[string][]*Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCase: make(map[string][]*Document)}
}

// Insert appends a copy of the document to its case.
func (s *MemoryStore) Insert(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := *doc
	s.byCase[doc.CaseID] = append(s.byCase[doc.CaseID], &d)
	return nil
}

// List returns the case's documents in upload order, filtered by category
// when one is given.
func (s *MemoryStore) List(ctx context.Context, caseID string, category Category) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, d := range s.byCase[caseID] {
		if category != "" && d.Category != category {
			continue
		}
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}
