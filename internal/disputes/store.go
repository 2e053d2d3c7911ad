package disputes

import "context"

// Store persists cases and their append-only event logs. The canonical durable
// representation is the ordered event log per case; the case row carries a
// denormalized status that every implementation must update in the same commit
// as the events it belongs to.
type Store interface {
	// CreateCase inserts a new case together with its first event. The two
	// writes are atomic: a stored case always has a non-empty timeline.
	CreateCase(ctx context.Context, c *Case, created *TimelineEvent) error

	// GetCase returns the current case snapshot, or *NotFoundError.
	GetCase(ctx context.Context, caseID string) (*Case, error)

	// ListCases returns cases matching the filter, newest first. Pure read.
	ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error)

	// Head returns the case's write cursor, or *NotFoundError.
	Head(ctx context.Context, caseID string) (*Head, error)

	// AppendEvents atomically appends events and moves the case to newStatus.
	// The append only commits if the case's last sequence number still equals
	// expectedSeq; otherwise it fails with *ConcurrentModificationError and
	// writes nothing.
	AppendEvents(ctx context.Context, caseID string, expectedSeq uint64, newStatus Status, events []*TimelineEvent) error

	// Events returns the case's timeline ordered by sequence number ascending,
	// or *NotFoundError for an unknown case.
	Events(ctx context.Context, caseID string) ([]*TimelineEvent, error)
}
