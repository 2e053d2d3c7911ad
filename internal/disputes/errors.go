package disputes

import "fmt"

// ValidationError reports invalid case-creation input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports an unknown case ID.
type NotFoundError struct {
	CaseID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("case not found: %s", e.CaseID)
}

// InvalidTransitionError reports an action that is not legal from the case's
// current status, or an action attempted by the wrong party.
type InvalidTransitionError struct {
	CaseID string
	Status Status
	Action Action
	Actor  Party
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %s by %s is not allowed for case %s in status %s", e.Action, e.Actor, e.CaseID, e.Status)
}

// TerminalStateError reports an action against a case that is already
// approved or rejected.
type TerminalStateError struct {
	CaseID string
	Status Status
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("case %s is already %s and accepts no further transitions", e.CaseID, e.Status)
}

// ConcurrentModificationError reports a lost append race: another writer
// committed to the case between this writer's read and its append.
type ConcurrentModificationError struct {
	CaseID      string
	ExpectedSeq uint64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("case %s was modified concurrently (expected seq %d)", e.CaseID, e.ExpectedSeq)
}

// InvalidStateError reports a document upload attempted while the case is not
// waiting for additional information.
type InvalidStateError struct {
	CaseID string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("case %s does not accept documents in status %s", e.CaseID, e.Status)
}
