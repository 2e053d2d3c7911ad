package disputes

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the current state of a chargeback case.
type Status string

const (
	StatusPendingAtOperator Status = "PENDING_AT_OPERATOR"
	StatusPendingAtBank     Status = "PENDING_AT_BANK"
	StatusPendingInfo       Status = "PENDING_INFO"
	StatusApproved          Status = "APPROVED"
	StatusRejected          Status = "REJECTED"
)

// Terminal reports whether no further transition is accepted from the status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Action identifies a command against a case.
type Action string

const (
	ActionForwardToBank Action = "forward_to_bank"
	ActionRequestInfo   Action = "request_info"
	ActionResumeReview  Action = "resume_review"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
)

// Party identifies who is responsible for an event or action.
type Party string

const (
	PartyCustomer    Party = "CUSTOMER"
	PartyOperator    Party = "OPERATOR"
	PartyPartnerBank Party = "PARTNER_BANK"
)

// DisputeType classifies the disputed transaction channel.
type DisputeType string

const (
	DisputePOS DisputeType = "POS"
	DisputeATM DisputeType = "ATM"
)

// EventKind identifies what happened to a case.
type EventKind string

const (
	EventCreated          EventKind = "created"
	EventForwardedToBank  EventKind = "forwarded_to_bank"
	EventInfoRequested    EventKind = "info_requested"
	EventDocumentAdded    EventKind = "document_added"
	EventReviewResumed    EventKind = "review_resumed"
	EventApproved         EventKind = "approved"
	EventRejected         EventKind = "rejected"
	EventFundsTransferred EventKind = "funds_transferred"
	EventCustomerNotified EventKind = "customer_notified"
)

// TimelineEvent is a single immutable entry in a case's audit log.
// Seq is monotonically increasing per case; Hash chains each entry to the
// previous one so the log is verifiable after the fact.
type TimelineEvent struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	Seq         uint64    `json:"seq"`
	Kind        EventKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Party       Party     `json:"party"`
	CreatedAt   time.Time `json:"created_at"`
	PrevHash    string    `json:"prev_hash"`
	Hash        string    `json:"hash"`
}

// Case is a single chargeback dispute. Status is derived from the timeline;
// stores keep it denormalized but reconcile it on every append.
type Case struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	TransactionID   string          `json:"transaction_id"`
	DisputeType     DisputeType     `json:"dispute_type"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currency_code"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reason          string          `json:"reason"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Head is the write cursor of a case's event log: the denormalized status plus
// the sequence, timestamp and hash of the last event. Appends are validated
// against it so that two racing writers cannot both commit.
type Head struct {
	Status      Status
	Seq         uint64
	LastEventAt time.Time
	LastHash    string
}

// CaseFilter narrows ListCases results. Zero values match everything.
type CaseFilter struct {
	CustomerID   string
	Status       Status
	CreatedAfter time.Time
	CreatedUntil time.Time
	Limit        int
	Offset       int
}
