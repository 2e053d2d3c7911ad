package disputes

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/chargeback-engine/internal/refunds"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// CreateCaseRequest carries the customer's dispute submission.
type CreateCaseRequest struct {
	CustomerID      string          `json:"customer_id"`
	TransactionID   string          `json:"transaction_id"`
	DisputeType     DisputeType     `json:"dispute_type"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currency_code"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reason          string          `json:"reason"`
}

// Validate checks the submission and returns a *ValidationError for the first
// problem found.
func (r CreateCaseRequest) Validate() error {
	if r.CustomerID == "" {
		return &ValidationError{Field: "customer_id", Message: "is required"}
	}
	if r.TransactionID == "" {
		return &ValidationError{Field: "transaction_id", Message: "is required"}
	}
	if r.DisputeType != DisputePOS && r.DisputeType != DisputeATM {
		return &ValidationError{Field: "dispute_type", Message: fmt.Sprintf("must be %s or %s", DisputePOS, DisputeATM)}
	}
	if !r.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if !currencyCodePattern.MatchString(r.CurrencyCode) {
		return &ValidationError{Field: "currency_code", Message: "must be a 3-letter ISO 4217 code"}
	}
	if strings.TrimSpace(r.Reason) == "" {
		return &ValidationError{Field: "reason", Message: "is required"}
	}
	return nil
}

// Service is the case store: it creates and reads cases and routes every
// status mutation through the state machine.
type Service struct {
	store   Store
	log     *Log
	machine *StateMachine
	journal refunds.Journal
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a case service. journal may be nil when refund recording
// is not wired; logger defaults to slog.Default.
func NewService(store Store, journal refunds.Journal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	log := NewLog(store)
	return &Service{
		store:   store,
		log:     log,
		machine: NewStateMachine(log),
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// Log exposes the timeline log for collaborators such as the document
// registry.
func (s *Service) Log() *Log {
	return s.log
}

// Create validates the request and opens a new case in PendingAtOperator with
// a single created event. Invalid input fails with *ValidationError and
// creates nothing.
func (s *Service) Create(ctx context.Context, req CreateCaseRequest) (*Case, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	c := &Case{
		ID:              fmt.Sprintf("CHB-%s%s", now.Format("20060102-"), uuid.NewString()[:8]),
		CustomerID:      req.CustomerID,
		TransactionID:   req.TransactionID,
		DisputeType:     req.DisputeType,
		Amount:          req.Amount,
		CurrencyCode:    req.CurrencyCode,
		TransactionDate: req.TransactionDate,
		Reason:          req.Reason,
		Status:          StatusPendingAtOperator,
		CreatedAt:       now,
	}

	created := buildEvents(c.ID, 0, time.Time{}, "", []EventSpec{{
		Kind:        EventCreated,
		Party:       PartyCustomer,
		Title:       "Chargeback case created",
		Description: req.Reason,
		At:          now,
	}}, s.now)[0]

	if err := s.store.CreateCase(ctx, c, created); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	return c, nil
}

// Get returns the current case snapshot, or *NotFoundError.
func (s *Service) Get(ctx context.Context, caseID string) (*Case, error) {
	return s.store.GetCase(ctx, caseID)
}

// List returns cases matching the filter. Pure read.
func (s *Service) List(ctx context.Context, filter CaseFilter) ([]*Case, error) {
	return s.store.ListCases(ctx, filter)
}

// Timeline returns the case's full event log ordered by sequence number.
func (s *Service) Timeline(ctx context.Context, caseID string) ([]*TimelineEvent, error) {
	return s.log.Query(ctx, caseID)
}

// Forward hands the case from the operator to the partner bank.
func (s *Service) Forward(ctx context.Context, caseID string) error {
	_, err := s.machine.Transition(ctx, caseID, ActionForwardToBank, PartyOperator)
	return err
}

// RequestInfo records the partner bank's request for supporting documents.
func (s *Service) RequestInfo(ctx context.Context, caseID string) error {
	_, err := s.machine.Transition(ctx, caseID, ActionRequestInfo, PartyPartnerBank)
	return err
}

// Approve settles the dispute in the customer's favor and records the refund
// in the journal. The journal write happens after the terminal transition has
// committed; a journal failure is logged but does not undo the decision.
func (s *Service) Approve(ctx context.Context, caseID string) error {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return err
	}

	if _, err := s.machine.Transition(ctx, caseID, ActionApprove, PartyPartnerBank); err != nil {
		return err
	}

	if s.journal != nil {
		entry := &refunds.Entry{
			CaseID:       c.ID,
			CustomerID:   c.CustomerID,
			Amount:       c.Amount,
			CurrencyCode: c.CurrencyCode,
			OccurredAt:   s.now(),
		}
		if err := s.journal.Record(ctx, entry); err != nil {
			s.logger.Error("refund journal write failed", "case_id", c.ID, "error", err)
		}
	}
	return nil
}

// Reject settles the dispute against the customer.
func (s *Service) Reject(ctx context.Context, caseID string) error {
	_, err := s.machine.Transition(ctx, caseID, ActionReject, PartyPartnerBank)
	return err
}
