package disputes

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/chargeback-engine/internal/refunds"
)

func validCreateRequest() CreateCaseRequest {
	return CreateCaseRequest{
		CustomerID:      "CUST-1",
		TransactionID:   "TRX-1",
		DisputeType:     DisputeATM,
		Amount:          decimal.RequireFromString("500.00"),
		CurrencyCode:    "TRY",
		TransactionDate: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Reason:          "ATM did not dispense cash",
	}
}

func TestCreateCase(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	c, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusPendingAtOperator, c.Status)
	assert.Contains(t, c.ID, "CHB-")
	assert.Equal(t, "CUST-1", c.CustomerID)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("500.00")))

	timeline, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, EventCreated, timeline[0].Kind)
	assert.Equal(t, PartyCustomer, timeline[0].Party)
	assert.Equal(t, uint64(1), timeline[0].Seq)
	assert.Equal(t, c.CreatedAt, timeline[0].CreatedAt, "case creation time is the first event's timestamp")
}

func TestCreateCaseValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateCaseRequest)
		field  string
	}{
		{"missing customer", func(r *CreateCaseRequest) { r.CustomerID = "" }, "customer_id"},
		{"missing transaction", func(r *CreateCaseRequest) { r.TransactionID = "" }, "transaction_id"},
		{"unknown dispute type", func(r *CreateCaseRequest) { r.DisputeType = "WIRE" }, "dispute_type"},
		{"zero amount", func(r *CreateCaseRequest) { r.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(r *CreateCaseRequest) { r.Amount = decimal.RequireFromString("-1") }, "amount"},
		{"bad currency", func(r *CreateCaseRequest) { r.CurrencyCode = "try" }, "currency_code"},
		{"blank reason", func(r *CreateCaseRequest) { r.Reason = "   " }, "reason"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			svc := NewService(store, nil, nil)

			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.Create(ctx, req)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)

			// Nothing may be created on invalid input.
			cases, err := svc.List(ctx, CaseFilter{})
			require.NoError(t, err)
			assert.Empty(t, cases)
		})
	}
}

func TestScenarioCreateThenForward(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	c, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Forward(ctx, c.ID))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingAtBank, got.Status)

	timeline, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, EventForwardedToBank, timeline[1].Kind)

	replayed, err := ReplayStatus(timeline)
	require.NoError(t, err)
	assert.Equal(t, got.Status, replayed)
}

func TestApproveRecordsRefund(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	journal := refunds.NewMemoryJournal()
	svc := NewService(store, journal, nil)

	c, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Forward(ctx, c.ID))
	require.NoError(t, svc.Approve(ctx, c.ID))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	timeline, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 5)
	assert.Equal(t, EventApproved, timeline[2].Kind)
	assert.Equal(t, EventFundsTransferred, timeline[3].Kind)
	assert.Equal(t, EventCustomerNotified, timeline[4].Kind)

	entries, err := journal.ListByCustomer(ctx, "CUST-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, c.ID, entries[0].CaseID)
	assert.True(t, entries[0].Amount.Equal(c.Amount))
	assert.Equal(t, "TRY", entries[0].CurrencyCode)
}

func TestRejectDoesNotRecordRefund(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	journal := refunds.NewMemoryJournal()
	svc := NewService(store, journal, nil)

	c, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Forward(ctx, c.ID))
	require.NoError(t, svc.Reject(ctx, c.ID))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)

	timeline, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 4)
	assert.Equal(t, EventRejected, timeline[2].Kind)
	assert.Equal(t, EventCustomerNotified, timeline[3].Kind)

	entries, err := journal.ListByCustomer(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTerminalCaseRejectsFurtherCommands(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	c, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Forward(ctx, c.ID))
	require.NoError(t, svc.Approve(ctx, c.ID))

	before, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)

	err = svc.Forward(ctx, c.ID)
	var terminalErr *TerminalStateError
	require.ErrorAs(t, err, &terminalErr)

	after, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "rejected command must leave the timeline unchanged")
}

func TestGetUnknownCase(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	_, err := svc.Get(context.Background(), "CHB-missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListCasesFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	mk := func(customer string) *Case {
		req := validCreateRequest()
		req.CustomerID = customer
		c, err := svc.Create(ctx, req)
		require.NoError(t, err)
		return c
	}

	a := mk("CUST-A")
	mk("CUST-A")
	b := mk("CUST-B")
	require.NoError(t, svc.Forward(ctx, b.ID))

	t.Run("by customer", func(t *testing.T) {
		cases, err := svc.List(ctx, CaseFilter{CustomerID: "CUST-A"})
		require.NoError(t, err)
		assert.Len(t, cases, 2)
		for _, c := range cases {
			assert.Equal(t, "CUST-A", c.CustomerID)
		}
	})

	t.Run("by status", func(t *testing.T) {
		cases, err := svc.List(ctx, CaseFilter{Status: StatusPendingAtBank})
		require.NoError(t, err)
		require.Len(t, cases, 1)
		assert.Equal(t, b.ID, cases[0].ID)
	})

	t.Run("by customer and status", func(t *testing.T) {
		cases, err := svc.List(ctx, CaseFilter{CustomerID: "CUST-A", Status: StatusPendingAtOperator})
		require.NoError(t, err)
		assert.Len(t, cases, 2)
	})

	t.Run("date range excludes everything", func(t *testing.T) {
		cases, err := svc.List(ctx, CaseFilter{CreatedUntil: a.CreatedAt.Add(-time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, cases)
	})

	t.Run("limit", func(t *testing.T) {
		cases, err := svc.List(ctx, CaseFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, cases, 2)
	})
}
