package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/chargeback-engine/internal/disputes"
)

type fixture struct {
	svc      *disputes.Service
	registry *Registry
	store    *MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := disputes.NewService(disputes.NewMemoryStore(), nil, nil)
	store := NewMemoryStore()
	return &fixture{
		svc:      svc,
		registry: NewRegistry(store, svc.Log()),
		store:    store,
	}
}

func (f *fixture) newCase(t *testing.T) *disputes.Case {
	t.Helper()
	c, err := f.svc.Create(context.Background(), disputes.CreateCaseRequest{
		CustomerID:      "CUST-1",
		TransactionID:   "TRX-1",
		DisputeType:     disputes.DisputePOS,
		Amount:          decimal.RequireFromString("120.50"),
		CurrencyCode:    "TRY",
		TransactionDate: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		Reason:          "merchandise never arrived",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) pendingInfoCase(t *testing.T) *disputes.Case {
	t.Helper()
	ctx := context.Background()
	c := f.newCase(t)
	require.NoError(t, f.svc.Forward(ctx, c.ID))
	require.NoError(t, f.svc.RequestInfo(ctx, c.ID))
	return c
}

func upload(caseID, filename string, category Category) UploadRequest {
	return UploadRequest{CaseID: caseID, Filename: filename, Category: category, UploadedBy: "CUST-1"}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	c := f.pendingInfoCase(t)
	ctx := context.Background()

	var validationErr *disputes.ValidationError

	_, err := f.registry.RequestUpload(ctx, upload(c.ID, "", CategoryReceipt))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "filename", validationErr.Field)

	_, err = f.registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", "tax_form"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "category", validationErr.Field)
}

func TestUploadRejectedOutsidePendingInfo(t *testing.T) {
	ctx := context.Background()

	statuses := []struct {
		name  string
		setup func(*testing.T, *fixture) *disputes.Case
		want  disputes.Status
	}{
		{"pending at operator", func(t *testing.T, f *fixture) *disputes.Case {
			return f.newCase(t)
		}, disputes.StatusPendingAtOperator},
		{"pending at bank", func(t *testing.T, f *fixture) *disputes.Case {
			c := f.newCase(t)
			require.NoError(t, f.svc.Forward(ctx, c.ID))
			return c
		}, disputes.StatusPendingAtBank},
		{"approved", func(t *testing.T, f *fixture) *disputes.Case {
			c := f.newCase(t)
			require.NoError(t, f.svc.Forward(ctx, c.ID))
			require.NoError(t, f.svc.Approve(ctx, c.ID))
			return c
		}, disputes.StatusApproved},
		{"rejected", func(t *testing.T, f *fixture) *disputes.Case {
			c := f.newCase(t)
			require.NoError(t, f.svc.Forward(ctx, c.ID))
			require.NoError(t, f.svc.Reject(ctx, c.ID))
			return c
		}, disputes.StatusRejected},
	}

	for _, tt := range statuses {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := tt.setup(t, f)

			before, err := f.svc.Timeline(ctx, c.ID)
			require.NoError(t, err)

			_, err = f.registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
			var stateErr *disputes.InvalidStateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, tt.want, stateErr.Status)

			after, err := f.svc.Timeline(ctx, c.ID)
			require.NoError(t, err)
			assert.Len(t, after, len(before))

			docs, err := f.registry.ListDocuments(ctx, c.ID, "")
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestUploadUnknownCase(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.RequestUpload(context.Background(), upload("CHB-missing", "receipt.pdf", CategoryReceipt))
	var notFound *disputes.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestFirstUploadResumesReview(t *testing.T) {
	f := newFixture(t)
	c := f.pendingInfoCase(t)
	ctx := context.Background()

	doc, err := f.registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusPendingAtBank, got.Status)

	timeline, err := f.svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 5)
	assert.Equal(t, disputes.EventInfoRequested, timeline[2].Kind)
	assert.Equal(t, disputes.EventDocumentAdded, timeline[3].Kind)
	assert.Equal(t, disputes.EventReviewResumed, timeline[4].Kind)

	require.NoError(t, disputes.VerifyChain(timeline))
}

func TestConcurrentUploadsResumeOnce(t *testing.T) {
	f := newFixture(t)
	c := f.pendingInfoCase(t)
	ctx := context.Background()

	const racers = 8

	var wg sync.WaitGroup
	errs := make([]error, racers)

	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.registry.RequestUpload(ctx, upload(c.ID, fmt.Sprintf("doc-%d.pdf", i), CategoryReceipt))
		}(i)
	}
	close(start)
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			// Losers that raced the append get ConcurrentModificationError;
			// losers that read the post-commit state get InvalidStateError.
			var raceErr *disputes.ConcurrentModificationError
			var stateErr *disputes.InvalidStateError
			if !errors.As(err, &raceErr) && !errors.As(err, &stateErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}
	assert.Equal(t, 1, wins)

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusPendingAtBank, got.Status)

	timeline, err := f.svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 5)
	assert.Equal(t, disputes.EventDocumentAdded, timeline[3].Kind)
	assert.Equal(t, disputes.EventReviewResumed, timeline[4].Kind)

	docs, err := f.registry.ListDocuments(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

// flakyStore fails a configurable number of appends before behaving normally.
type flakyStore struct {
	disputes.Store
	failures int
}

func (s *flakyStore) AppendEvents(ctx context.Context, caseID string, expectedSeq uint64, newStatus disputes.Status, events []*disputes.TimelineEvent) error {
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("append to case %s: connection reset", caseID)
	}
	return s.Store.AppendEvents(ctx, caseID, expectedSeq, newStatus, events)
}

func TestUploadRetriesAfterTransientAppendFailure(t *testing.T) {
	ctx := context.Background()
	caseStore := disputes.NewMemoryStore()
	svc := disputes.NewService(caseStore, nil, nil)
	flaky := &flakyStore{Store: caseStore, failures: 1}
	registry := NewRegistry(NewMemoryStore(), disputes.NewLog(flaky))

	c, err := svc.Create(ctx, disputes.CreateCaseRequest{
		CustomerID:      "CUST-1",
		TransactionID:   "TRX-1",
		DisputeType:     disputes.DisputePOS,
		Amount:          decimal.RequireFromString("120.50"),
		CurrencyCode:    "TRY",
		TransactionDate: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		Reason:          "merchandise never arrived",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Forward(ctx, c.ID))
	require.NoError(t, svc.RequestInfo(ctx, c.ID))

	// The failed upload must commit nothing.
	_, err = registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
	require.Error(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusPendingInfo, got.Status)

	timeline, err := svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 3)

	docs, err := registry.ListDocuments(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Retrying the upload must still be able to resume the review.
	_, err = registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
	require.NoError(t, err)

	got, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusPendingAtBank, got.Status)
}

func TestSecondInfoEpisodeResumesAgain(t *testing.T) {
	f := newFixture(t)
	c := f.pendingInfoCase(t)
	ctx := context.Background()

	_, err := f.registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestInfo(ctx, c.ID))

	_, err = f.registry.RequestUpload(ctx, upload(c.ID, "photo.jpg", CategoryProductEvidence))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusPendingAtBank, got.Status)

	timeline, err := f.svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 8)
	assert.Equal(t, disputes.EventInfoRequested, timeline[5].Kind)
	assert.Equal(t, disputes.EventDocumentAdded, timeline[6].Kind)
	assert.Equal(t, disputes.EventReviewResumed, timeline[7].Kind)
}

func TestFullLifecycleWithDocuments(t *testing.T) {
	f := newFixture(t)
	c := f.pendingInfoCase(t)
	ctx := context.Background()

	_, err := f.registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(ctx, c.ID))

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusApproved, got.Status)

	timeline, err := f.svc.Timeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 8)
	require.NoError(t, disputes.VerifyChain(timeline))

	replayed, err := disputes.ReplayStatus(timeline)
	require.NoError(t, err)
	assert.Equal(t, disputes.StatusApproved, replayed)

	docs, err := f.registry.ListDocuments(ctx, c.ID, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "receipt.pdf", docs[0].Filename)
}

func TestListDocumentsCategoryFilter(t *testing.T) {
	f := newFixture(t)
	c := f.pendingInfoCase(t)
	ctx := context.Background()

	_, err := f.registry.RequestUpload(ctx, upload(c.ID, "receipt.pdf", CategoryReceipt))
	require.NoError(t, err)

	// Back to PendingInfo for a second upload.
	require.NoError(t, f.svc.RequestInfo(ctx, c.ID))
	_, err = f.registry.RequestUpload(ctx, upload(c.ID, "email.txt", CategoryCommunication))
	require.NoError(t, err)

	all, err := f.registry.ListDocuments(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	receipts, err := f.registry.ListDocuments(ctx, c.ID, CategoryReceipt)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "receipt.pdf", receipts[0].Filename)

	_, err = f.registry.ListDocuments(ctx, c.ID, "tax_form")
	var validationErr *disputes.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
