// Package documents tracks supporting documents uploaded for chargeback
// cases. Uploads are gated by case state and an accepted upload resumes the
// bank's review in the same commit.
package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/chargeback-engine/internal/disputes"
)

// Category classifies a supporting document.
type Category string

const (
	CategoryCommunication   Category = "communication"
	CategoryProductEvidence Category = "product_evidence"
	CategoryReceipt         Category = "receipt"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommunication, CategoryProductEvidence, CategoryReceipt:
		return true
	}
	return false
}

// Document is an immutable record of one uploaded file. Documents stay linked
// to their case permanently; there is no deletion path.
type Document struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"case_id"`
	Filename   string    `json:"filename"`
	Category   Category  `json:"category"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

// Store persists documents.
type Store interface {
	Insert(ctx context.Context, doc *Document) error
	List(ctx context.Context, caseID string, category Category) ([]*Document, error)
}

// CaseLog is the slice of the dispute timeline the registry needs.
type CaseLog interface {
	Head(ctx context.Context, caseID string) (*disputes.Head, error)
	Append(ctx context.Context, caseID string, head *disputes.Head, newStatus disputes.Status, specs []disputes.EventSpec) ([]*disputes.TimelineEvent, error)
}

// Registry is the state-gated document workflow over a dispute log.
type Registry struct {
	store Store
	log   CaseLog
	now   func() time.Time
}

// NewRegistry creates a registry over the given store and log.
func NewRegistry(store Store, log CaseLog) *Registry {
	return &Registry{store: store, log: log, now: time.Now}
}

// UploadRequest carries a document upload command.
type UploadRequest struct {
	CaseID     string
	Filename   string
	Category   Category
	UploadedBy string
}

// RequestUpload stores the document and appends a document-added event,
// provided the case is currently waiting for additional information; any
// other status fails with *disputes.InvalidStateError. The document-added and
// review-resumed events go into one append, so the case leaves PendingInfo in
// the same commit that records the document and a failed upload leaves the
// timeline untouched.
func (r *Registry) RequestUpload(ctx context.Context, req UploadRequest) (*Document, error) {
	if req.Filename == "" {
		return nil, &disputes.ValidationError{Field: "filename", Message: "is required"}
	}
	if !req.Category.Valid() {
		return nil, &disputes.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", req.Category)}
	}

	head, err := r.log.Head(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	if head.Status != disputes.StatusPendingInfo {
		return nil, &disputes.InvalidStateError{CaseID: req.CaseID, Status: head.Status}
	}

	doc := &Document{
		ID:         uuid.NewString(),
		CaseID:     req.CaseID,
		Filename:   req.Filename,
		Category:   req.Category,
		UploadedAt: r.now(),
		UploadedBy: req.UploadedBy,
	}

	specs := []disputes.EventSpec{
		{
			Kind:        disputes.EventDocumentAdded,
			Party:       disputes.PartyCustomer,
			Title:       "Document added",
			Description: fmt.Sprintf("%s (%s) was attached to the case.", doc.Filename, doc.Category),
			At:          doc.UploadedAt,
		},
		{
			Kind:        disputes.EventReviewResumed,
			Party:       disputes.PartyOperator,
			Title:       "Review resumed",
			Description: "Requested documents were received; the case returned to the partner bank.",
		},
	}
	if _, err := r.log.Append(ctx, req.CaseID, head, disputes.StatusPendingAtBank, specs); err != nil {
		return nil, err
	}

	if err := r.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the case's documents, optionally filtered by
// category. Pure read.
func (r *Registry) ListDocuments(ctx context.Context, caseID string, category Category) ([]*Document, error) {
	if category != "" && !category.Valid() {
		return nil, &disputes.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	return r.store.List(ctx, caseID, category)
}
