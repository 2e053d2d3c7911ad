package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/chargeback-engine/internal/disputes"
	"github.com/example/chargeback-engine/internal/documents"
	"github.com/example/chargeback-engine/internal/security"
)

// CaseService is the dispute surface the router needs.
type CaseService interface {
	Create(ctx context.Context, req disputes.CreateCaseRequest) (*disputes.Case, error)
	Get(ctx context.Context, caseID string) (*disputes.Case, error)
	List(ctx context.Context, filter disputes.CaseFilter) ([]*disputes.Case, error)
	Timeline(ctx context.Context, caseID string) ([]*disputes.TimelineEvent, error)
	Forward(ctx context.Context, caseID string) error
	RequestInfo(ctx context.Context, caseID string) error
	Approve(ctx context.Context, caseID string) error
	Reject(ctx context.Context, caseID string) error
}

// DocumentService is the document surface the router needs.
type DocumentService interface {
	RequestUpload(ctx context.Context, req documents.UploadRequest) (*documents.Document, error)
	ListDocuments(ctx context.Context, caseID string, category documents.Category) ([]*documents.Document, error)
}

// Dependencies wires the router to its collaborators. Auditor and RateLimiter
// are optional.
type Dependencies struct {
	Logger *slog.Logger

	Cases     CaseService
	Documents DocumentService

	Auditor      Auditor
	RateLimiter  *security.RedisTokenBucket
	IPAllowlist  []*net.IPNet
	MaxBodyBytes int64
}

// NewRouter builds the HTTP handler for the dispute API.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	submitV, err := security.NewJSONSchemaValidator(submitDisputeSchema)
	if err != nil {
		return nil, err
	}
	uploadV, err := security.NewJSONSchemaValidator(uploadDocumentSchema)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(security.BodySizeLimit(deps.MaxBodyBytes))
	r.Use(security.IPAllowlist(deps.IPAllowlist))
	if deps.RateLimiter != nil {
		r.Use(security.RateLimitMiddleware(deps.RateLimiter, rateLimitKeyByIP))
	}
	if deps.Auditor != nil {
		r.Use(AuditMiddleware(deps.Auditor))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1/disputes", func(r chi.Router) {
		r.Get("/", handleListCases(deps))
		r.With(submitV.Middleware).Post("/", handleSubmitDispute(deps))

		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", handleGetCase(deps))

			r.Post("/forward", handleTransition(deps, func(req *http.Request, caseID string) error {
				return deps.Cases.Forward(req.Context(), caseID)
			}))
			r.Post("/request-info", handleTransition(deps, func(req *http.Request, caseID string) error {
				return deps.Cases.RequestInfo(req.Context(), caseID)
			}))
			r.Post("/approve", handleTransition(deps, func(req *http.Request, caseID string) error {
				return deps.Cases.Approve(req.Context(), caseID)
			}))
			r.Post("/reject", handleTransition(deps, func(req *http.Request, caseID string) error {
				return deps.Cases.Reject(req.Context(), caseID)
			}))

			r.With(uploadV.Middleware).Post("/documents", handleUploadDocument(deps))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return r, nil
}

func rateLimitKeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
