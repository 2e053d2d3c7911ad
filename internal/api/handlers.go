package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/example/chargeback-engine/internal/disputes"
	"github.com/example/chargeback-engine/internal/documents"
	"github.com/example/chargeback-engine/internal/security"
)

type submitDisputeRequest struct {
	CustomerID      string          `json:"customer_id"`
	TransactionID   string          `json:"transaction_id"`
	DisputeType     string          `json:"dispute_type"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currency_code"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reason          string          `json:"reason"`
}

type submitDisputeResponse struct {
	CorrelationID string         `json:"correlation_id"`
	Case          *disputes.Case `json:"case"`
}

type transitionRequest struct {
	ActorID string `json:"actor_id"`
}

type transitionResponse struct {
	CorrelationID string          `json:"correlation_id"`
	CaseID        string          `json:"case_id"`
	Status        disputes.Status `json:"status"`
	Stage         disputes.Stage  `json:"stage"`
}

type uploadDocumentRequest struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
	ActorID  string `json:"actor_id"`
}

type uploadDocumentResponse struct {
	CorrelationID string              `json:"correlation_id"`
	Document      *documents.Document `json:"document"`
	Status        disputes.Status     `json:"status"`
}

type caseDetailResponse struct {
	CorrelationID    string                    `json:"correlation_id"`
	Case             *disputes.Case            `json:"case"`
	Stage            disputes.Stage            `json:"stage"`
	AvailableActions []disputes.CaseAction     `json:"available_actions"`
	Timeline         []*disputes.TimelineEvent `json:"timeline"`
	Documents        []*documents.Document     `json:"documents"`
}

type listCasesResponse struct {
	CorrelationID string        `json:"correlation_id"`
	Cases         []caseSummary `json:"cases"`
}

type caseSummary struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	DisputeType  string          `json:"dispute_type"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Status       disputes.Status `json:"status"`
	Stage        disputes.Stage  `json:"stage"`
	CreatedAt    time.Time       `json:"created_at"`
}

func handleSubmitDispute(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitDisputeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
			return
		}

		c, err := deps.Cases.Create(r.Context(), disputes.CreateCaseRequest{
			CustomerID:      req.CustomerID,
			TransactionID:   req.TransactionID,
			DisputeType:     disputes.DisputeType(req.DisputeType),
			Amount:          req.Amount,
			CurrencyCode:    req.CurrencyCode,
			TransactionDate: req.TransactionDate,
			Reason:          req.Reason,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, submitDisputeResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Case:          c,
		})
	}
}

// handleTransition serves the forward/request-info/approve/reject endpoints,
// which differ only in the service call they make.
func handleTransition(deps Dependencies, do func(r *http.Request, caseID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var req transitionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
				return
			}
		}

		if err := do(r, caseID); err != nil {
			writeDomainError(w, r, err)
			return
		}

		c, err := deps.Cases.Get(r.Context(), caseID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		if deps.Logger != nil {
			deps.Logger.Info("case_transition",
				"case_id", caseID, "status", c.Status, "actor_id", req.ActorID)
		}

		writeJSON(w, r, http.StatusOK, transitionResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			CaseID:        caseID,
			Status:        c.Status,
			Stage:         disputes.ComputeStage(c.Status),
		})
	}
}

func handleUploadDocument(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var req uploadDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
			return
		}

		doc, err := deps.Documents.RequestUpload(r.Context(), documents.UploadRequest{
			CaseID:     caseID,
			Filename:   req.Filename,
			Category:   documents.Category(req.Category),
			UploadedBy: req.ActorID,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		c, err := deps.Cases.Get(r.Context(), caseID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, uploadDocumentResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Document:      doc,
			Status:        c.Status,
		})
	}
}

func handleGetCase(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		c, err := deps.Cases.Get(r.Context(), caseID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		timeline, err := deps.Cases.Timeline(r.Context(), caseID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		category := documents.Category(r.URL.Query().Get("category"))
		docs, err := deps.Documents.ListDocuments(r.Context(), caseID, category)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if docs == nil {
			docs = []*documents.Document{}
		}

		actions := disputes.ComputeAvailableActions(c.Status)
		if actions == nil {
			actions = []disputes.CaseAction{}
		}

		writeJSON(w, r, http.StatusOK, caseDetailResponse{
			CorrelationID:    security.CorrelationIDFromContext(r.Context()),
			Case:             c,
			Stage:            disputes.ComputeStage(c.Status),
			AvailableActions: actions,
			Timeline:         timeline,
			Documents:        docs,
		})
	}
}

func handleListCases(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := disputes.CaseFilter{
			CustomerID: q.Get("customer_id"),
			Status:     disputes.Status(q.Get("status")),
		}
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_date")
				return
			}
			filter.CreatedAfter = t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_date")
				return
			}
			filter.CreatedUntil = t
		}
		if v := q.Get("limit"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				filter.Limit = i
			}
		}
		if v := q.Get("offset"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				filter.Offset = i
			}
		}

		cases, err := deps.Cases.List(r.Context(), filter)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		summaries := make([]caseSummary, 0, len(cases))
		for _, c := range cases {
			summaries = append(summaries, caseSummary{
				ID:           c.ID,
				CustomerID:   c.CustomerID,
				DisputeType:  string(c.DisputeType),
				Amount:       c.Amount,
				CurrencyCode: c.CurrencyCode,
				Status:       c.Status,
				Stage:        disputes.ComputeStage(c.Status),
				CreatedAt:    c.CreatedAt,
			})
		}

		writeJSON(w, r, http.StatusOK, listCasesResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Cases:         summaries,
		})
	}
}
