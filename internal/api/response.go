package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/chargeback-engine/internal/disputes"
	"github.com/example/chargeback-engine/internal/security"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	cid := security.CorrelationIDFromContext(r.Context())
	if cid != "" {
		w.Header().Set(security.CorrelationIDHeader, cid)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the dispute error taxonomy onto HTTP statuses and
// stable error codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *disputes.ValidationError
		notFoundErr   *disputes.NotFoundError
		transitionErr *disputes.InvalidTransitionError
		terminalErr   *disputes.TerminalStateError
		raceErr       *disputes.ConcurrentModificationError
		stateErr      *disputes.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr):
		security.WriteJSONErrorDetail(w, r, http.StatusUnprocessableEntity, "validation_failed", validationErr.Error())
	case errors.As(err, &notFoundErr):
		security.WriteJSONError(w, r, http.StatusNotFound, "case_not_found")
	case errors.As(err, &terminalErr):
		security.WriteJSONErrorDetail(w, r, http.StatusConflict, "case_closed", terminalErr.Error())
	case errors.As(err, &transitionErr):
		security.WriteJSONErrorDetail(w, r, http.StatusConflict, "invalid_transition", transitionErr.Error())
	case errors.As(err, &raceErr):
		security.WriteJSONError(w, r, http.StatusConflict, "concurrent_modification")
	case errors.As(err, &stateErr):
		security.WriteJSONErrorDetail(w, r, http.StatusConflict, "documents_not_accepted", stateErr.Error())
	default:
		security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error")
	}
}
