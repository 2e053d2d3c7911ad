package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/example/chargeback-engine/internal/security"
	"github.com/example/chargeback-engine/pkg/audit"
)

// Auditor receives one tamper-evident record per request.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// AuditMiddleware appends a hash-chained record for every handled request.
func AuditMiddleware(a Auditor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(sw, r)

			a.Append(fmt.Sprintf("cid=%s method=%s path=%s status=%d dur_ms=%d",
				security.CorrelationIDFromContext(r.Context()),
				r.Method, r.URL.Path, sw.status, time.Since(start).Milliseconds()))
		})
	}
}
