package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID echoes a caller-supplied UUID or mints one. Anything that does
// not parse as a UUID is replaced so the header cannot carry injected text.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(requestIDHeader))
			if err != nil {
				id = uuid.New()
			}
			w.Header().Set(requestIDHeader, id.String())
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), id.String())))
		})
	}
}
