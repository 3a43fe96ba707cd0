package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/api/responses"
	"github.com/angelmondragon/gatewaysync/api/validators"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

const maxRequestIDLen = 64

// RequestID keeps a caller-supplied X-Request-Id (trimmed and capped) or
// mints one, and echoes it on the response before the handler runs.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := validators.SanitizeString(r.Header.Get(responses.RequestIDHeader), maxRequestIDLen)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(responses.RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
