package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
)

// HeaderRequestID carries the request correlation ID in both directions.
const HeaderRequestID = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID propagates an inbound X-Request-ID or mints a new one, stores it
// in the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(id) {
			id = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := logging.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
