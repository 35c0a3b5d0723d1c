package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// Recovery converts a handler panic into a 500 {code, message} response.
func Recovery(logger logging.Logger, metrics *prometheus.BoardMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context(), logger).Error("panic recovered",
					logging.String("panic", fmt.Sprint(rec)),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.String("stack", string(debug.Stack())))
				prometheus.RecordError(metrics, "http", string(errors.ErrCodeInternal))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    string(errors.ErrCodeInternal),
					"message": "internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
