// Package handlers implements the HTTP endpoints of the candidate board API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// DefaultMaxBodySize bounds request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 4 << 20

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its table status and a {code, message} body.
// Errors without a code, and internal errors, are masked.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		ae = errors.Wrap(err, errors.ErrCodeInternal, "internal server error")
	}
	status := errors.HTTPStatusForCode(ae.Code)
	resp := ErrorResponse{
		Code:      string(ae.Code),
		Message:   ae.Message,
		Detail:    ae.Detail,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if ae.Code == errors.ErrCodeInternal {
		resp.Message = "internal server error"
		resp.Detail = ""
	}
	if resp.Message == "" {
		resp.Message = errors.DefaultMessageForCode(ae.Code)
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}
	log := logging.FromContext(r.Context(), logger)
	if status >= 500 {
		log.Error("request failed", logging.String("code", string(ae.Code)), logging.Err(err))
	} else {
		log.Debug("request rejected", logging.String("code", string(ae.Code)), logging.Err(err))
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads at most maxBody bytes of JSON into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, dst interface{}) error {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.New(errors.ErrCodeBadRequest, "request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Newf(errors.ErrCodeBadRequest, "request body exceeds %d bytes", maxBody)
		}
		return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed JSON body")
	}
	return nil
}

//Personal.AI order the ending
