package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teranos/searchq/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeWrappedError logs err and writes it with a status derived from its
// sentinel, falling back to status.
func writeWrappedError(w http.ResponseWriter, logger *zap.SugaredLogger, err error, context string, status int) {
	status = statusFor(err, status)
	if status >= http.StatusInternalServerError {
		logger.Errorw(context, "error", err)
	} else {
		logger.Debugw(context, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		Error: errors.Wrap(err, context).Error(),
		Hint:  errors.FlattenHints(err),
	})
}

// requireMethod checks if the request method matches the expected method
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}
