package handlers

import (
	"encoding/json"
	"net/http"

	"roomchat/internal/models"
	"roomchat/pkg/errs"
	"roomchat/pkg/logger"
)

type errorBody struct {
	Error  string         `json:"error"`
	Notice *models.Notice `json:"notice,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error writing JSON response: %v", err)
	}
}

// writeError answers with the status for err's kind. Errors without a
// user-facing message are logged and shown as Unknown.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeFailure(w, r, "", err)
}

// writeFailure is writeError plus a destructive notice titled title.
func writeFailure(w http.ResponseWriter, r *http.Request, title string, err error) {
	status := errs.ToHTTP(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	body := errorBody{Error: errs.Message(err)}
	if title != "" {
		body.Notice = models.Failure(title, body.Error)
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.New(errs.ErrInvalidInput, "invalid request")
	}
	return nil
}
