package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tejasvimys/rama-sync/internal/donation"
	"github.com/tejasvimys/rama-sync/internal/store"
)

// SuccessEnvelope wraps every successful response body.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(SuccessEnvelope{Success: true, Data: data}); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message}); err != nil {
		slog.Error("encode error response failed", "error", err)
	}
}

// handleError maps domain errors onto HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	var verr *donation.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, string(verr.Code), verr.Message)
		return
	}
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}
