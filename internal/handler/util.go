package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
	"github.com/capitalize-ai/covid-dashboard/internal/service"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// classify maps a service error to a status code and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrTurnInProgress):
		return http.StatusConflict, "turn_in_progress"
	case errors.Is(err, service.ErrCompletionFailed):
		return http.StatusBadGateway, "completion_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// userMessage is the text shown to a person for a failed chat action.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrTurnInProgress):
		return "The assistant is still answering your previous question. Please wait for it to finish."
	case errors.Is(err, service.ErrCompletionFailed):
		return "The assistant could not answer. Your question was kept; submit it again to retry."
	default:
		return "Something went wrong. Please try again."
	}
}
