package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskminder-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterEnvelope wraps registration responses. VerificationSent is false
// when the account was created but the verification email didn't go out.
type RegisterEnvelope struct {
	User             *domain.User `json:"user,omitempty"`
	VerificationSent bool         `json:"verification_sent"`
	Message          string       `json:"message,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// TodoEnvelope wraps single-todo responses.
type TodoEnvelope struct {
	Todo    *domain.Todo `json:"todo,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// TodoListEnvelope wraps todo list responses.
type TodoListEnvelope struct {
	Data  []domain.Todo `json:"data"`
	Error string        `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// statusFor maps domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
