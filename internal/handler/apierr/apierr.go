// Package apierr maps service errors to HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
	"github.com/skinmatch/chatbot/backend/internal/service/ai"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
	"github.com/skinmatch/chatbot/backend/pkg/utils"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, consult.ErrInvalidInput), errors.Is(err, chat.ErrInvalidPatch):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrModelTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, consult.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err with the status from Status.
func Respond(w http.ResponseWriter, err error) {
	utils.RespondError(w, Status(err), err.Error())
}
