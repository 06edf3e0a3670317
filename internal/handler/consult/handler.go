// Package consult serves the one-call consult flow used by the analysis UI.
package consult

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/skinmatch/chatbot/backend/internal/handler/apierr"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
	"github.com/skinmatch/chatbot/backend/pkg/utils"
)

// Handler serves /consult routes.
type Handler struct {
	svc *consult.Service
}

// New creates a consult handler.
func New(svc *consult.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the consult routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/consult", func(r chi.Router) {
		r.Post("/start", h.handleStart)
		r.Post("/message", h.handleMessage)
	})
}

type messageRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type replyResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// handleStart accepts {analysis, message?}. Any failure is reported as 400.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := utils.ReadBody(r)
	if err != nil || !gjson.ValidBytes(body) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var analysis []byte
	if v := root.Get("analysis"); v.Exists() {
		analysis = []byte(v.Raw)
	}
	message := ""
	if v := root.Get("message"); v.Type == gjson.String {
		message = v.Str
	}

	session, reply, err := h.svc.Start(r.Context(), analysis, message)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, replyResponse{SessionID: session.ID, Reply: reply})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload messageRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	reply, err := h.svc.Message(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, replyResponse{SessionID: payload.SessionID, Reply: reply})
}
