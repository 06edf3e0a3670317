package chat

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skinmatch/chatbot/backend/internal/handler/apierr"
	"github.com/skinmatch/chatbot/backend/internal/model/chat"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
	"github.com/skinmatch/chatbot/backend/pkg/utils"
)

// Handler serves the session and chat endpoints.
type Handler struct {
	svc *consult.Service
}

// New creates a chat handler.
func New(svc *consult.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the session routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/init", h.handleInit)
	r.Post("/session/init-from-analysis", h.handleInitFromAnalysis)
	r.Post("/session/reset", h.handleReset)
	r.Post("/session/append-context", h.handleAppendContext)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Post("/chat", h.handleChat)
}

type initRequest struct {
	Diagnosis       string   `json:"diagnosis" validate:"notblank"`
	Summary         *string  `json:"summary"`
	SimilarDiseases []string `json:"similar_diseases"`
	RefinedSymptoms *string  `json:"refined_symptoms"`
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"notblank"`
	Message   string `json:"message" validate:"required"`
}

type resetRequest struct {
	SessionID string `json:"session_id" validate:"notblank"`
	Mode      string `json:"mode" validate:"omitempty,oneof=history all"`
}

type storedResponse struct {
	SessionID string `json:"session_id"`
	Stored    bool   `json:"stored"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	var payload initRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.svc.InitSession(chat.AnalysisContext{
		Diagnosis:       strings.TrimSpace(payload.Diagnosis),
		Summary:         payload.Summary,
		SimilarDiseases: payload.SimilarDiseases,
		RefinedSymptoms: payload.RefinedSymptoms,
	})
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, storedResponse{SessionID: session.ID, Stored: true})
}

func (h *Handler) handleInitFromAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := utils.ReadBody(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.svc.InitFromAnalysis(body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, storedResponse{SessionID: session.ID, Stored: true})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.svc.Converse(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{SessionID: payload.SessionID, Reply: reply})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Snapshot(chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.svc.Reset(payload.SessionID, payload.Mode)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	if deleted {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"history_cleared": true})
}

func (h *Handler) handleAppendContext(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id query parameter is required")
		return
	}

	body, err := utils.ReadBody(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.PatchContext(sessionID, body); err != nil {
		apierr.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
