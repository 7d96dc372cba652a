package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatservice "github.com/zhouzirui/lumi/backend/internal/service/chat"
	"github.com/zhouzirui/lumi/backend/internal/service/relay"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

// Handler serves chat turns over HTTP.
type Handler struct {
	sessions *chatservice.Service
	relay    *relay.Service
	policy   utils.ResponsePolicy
	logger   *zap.Logger
}

// New creates the chat handler.
func New(sessions *chatservice.Service, relaySvc *relay.Service, policy utils.ResponsePolicy, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		relay:    relaySvc,
		policy:   policy,
		logger:   logger,
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Post("/chat", h.handleChat)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string             `json:"session_id"`
	Response  string             `json:"response"`
	Error     *utils.ErrorDetail `json:"error,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{SessionID: session.ID})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("get session failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			utils.RespondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	turn, err := h.relay.Turn(r.Context(), strings.TrimSpace(payload.SessionID), payload.Message)
	if err != nil {
		h.logger.Error("chat turn failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	status, detail := utils.Outcome(h.policy, string(turn.Result.Failure), turn.Result.Reason)
	utils.RespondJSON(w, status, chatResponse{
		SessionID: turn.SessionID,
		Response:  turn.Response(),
		Error:     detail,
	})
}
