package journal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	journalservice "github.com/zhouzirui/lumi/backend/internal/service/journal"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

// Handler serves journal generation.
type Handler struct {
	journals *journalservice.Service
}

// New creates the journal handler.
func New(journals *journalservice.Service) *Handler {
	return &Handler{journals: journals}
}

// RegisterRoutes mounts the journal route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate-journal", h.handleGenerate)
}

type generateRequest struct {
	SessionID string `json:"session_id"`
}

type generateResponse struct {
	Journal string `json:"journal"`
	Source  string `json:"source"`
}

// handleGenerate always answers 200; a missing session is reported in the journal text.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := h.journals.Generate(r.Context(), strings.TrimSpace(payload.SessionID))
	utils.RespondJSON(w, http.StatusOK, generateResponse{
		Journal: entry.Journal,
		Source:  string(entry.Source),
	})
}
