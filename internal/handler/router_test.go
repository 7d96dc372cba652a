package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	chatService "github.com/zhouzirui/lumi/backend/internal/service/chat"
	journalService "github.com/zhouzirui/lumi/backend/internal/service/journal"
	"github.com/zhouzirui/lumi/backend/internal/service/relay"
)

type unreachable struct{}

func (unreachable) Complete(context.Context, ai.Request) ai.Result {
	return ai.Result{Failure: ai.FailureTransport, Reason: "contacting AI failed: dial tcp 127.0.0.1:1: connect: connection refused"}
}

func newTestRouter(t *testing.T, policy string) http.Handler {
	t.Helper()
	store := persona.NewMemoryStore(persona.Seed())
	companion, ok := store.FindByID(persona.CompanionID)
	require.True(t, ok)
	journalPersona, ok := store.FindByID(persona.JournalID)
	require.True(t, ok)

	sessions := chatService.NewService(nil)
	return NewRouter(config.HTTPConfig{ResponsePolicy: policy, AllowedOrigins: []string{"*"}}, Services{
		Personas: store,
		Sessions: sessions,
		Relay:    relay.New(sessions, unreachable{}, companion, nil),
		Journals: journalService.NewService(sessions, unreachable{}, journalService.Config{Persona: journalPersona}, nil),
	}, nil)
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	resp := do(t, newTestRouter(t, config.PolicyText), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Body.String())
}

func TestHealthLogsSessionCount(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sessions := chatService.NewService(nil)
	_, err := sessions.CreateSession(context.Background())
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	healthHandler(sessions, zap.New(core)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "OK", resp.Body.String())
	entries := logs.FilterMessage("health check").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["sessions"])
}

func TestChatThenJournalFallsBackWhenModelUnreachable(t *testing.T) {
	r := newTestRouter(t, config.PolicyText)

	resp := do(t, r, http.MethodPost, "/chat", `{"message":"Hello"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	var chatOut struct {
		SessionID string `json:"session_id"`
		Response  string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &chatOut))
	assert.True(t, strings.HasPrefix(chatOut.Response, "contacting AI failed"))

	resp = do(t, r, http.MethodPost, "/generate-journal", `{"session_id":"`+chatOut.SessionID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	var journalOut struct {
		Journal string `json:"journal"`
		Source  string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &journalOut))
	assert.Equal(t, string(journalService.SourceFallback), journalOut.Source)
	assert.True(t, strings.HasPrefix(journalOut.Journal, "## Journal Entry - "))
	assert.Contains(t, journalOut.Journal, "- User: Hello\n- AI: contacting AI failed")
}

func TestStructuredPolicyReturnsBadGateway(t *testing.T) {
	resp := do(t, newTestRouter(t, config.PolicyStructured), http.MethodPost, "/chat", `{"message":"Hello"}`)

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), `"kind":"transport"`)
}

func TestCORSHeaders(t *testing.T) {
	r := newTestRouter(t, config.PolicyText)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://lumi.example")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	resp := do(t, newTestRouter(t, config.PolicyText), http.MethodGet, "/api/stream/abc", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
