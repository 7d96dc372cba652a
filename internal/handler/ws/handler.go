package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	journalservice "github.com/zhouzirui/lumi/backend/internal/service/journal"
	"github.com/zhouzirui/lumi/backend/internal/service/relay"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Frame types.
const (
	TypeChat    = "chat"
	TypeJournal = "journal"
	TypeResult  = "result"
	TypeError   = "error"
)

// Handler carries chat turns and journal requests over a WebSocket.
type Handler struct {
	relay    *relay.Service
	journals *journalservice.Service
	policy   utils.ResponsePolicy
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler. Browser upgrades are accepted only from
// allowedOrigins; "*" accepts any origin.
func New(relaySvc *relay.Service, journals *journalservice.Service, policy utils.ResponsePolicy, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		relay:    relaySvc,
		journals: journals,
		policy:   policy,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// originChecker allows requests without an Origin header (non-browser clients).
func originChecker(allowed []string) func(r *http.Request) bool {
	anyOrigin := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			anyOrigin = true
		}
		set[strings.ToLower(strings.TrimSuffix(o, "/"))] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || anyOrigin {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimSuffix(origin, "/"))]
		return ok
	}
}

// RegisterRoutes mounts the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage is the data of a chat frame.
type TextMessage struct {
	Text string `json:"text"`
}

// ChatResult is the data of a result frame answering a chat frame.
type ChatResult struct {
	Kind     string             `json:"kind"`
	Response string             `json:"response"`
	Error    *utils.ErrorDetail `json:"error,omitempty"`
}

// JournalResult is the data of a result frame answering a journal frame.
type JournalResult struct {
	Kind    string `json:"kind"`
	Journal string `json:"journal"`
	Source  string `json:"source"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connectionState remembers the session the connection is talking in.
type connectionState struct {
	sessionID string
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	state := &connectionState{sessionID: strings.TrimSpace(r.URL.Query().Get("session_id"))}
	h.logger.Info("websocket connected", zap.String("session_id", state.sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if id := strings.TrimSpace(msg.SessionID); id != "" {
			state.sessionID = id
		}

		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case TypeChat:
		h.handleChat(ctx, conn, state, msg.Data)
	case TypeJournal:
		h.handleJournal(ctx, conn, state)
	default:
		h.sendError(conn, state.sessionID, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleChat(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &text); err != nil {
			h.sendError(conn, state.sessionID, "invalid chat data")
			return
		}
	}
	if strings.TrimSpace(text.Text) == "" {
		h.sendError(conn, state.sessionID, "message is required")
		return
	}

	turn, err := h.relay.Turn(ctx, state.sessionID, text.Text)
	if err != nil {
		h.logger.Error("websocket chat turn failed", zap.Error(err))
		h.sendError(conn, state.sessionID, "failed to process message")
		return
	}
	state.sessionID = turn.SessionID

	_, detail := utils.Outcome(h.policy, string(turn.Result.Failure), turn.Result.Reason)
	h.send(conn, TypeResult, state.sessionID, ChatResult{
		Kind:     TypeChat,
		Response: turn.Response(),
		Error:    detail,
	})
}

func (h *Handler) handleJournal(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	entry := h.journals.Generate(ctx, state.sessionID)
	h.send(conn, TypeResult, state.sessionID, JournalResult{
		Kind:    TypeJournal,
		Journal: entry.Journal,
		Source:  string(entry.Source),
	})
}

func (h *Handler) send(conn *websocket.Conn, frameType, sessionID string, data interface{}) {
	msg := outgoingMessage{
		Type:      frameType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", zap.String("type", frameType), zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, sessionID, message string) {
	h.send(conn, TypeError, sessionID, map[string]string{"message": message})
}

// pingLoop keeps idle connections alive. WriteControl may run alongside WriteJSON.
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
