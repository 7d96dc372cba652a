package relay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	SessionID string
	Created   bool
	Result    ai.Result
}

// Response is the text returned to the user for this turn.
func (t TurnResult) Response() string {
	return t.Result.Display()
}

// Service runs chat turns against the session store and a completer.
type Service struct {
	sessions  *chatservice.Service
	completer ai.Completer
	persona   persona.Persona
	logger    *zap.Logger
}

// New creates a relay that answers with the given persona.
func New(sessions *chatservice.Service, completer ai.Completer, p persona.Persona, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sessions: sessions, completer: completer, persona: p, logger: logger}
}

// Turn resolves the session, calls the model without holding the store
// lock, then records the turn. Failed completions are recorded too, with the
// failure text as the reply. Concurrent turns on one session are appended in
// the order their completions finish.
func (s *Service) Turn(ctx context.Context, sessionID, message string) (TurnResult, error) {
	session, created, err := s.sessions.ResolveSession(ctx, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("resolve session: %w", err)
	}

	result := s.completer.Complete(ctx, ai.NewRequest(s.persona, message))
	if !result.OK() {
		s.logger.Warn("completion failed",
			zap.String("session_id", session.ID),
			zap.String("failure", string(result.Failure)),
			zap.String("reason", result.Reason))
	}

	if !s.sessions.AppendTurn(ctx, session.ID, message, result.Display()) {
		s.logger.Warn("turn not recorded", zap.String("session_id", session.ID))
	}

	return TurnResult{SessionID: session.ID, Created: created, Result: result}, nil
}
