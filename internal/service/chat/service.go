package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Service is the in-memory registry of live sessions. One mutex serializes
// every operation; callers must not hold results across a completion call
// expecting them to stay current.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*chat.Session
	logger   *zap.Logger
	now      func() time.Time
}

// NewService bootstraps an empty store. Sessions live for the process lifetime.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: make(map[string]*chat.Session),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession registers a new session with an empty transcript.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.createLocked()
	if err != nil {
		return chat.Session{}, err
	}
	return snapshot(session), nil
}

// ResolveSession returns the session registered under id, or creates a new
// one when id is empty or unknown.
func (s *Service) ResolveSession(_ context.Context, id string) (chat.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if session, ok := s.sessions[id]; ok {
			return snapshot(session), false, nil
		}
		s.logger.Info("unknown session id, starting a new session", zap.String("requested_id", id))
	}

	session, err := s.createLocked()
	if err != nil {
		return chat.Session{}, false, err
	}
	return snapshot(session), true, nil
}

// GetSession retrieves a copy of the session.
func (s *Service) GetSession(_ context.Context, id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return snapshot(session), nil
}

// LoadTranscript returns a copy of the session's turns.
func (s *Service) LoadTranscript(_ context.Context, id string) (chat.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Turns.Clone(), nil
}

// AppendTurn records one exchange. Appending to an unknown session is a
// no-op; the return value reports whether the turn was stored.
func (s *Service) AppendTurn(_ context.Context, id, userMsg, aiMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		s.logger.Warn("dropping turn for unknown session", zap.String("session_id", id))
		return false
	}

	now := s.now()
	session.Turns = append(session.Turns, chat.Turn{User: userMsg, AI: aiMsg, CreatedAt: now})
	session.UpdatedAt = now
	return true
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) createLocked() (*chat.Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	// Never hand out a live id twice.
	if _, exists := s.sessions[id.String()]; exists {
		return nil, fmt.Errorf("generate session id: duplicate %s", id)
	}

	now := s.now()
	session := &chat.Session{
		ID:        id.String(),
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     make(chat.Transcript, 0, 16),
	}
	s.sessions[session.ID] = session

	s.logger.Debug("session created", zap.String("session_id", session.ID))
	return session, nil
}

func snapshot(session *chat.Session) chat.Session {
	out := *session
	out.Turns = session.Turns.Clone()
	return out
}
