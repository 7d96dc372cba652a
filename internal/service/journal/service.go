package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	formatter "github.com/zhouzirui/lumi/backend/internal/analysis/journal"
	"github.com/zhouzirui/lumi/backend/internal/model/chat"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

const (
	NotFoundMessage   = "No history found for this session."
	EmptyMessage      = "Your journal is empty. Chat with Lumi first, then come back to reflect."
	AttributionFooter = "\n\n---\n_Written with Lumi, your reflection companion._"
)

// Detection selects how a failed AI summary is recognised.
type Detection string

const (
	// DetectionLexical flags any displayed text containing a failure marker.
	DetectionLexical Detection = "lexical"
	// DetectionTyped trusts the completion result's failure kind.
	DetectionTyped Detection = "typed"
)

// DefaultFailureMarkers match every failure text produced by the completion client.
var DefaultFailureMarkers = []string{"error", "contacting ai failed", "unable to parse ai response"}

// Source tells which branch produced a journal.
type Source string

const (
	SourceNotFound Source = "not_found"
	SourceEmpty    Source = "empty"
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Entry is the outcome of a journal request.
type Entry struct {
	Journal string
	Source  Source
}

// TranscriptLoader is the read side of the session store.
type TranscriptLoader interface {
	LoadTranscript(ctx context.Context, sessionID string) (chat.Transcript, error)
}

// Config controls the journal strategy.
type Config struct {
	// Detection defaults to DetectionLexical.
	Detection      Detection
	FailureMarkers []string
	Persona        persona.Persona
	Now            func() time.Time
}

// Service produces journals: an AI summary when the model answers, the
// deterministic markdown rendering otherwise.
type Service struct {
	sessions  TranscriptLoader
	completer ai.Completer
	persona   persona.Persona
	failed    func(ai.Result) bool
	format    func(transcript string, date time.Time) string
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires the strategy. A zero Config uses lexical detection with the default markers.
func NewService(sessions TranscriptLoader, completer ai.Completer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	var failed func(ai.Result) bool
	if cfg.Detection == DetectionTyped {
		failed = typedFailure
	} else {
		markers := cfg.FailureMarkers
		if len(markers) == 0 {
			markers = DefaultFailureMarkers
		}
		failed = lexicalFailure(markers)
	}

	return &Service{
		sessions:  sessions,
		completer: completer,
		persona:   cfg.Persona,
		failed:    failed,
		format:    formatter.Format,
		now:       now,
		logger:    logger,
	}
}

// Generate walks NoSession -> EmptyHistory -> HasHistory -> {AI | Fallback}.
func (s *Service) Generate(ctx context.Context, sessionID string) Entry {
	transcript, err := s.sessions.LoadTranscript(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, chatservice.ErrSessionNotFound) {
			s.logger.Error("load transcript failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return Entry{Journal: NotFoundMessage, Source: SourceNotFound}
	}

	text := transcript.String()
	if strings.TrimSpace(text) == "" {
		return Entry{Journal: EmptyMessage, Source: SourceEmpty}
	}

	result := ai.SummarizeConversation(ctx, s.completer, text, s.persona)
	if s.failed(result) {
		s.logger.Warn("AI journal unavailable, using formatted transcript",
			zap.String("session_id", sessionID),
			zap.String("failure", string(result.Failure)),
			zap.String("reason", result.Display()))
		return Entry{Journal: s.format(text, s.now()), Source: SourceFallback}
	}

	s.logger.Info("AI journal generated", zap.String("session_id", sessionID), zap.Int("length", len(result.Content)))
	return Entry{Journal: result.Content + AttributionFooter, Source: SourceAI}
}

// lexicalFailure inspects only the displayed text, so a real journal that
// mentions a marker word is treated as a failure too.
func lexicalFailure(markers []string) func(ai.Result) bool {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}

	return func(r ai.Result) bool {
		text := strings.ToLower(r.Display())
		for _, m := range lowered {
			if strings.Contains(text, m) {
				return true
			}
		}
		return false
	}
}

func typedFailure(r ai.Result) bool {
	return !r.OK()
}
