package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/handler"
	"github.com/zhouzirui/lumi/backend/internal/logger"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	"github.com/zhouzirui/lumi/backend/internal/service/chat"
	"github.com/zhouzirui/lumi/backend/internal/service/journal"
	"github.com/zhouzirui/lumi/backend/internal/service/relay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if envErr != nil {
		zl.Info("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	personas, err := buildPersonas(cfg)
	if err != nil {
		zl.Fatal("failed to load personas", zap.Error(err))
	}
	personaStore := persona.NewMemoryStore(personas)

	companion, ok := personaStore.FindByID(persona.CompanionID)
	if !ok {
		zl.Fatal("companion persona missing", zap.String("id", persona.CompanionID))
	}
	journalPersona, ok := personaStore.FindByID(persona.JournalID)
	if !ok {
		zl.Fatal("journal persona missing", zap.String("id", persona.JournalID))
	}

	completer, err := ai.NewCompleter(ctx, cfg.AI, zl.Named("ai"))
	if err != nil {
		zl.Fatal("failed to initialize AI client", zap.String("provider", cfg.AI.Provider), zap.Error(err))
	}
	zl.Info("AI client initialized",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
		zap.Duration("timeout", cfg.AI.Timeout))

	sessions := chat.NewService(zl.Named("sessions"))
	relaySvc := relay.New(sessions, completer, companion, zl.Named("relay"))
	journals := journal.NewService(sessions, completer, journal.Config{
		Detection:      journal.Detection(cfg.Journal.FailureDetection),
		FailureMarkers: cfg.Journal.FailureMarkers,
		Persona:        journalPersona,
	}, zl.Named("journal"))

	router := handler.NewRouter(cfg.HTTP, handler.Services{
		Personas: personaStore,
		Sessions: sessions,
		Relay:    relaySvc,
		Journals: journals,
	}, zl.Named("http"))

	startServer(ctx, cfg.Server, router, zl)
}

// buildPersonas merges the built-in personas with the persona file and the
// numeric overrides from the environment.
func buildPersonas(cfg *config.Config) ([]persona.Persona, error) {
	personas := persona.Seed()

	if cfg.PersonaFile != "" {
		overrides, err := persona.LoadFile(cfg.PersonaFile)
		if err != nil {
			return nil, err
		}
		personas = persona.Merge(personas, overrides)
	}

	for i := range personas {
		p := &personas[i]
		if cfg.AI.Temperature != nil {
			p.Temperature = *cfg.AI.Temperature
		}
		switch p.ID {
		case persona.CompanionID:
			if cfg.AI.MaxTokens != nil {
				p.MaxTokens = *cfg.AI.MaxTokens
			}
		case persona.JournalID:
			if cfg.AI.JournalMaxTokens != nil {
				p.MaxTokens = *cfg.AI.JournalMaxTokens
			}
		}
		if p.MaxTokens <= 0 {
			return nil, fmt.Errorf("persona %s: max tokens must be positive", p.ID)
		}
	}
	return personas, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, zl *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zl.Info("Lumi backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
	zl.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
