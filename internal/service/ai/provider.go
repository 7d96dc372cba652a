package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/config"
)

// NewCompleter builds the completion client for the configured provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		return NewGroqClient(GroqConfig{
			Endpoint: cfg.BaseURL,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		}, logger), nil
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewArkClient(ctx, chatModel, cfg.Timeout, logger)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
