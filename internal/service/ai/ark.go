package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// ArkClient runs completions through an eino prompt -> chat model chain.
type ArkClient struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
	logger  *zap.Logger
}

// NewArkClient compiles the single-turn chain around chatModel.
func NewArkClient(ctx context.Context, chatModel model.ChatModel, timeout time.Duration, logger *zap.Logger) (*ArkClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &ArkClient{chain: runnable, timeout: timeout, logger: logger}, nil
}

// Complete invokes the chain with per-request sampling options.
func (c *ArkClient) Complete(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := map[string]any{
		"system": req.SystemPrompt,
		"query":  req.Prompt,
	}

	opts := []model.Option{model.WithTemperature(float32(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	msg, err := c.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		c.logger.Warn("ark completion failed", zap.Error(err))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutFailure(c.timeout)
		}
		return classifySDKError(err, c.timeout)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return parseFailure()
	}

	c.logger.Debug("ark completion received", zap.Int("length", len(msg.Content)))
	return Success(msg.Content)
}
