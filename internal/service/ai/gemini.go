package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini API client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL and HTTPClient are optional; the SDK defaults are used when empty.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient runs completions through the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient creates a Gemini API backed client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model, timeout: timeout, logger: logger}, nil
}

// Complete sends the persona as system instruction and the prompt as content.
func (c *GeminiClient) Complete(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}},
		Temperature:       genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		c.logger.Warn("gemini completion failed", zap.Error(err))
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return statusFailure(fmt.Sprintf("%d %s", apiErr.Code, apiErr.Message))
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutFailure(c.timeout)
		}
		return classifyTransportError(err, c.timeout)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return parseFailure()
	}

	// Blocked candidates carry a finish reason but no text parts.
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("gemini returned no text", zap.String("finish_reason", string(resp.Candidates[0].FinishReason)))
		return parseFailure()
	}

	c.logger.Debug("gemini completion received", zap.Int("length", len(text)))
	return Success(text)
}
