package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseSize = 5 * 1024 * 1024

// GroqConfig configures the OpenAI-compatible chat completions client.
type GroqConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GroqClient calls an OpenAI-compatible /chat/completions endpoint.
type GroqClient struct {
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// NewGroqClient creates a client; a nil HTTPClient gets a logging transport.
func NewGroqClient(cfg GroqConfig, logger *zap.Logger) *GroqClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: newLoggingTransport(http.DefaultTransport, logger)}
	}

	return &GroqClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		timeout:  timeout,
		client:   httpClient,
		logger:   logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the persona and prompt and extracts choices[0].message.content.
func (c *GroqClient) Complete(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return transportFailure(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return transportFailure(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyTransportError(err, c.timeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classifyTransportError(err, c.timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("completion API returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		detail := string(body)
		if len(bytes.TrimSpace(body)) == 0 {
			detail = http.StatusText(resp.StatusCode)
		}
		return statusFailure(fmt.Sprintf("%d %s", resp.StatusCode, detail))
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.logger.Warn("completion response is not JSON", zap.Error(err))
		return parseFailure()
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil || strings.TrimSpace(*out.Choices[0].Message.Content) == "" {
		c.logger.Warn("completion response has no content", zap.ByteString("body", body))
		return parseFailure()
	}

	c.logger.Debug("completion received", zap.Int("length", len(*out.Choices[0].Message.Content)))
	return Success(*out.Choices[0].Message.Content)
}
