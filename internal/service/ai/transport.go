package ai

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxBodyLog = 1024

// loggingRoundTripper logs every outbound completion call. Request bodies are
// logged at debug level only; headers are never logged.
type loggingRoundTripper struct {
	inner  http.RoundTripper
	logger *zap.Logger
}

func newLoggingTransport(inner http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggingRoundTripper{inner: inner, logger: logger}
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var bodySnippet string
	if req.Body != nil && l.logger.Core().Enabled(zap.DebugLevel) {
		if bodyBytes, err := io.ReadAll(req.Body); err == nil {
			if len(bodyBytes) > maxBodyLog {
				bodySnippet = string(bodyBytes[:maxBodyLog])
			} else {
				bodySnippet = string(bodyBytes)
			}
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	resp, err := l.inner.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if bodySnippet != "" {
		fields = append(fields, zap.String("body", bodySnippet))
	}

	if err != nil {
		l.logger.Error("completion request failed", append(fields, zap.Error(err))...)
		return nil, err
	}

	l.logger.Debug("completion request finished", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
