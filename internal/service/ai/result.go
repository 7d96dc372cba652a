package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
)

// FailureKind classifies why a completion produced no text.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransport FailureKind = "transport"
	FailureTimeout   FailureKind = "timeout"
	FailureStatus    FailureKind = "status"
	FailureParse     FailureKind = "parse"
)

// ParseFailureReason is the displayable text of a FailureParse result.
const ParseFailureReason = "unable to parse AI response"

// Completer sends one prompt to a language model. Implementations never
// return Go errors: every failure is folded into the Result.
type Completer interface {
	Complete(ctx context.Context, req Request) Result
}

// Request is a single-turn completion: a system persona and one user message.
// Prior turns are not sent.
type Request struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
}

// NewRequest builds a request from a persona's instruction and budget.
func NewRequest(p persona.Persona, prompt string) Request {
	return Request{
		SystemPrompt: p.SystemPrompt,
		Prompt:       prompt,
		MaxTokens:    p.MaxTokens,
		Temperature:  p.Temperature,
	}
}

// Result is either completion text or a failure with a human-readable reason.
type Result struct {
	Content string
	Failure FailureKind
	Reason  string
}

// Success wraps extracted completion text.
func Success(content string) Result {
	return Result{Content: content}
}

// OK reports whether the completion produced text.
func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// Display returns the text shown to the user: the content on success,
// otherwise the failure reason.
func (r Result) Display() string {
	if r.OK() {
		return r.Content
	}
	return r.Reason
}

func transportFailure(err error) Result {
	return Result{Failure: FailureTransport, Reason: fmt.Sprintf("contacting AI failed: %v", err)}
}

func timeoutFailure(after time.Duration) Result {
	return Result{Failure: FailureTimeout, Reason: fmt.Sprintf("contacting AI failed: request timed out after %s", after)}
}

func statusFailure(detail string) Result {
	return Result{Failure: FailureStatus, Reason: "API error: " + strings.TrimSpace(detail)}
}

func parseFailure() Result {
	return Result{Failure: FailureParse, Reason: ParseFailureReason}
}

// classifyTransportError maps an error from sending the request.
func classifyTransportError(err error, timeout time.Duration) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutFailure(timeout)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutFailure(timeout)
	}
	return transportFailure(err)
}

// classifySDKError maps an error returned by a provider SDK, where anything
// that is not a network problem came back from the API itself.
func classifySDKError(err error, timeout time.Duration) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutFailure(timeout)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return timeoutFailure(timeout)
		}
		return transportFailure(err)
	}
	return statusFailure(err.Error())
}
