package relay

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

type echoCompleter struct {
	mu      sync.Mutex
	prompts []string
	fail    bool
}

func (e *echoCompleter) Complete(_ context.Context, req ai.Request) ai.Result {
	e.mu.Lock()
	e.prompts = append(e.prompts, req.Prompt)
	e.mu.Unlock()

	if e.fail {
		return ai.Result{Failure: ai.FailureTransport, Reason: "contacting AI failed: connection refused"}
	}
	return ai.Success("echo: " + req.Prompt)
}

// lockProbe fails the test if the store is locked while the completer runs.
type lockProbe struct {
	store *chatservice.Service
	t     *testing.T
}

func (p *lockProbe) Complete(ctx context.Context, req ai.Request) ai.Result {
	done := make(chan struct{})
	go func() {
		p.store.Count()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		p.t.Error("store lock held during completion")
	}
	return ai.Success("ok")
}

func companion(t *testing.T) persona.Persona {
	t.Helper()
	p, ok := persona.NewMemoryStore(persona.Seed()).FindByID(persona.CompanionID)
	require.True(t, ok)
	return p
}

func TestTurnCreatesSessionAndRecords(t *testing.T) {
	store := chatservice.NewService(nil)
	svc := New(store, &echoCompleter{}, companion(t), nil)
	ctx := context.Background()

	first, err := svc.Turn(ctx, "", "Hello")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "echo: Hello", first.Response())

	second, err := svc.Turn(ctx, first.SessionID, "How are you?")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.SessionID, second.SessionID)

	transcript, err := store.LoadTranscript(ctx, first.SessionID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "Hello", transcript[0].User)
	assert.Equal(t, "echo: Hello", transcript[0].AI)
	assert.Equal(t, "How are you?", transcript[1].User)
	assert.Equal(t, "echo: How are you?", transcript[1].AI)
}

func TestTurnUnknownSessionStartsFresh(t *testing.T) {
	store := chatservice.NewService(nil)
	svc := New(store, &echoCompleter{}, companion(t), nil)

	res, err := svc.Turn(context.Background(), "stale-id", "hi")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.NotEqual(t, "stale-id", res.SessionID)
}

func TestTurnRecordsFailureText(t *testing.T) {
	store := chatservice.NewService(nil)
	svc := New(store, &echoCompleter{fail: true}, companion(t), nil)
	ctx := context.Background()

	res, err := svc.Turn(ctx, "", "hi")
	require.NoError(t, err)
	assert.False(t, res.Result.OK())
	assert.True(t, strings.HasPrefix(res.Response(), "contacting AI failed"))

	transcript, err := store.LoadTranscript(ctx, res.SessionID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, res.Response(), transcript[0].AI)
}

func TestTurnDoesNotHoldLockDuringCompletion(t *testing.T) {
	store := chatservice.NewService(nil)
	svc := New(store, &lockProbe{store: store, t: t}, companion(t), nil)

	_, err := svc.Turn(context.Background(), "", "hi")
	require.NoError(t, err)
}

func TestTurnSendsOnlyCurrentMessage(t *testing.T) {
	store := chatservice.NewService(nil)
	echo := &echoCompleter{}
	svc := New(store, echo, companion(t), nil)
	ctx := context.Background()

	first, err := svc.Turn(ctx, "", "one")
	require.NoError(t, err)
	_, err = svc.Turn(ctx, first.SessionID, "two")
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, echo.prompts)
}
