package chat_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

func TestCreateSessionStartsEmpty(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, transcript)
	assert.Equal(t, "", transcript.String())
}

func TestCreateSessionIDsAreUnique(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()

	const workers = 32
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := svc.CreateSession(ctx)
			assert.NoError(t, err)
			ids <- session.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, workers, svc.Count())
}

func TestAppendTurnKeepsOrder(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ok := svc.AppendTurn(ctx, session.ID, fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))
		require.True(t, ok)
	}

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 5)
	for i, turn := range transcript {
		assert.Equal(t, fmt.Sprintf("u%d", i), turn.User)
		assert.Equal(t, fmt.Sprintf("a%d", i), turn.AI)
	}
}

func TestAppendTurnUnknownSessionIsNoop(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	assert.False(t, svc.AppendTurn(ctx, "missing", "hi", "hello"))
	assert.Equal(t, 1, svc.Count())

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, transcript)

	_, err = svc.LoadTranscript(ctx, "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestLoadTranscriptReturnsCopy(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.True(t, svc.AppendTurn(ctx, session.ID, "hi", "hello"))

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	transcript[0].User = "tampered"

	again, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", again[0].User)
}

func TestResolveSession(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()

	created, isNew, err := svc.ResolveSession(ctx, "")
	require.NoError(t, err)
	assert.True(t, isNew)

	same, isNew, err := svc.ResolveSession(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, same.ID)

	fresh, isNew, err := svc.ResolveSession(ctx, "never-issued")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, "never-issued", fresh.ID)
	assert.Equal(t, 2, svc.Count())
}

func TestGetSession(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	svc := chat.NewService(nil)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.AppendTurn(ctx, session.ID, fmt.Sprintf("u%d", i), "a")
			_, _ = svc.LoadTranscript(ctx, session.ID)
		}(i)
	}
	wg.Wait()

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, transcript, writers)
}
