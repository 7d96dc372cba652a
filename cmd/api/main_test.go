package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
)

func findPersona(t *testing.T, items []persona.Persona, id string) persona.Persona {
	t.Helper()
	p, ok := persona.NewMemoryStore(items).FindByID(id)
	require.True(t, ok, "persona %s", id)
	return p
}

func TestBuildPersonasDefaults(t *testing.T) {
	items, err := buildPersonas(&config.Config{})
	require.NoError(t, err)

	companion := findPersona(t, items, persona.CompanionID)
	assert.Equal(t, 1024, companion.MaxTokens)
	assert.InDelta(t, 0.7, companion.Temperature, 1e-9)
}

func TestBuildPersonasOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personas:\n  - id: companion\n    name: Nova\n"), 0o600))

	temperature := 0.3
	maxTokens := 256
	journalTokens := 4096
	items, err := buildPersonas(&config.Config{
		PersonaFile: path,
		AI: config.AIConfig{
			Temperature:      &temperature,
			MaxTokens:        &maxTokens,
			JournalMaxTokens: &journalTokens,
		},
	})
	require.NoError(t, err)

	companion := findPersona(t, items, persona.CompanionID)
	assert.Equal(t, "Nova", companion.Name)
	assert.Equal(t, 256, companion.MaxTokens)
	assert.InDelta(t, 0.3, companion.Temperature, 1e-9)

	journal := findPersona(t, items, persona.JournalID)
	assert.Equal(t, 4096, journal.MaxTokens)
}

func TestBuildPersonasRejectsNonPositiveTokens(t *testing.T) {
	zero := 0
	_, err := buildPersonas(&config.Config{AI: config.AIConfig{MaxTokens: &zero}})
	assert.Error(t, err)
}

func TestBuildPersonasMissingFile(t *testing.T) {
	_, err := buildPersonas(&config.Config{PersonaFile: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
