package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/internal/platform/config"
)

func memoryTestConfig() *config.Config {
	return &config.Config{
		Cache:      config.Cache{Backend: "memory", TTL: time.Hour},
		Disposable: config.Disposable{ListURL: "https://example.test/disposable.txt"},
		Bulk:       config.Bulk{ChunkSize: 250, LiveLookupDelay: time.Second, Dispatcher: "inline"},
	}
}

// Only syntactically invalid addresses are used so the run never leaves the process.
func TestRun_WritesVerifiedCSV(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(input, []byte("Name,Email\nAda,not-an-email\nBob,bob@@example\n"), 0o600))

	err := run(context.Background(), input, &options{
		emailColumn: "email",
		offline:     true,
		logLevel:    "error",
	})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "contacts_verified.csv"))
	require.NoError(t, err)
	defer f.Close()
	lines, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.Equal(t, []string{"Name", "Email", "status", "score"}, lines[0][:4])
	assert.Equal(t, []string{"Ada", "not-an-email", "undeliverable", "0", "true"}, lines[1][:5])
	assert.Equal(t, []string{"Bob", "bob@@example", "undeliverable", "0", "true"}, lines[2][:5])
}

func TestRun_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(input, []byte("Name,Phone\nAda,555\n"), 0o600))

	err := run(context.Background(), input, &options{emailColumn: "email", offline: true, logLevel: "error"})

	assert.ErrorContains(t, err, `column "email" not found`)
}

func TestApplyOverrides(t *testing.T) {
	cfg := memoryTestConfig()
	cfg.Database.URL = "postgres://db"
	cfg.Bulk.Dispatcher = "kafka"

	applyOverrides(cfg, &options{chunkSize: 10, delay: 0, offline: true})

	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "inline", cfg.Bulk.Dispatcher)
	assert.Equal(t, 10, cfg.Bulk.ChunkSize)
	assert.Zero(t, cfg.Bulk.LiveLookupDelay)
	assert.Empty(t, cfg.Disposable.ListURL)
}
