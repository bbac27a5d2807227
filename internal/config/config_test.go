package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Collection)
	assert.Empty(t, cfg.TrackedIDs)
	assert.Zero(t, cfg.CommitInterval)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Contains(t, cfg.SpannerDB, "databases/dirtycheck-db")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DIRTYCHECK_COLLECTION", "users")
	t.Setenv("DIRTYCHECK_TRACKED_IDS", "1,2,3")
	t.Setenv("DIRTYCHECK_COMMIT_INTERVAL", "30s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "users", cfg.Collection)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.TrackedIDs)
	assert.Equal(t, 30*time.Second, cfg.CommitInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadInvalid(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("DIRTYCHECK_COMMIT_INTERVAL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative interval", func(t *testing.T) {
		t.Setenv("DIRTYCHECK_COMMIT_INTERVAL", "-1s")
		_, err := Load()
		assert.Error(t, err)
	})
}
