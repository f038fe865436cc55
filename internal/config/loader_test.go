package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaultsOnly(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "ebook-studio-api", cfg.App.Name)
	assert.Equal(t, 12, cfg.Workflow.MaxChapters)
	assert.Equal(t, "https://picsum.photos/600/800", cfg.Workflow.FallbackCoverURL)
	assert.Equal(t, time.Second, cfg.Workflow.CoverDisplayDelay)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 800 * time.Millisecond, 800 * time.Millisecond}, cfg.Workflow.ReviewDelays)
	assert.Equal(t, 2*time.Minute, cfg.Workflow.CallTimeout)
	assert.Equal(t, "3:4", cfg.Image.AspectRatio)
	require.Len(t, cfg.Auth.SeedUsers, 2)
	assert.Equal(t, "admin-automation@ebook.com", cfg.Auth.SeedUsers[0].Email)
	assert.Equal(t, "admin", cfg.Auth.SeedUsers[0].Role)
	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Contains(t, cfg.LLM.Providers, "gemini")
}

func TestLoadFromExpandsEnvAndMergesEnvFile(t *testing.T) {
	dir := t.TempDir()
	base := `
app:
  name: ${EBOOK_TEST_APP_NAME:studio}
workflow:
  max_chapters: 12
  language: ${EBOOK_TEST_LANG:English}
cache:
  redis:
    host: redis.internal
`
	override := `
workflow:
  language: French
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(override), 0o600))

	t.Setenv("APP_ENV", "staging")
	t.Setenv("EBOOK_TEST_APP_NAME", "ebook-studio-staging")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "ebook-studio-staging", cfg.App.Name)
	assert.Equal(t, "French", cfg.Workflow.Language)
	assert.Equal(t, "redis.internal", cfg.Cache.Redis.Host)
	assert.Equal(t, 6379, cfg.Cache.Redis.Port)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EBOOK_TEST_SET", "value")
	assert.Equal(t, "a=value", expandEnv("a=${EBOOK_TEST_SET}"))
	assert.Equal(t, "b=fallback", expandEnv("b=${EBOOK_TEST_UNSET_VAR:fallback}"))
	assert.Equal(t, "c=${EBOOK_TEST_UNSET_VAR}", expandEnv("c=${EBOOK_TEST_UNSET_VAR}"))
}
