package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, env map[string]string) *Manager {
	t.Helper()
	m := NewManagerAt(t.TempDir())
	m.getenv = func(k string) string { return env[k] }
	return m
}

func TestLoadCreatesDefaults(t *testing.T) {
	m := newTestManager(t, nil)
	require.False(t, m.Exists())

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.True(t, m.Exists())
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3.2", cfg.Model)
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout)
	assert.Equal(t, filepath.Join(m.Dir(), "sessions"), cfg.SessionDir)

	info, err := os.Stat(m.GetConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadReadsFile(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, os.MkdirAll(m.Dir(), 0o755))
	yml := `provider: openai
model: gpt-4o-mini
base_url: https://api.openai.com/v1
api_key: sk-test
max_iterations: 12
request_timeout: 45s
verify_command: go test ./...
retry:
  max_retries: 1
  initial_delay: 500ms
  max_delay: 2s
`
	require.NoError(t, os.WriteFile(m.GetConfigPath(), []byte(yml), 0o600))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 12, cfg.MaxIterations)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "go test ./...", cfg.VerifyCommand)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)

	p := cfg.Retry.Policy()
	assert.Equal(t, 1, p.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
}

func TestEnvOverrides(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"LOOP_MODEL":           "qwen2.5-coder",
		"LOOP_MAX_ITERATIONS":  "7",
		"LOOP_REQUEST_TIMEOUT": "90s",
	})
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder", cfg.Model)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)

	m = newTestManager(t, map[string]string{"LOOP_MAX_ITERATIONS": "lots"})
	_, err = m.Load()
	assert.ErrorContains(t, err, "LOOP_MAX_ITERATIONS")
}

func TestValidateRejectsNonPositiveIterations(t *testing.T) {
	for _, n := range []int{0, -3} {
		m := newTestManager(t, map[string]string{"LOOP_MAX_ITERATIONS": itoa(n)})
		_, err := m.Load()

		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "max_iterations=%d should be rejected, got %v", n, err)
		assert.Contains(t, ve.Error(), "MaxIterations must be greater than 0")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, Validate(&cfg))

	cfg.Provider = "gemini"
	cfg.BaseURL = "not a url"
	cfg.Model = ""
	err := Validate(&cfg)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
	assert.Contains(t, err.Error(), "Provider must be one of")
	assert.Contains(t, err.Error(), "BaseURL must be a URL")
	assert.Contains(t, err.Error(), "Model is required")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, os.MkdirAll(m.Dir(), 0o755))
	require.NoError(t, os.WriteFile(m.GetConfigPath(), []byte("provider: [ollama"), 0o600))

	_, err := m.Load()
	assert.ErrorContains(t, err, "failed to parse config yaml")
}

func itoa(n int) string {
	return fmt.Sprint(n)
}
