package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644))
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  Type
	}{
		{"go manifest", []string{"go.mod"}, TypeGo},
		{"node manifest", []string{"package.json", "main.go"}, TypeNode},
		{"python requirements", []string{"requirements.txt"}, TypePython},
		{"cargo", []string{"Cargo.toml"}, TypeRust},
		{"extension fallback", []string{"a.py", "b.py", "c.py", "d.go"}, TypePython},
		{"too few files", []string{"a.rs", "b.rs"}, TypeUnknown},
		{"empty", nil, TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)
			assert.Equal(t, tt.want, DetectType(dir))
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, ConfigExists(dir))

	require.NoError(t, SaveConfig(dir, &Config{VerifyCommand: "make check"}))
	assert.True(t, ConfigExists(dir))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "make check", cfg.VerifyCommand)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, Dir), 0755))
	require.NoError(t, os.WriteFile(configPath(dir), []byte("verify_command: [unclosed"), 0644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	rules, err := LoadRules(dir)
	require.NoError(t, err)
	assert.Empty(t, rules)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, Dir), 0755))
	require.NoError(t, os.WriteFile(rulesPath(dir), []byte("never touch vendor/"), 0644))
	rules, err = LoadRules(dir)
	require.NoError(t, err)
	assert.Equal(t, "never touch vendor/", rules)
}

func TestVerifyCommandPrecedence(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "go.mod")

	cmd, err := VerifyCommand(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "go test ./...", cmd)

	cmd, err = VerifyCommand(dir, "make test")
	require.NoError(t, err)
	assert.Equal(t, "make test", cmd)

	require.NoError(t, SaveConfig(dir, &Config{VerifyCommand: "make check"}))
	cmd, err = VerifyCommand(dir, "make test")
	require.NoError(t, err)
	assert.Equal(t, "make check", cmd)
}
