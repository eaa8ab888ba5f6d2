// Package config loads the user's loop configuration from a YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Avacaato/loop-orchestration/internal/llm"
)

const (
	dirName  = ".loop-orchestration"
	fileName = "config.yaml"
)

// Config holds the user's persistent configuration.
type Config struct {
	Provider           string        `yaml:"provider" validate:"required,oneof=ollama openai anthropic"`
	Model              string        `yaml:"model" validate:"required"`
	BaseURL            string        `yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey             string        `yaml:"api_key,omitempty"`
	MaxIterations      int           `yaml:"max_iterations" validate:"gt=0"`
	SessionDir         string        `yaml:"session_dir" validate:"required"`
	JournalPath        string        `yaml:"journal_path,omitempty"` // empty disables the journal
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"gt=0"`
	CommandTimeout     time.Duration `yaml:"command_timeout" validate:"gte=0"`
	VerifyCommand      string        `yaml:"verify_command,omitempty"`
	ImplicitCompletion bool          `yaml:"implicit_completion"`
	MinConfidence      float64       `yaml:"min_confidence" validate:"gte=0,lte=1"`
	LogLevel           string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	Retry              RetryConfig   `yaml:"retry"`
}

// RetryConfig controls how transport failures are retried.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" validate:"gtefield=InitialDelay"`
}

// Policy converts the retry settings to an llm.RetryPolicy.
func (r RetryConfig) Policy() llm.RetryPolicy {
	p := llm.DefaultRetryPolicy()
	p.MaxRetries = r.MaxRetries
	if r.InitialDelay > 0 {
		p.InitialDelay = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		p.MaxDelay = r.MaxDelay
	}
	return p
}

// Default returns the configuration written on first run. baseDir is the
// directory holding config.yaml.
func Default(baseDir string) Config {
	return Config{
		Provider:           "ollama",
		Model:              "llama3.2",
		BaseURL:            "http://localhost:11434",
		MaxIterations:      50,
		SessionDir:         filepath.Join(baseDir, "sessions"),
		JournalPath:        filepath.Join(baseDir, "journal.db"),
		RequestTimeout:     300 * time.Second,
		CommandTimeout:     60 * time.Second,
		ImplicitCompletion: true,
		MinConfidence:      0.7,
		LogLevel:           "info",
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
	}
}

// ValidationError lists every invalid field.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its field constraints.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Problems = append(ve.Problems, describe(fe))
	}
	return ve
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", field, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL (got %q)", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
	getenv    func(string) string
}

// NewManager creates a manager rooted at ~/.loop-orchestration.
func NewManager() (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home dir: %w", err)
	}
	return NewManagerAt(filepath.Join(home, dirName)), nil
}

// NewManagerAt creates a manager rooted at dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir, getenv: os.Getenv}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the absolute path to config.yaml.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, fileName)
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// Load reads the configuration, writing the defaults first if no file
// exists yet. Environment overrides are applied before validation.
func (m *Manager) Load() (*Config, error) {
	cfg := Default(m.configDir)

	if !m.Exists() {
		if err := m.Save(&cfg); err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(m.GetConfigPath())
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}

	if err := m.applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.SessionDir = expandHome(cfg.SessionDir)
	cfg.JournalPath = expandHome(cfg.JournalPath)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration with owner-only permissions, since it
// may hold an API key.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.GetConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (m *Manager) applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"LOOP_PROVIDER":       &cfg.Provider,
		"LOOP_MODEL":          &cfg.Model,
		"LOOP_BASE_URL":       &cfg.BaseURL,
		"LOOP_API_KEY":        &cfg.APIKey,
		"LOOP_SESSION_DIR":    &cfg.SessionDir,
		"LOOP_VERIFY_COMMAND": &cfg.VerifyCommand,
		"LOOP_LOG_LEVEL":      &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v := m.getenv(key); v != "" {
			*dst = v
		}
	}

	if v := m.getenv("LOOP_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LOOP_MAX_ITERATIONS %q: %w", v, err)
		}
		cfg.MaxIterations = n
	}
	if v := m.getenv("LOOP_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LOOP_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
