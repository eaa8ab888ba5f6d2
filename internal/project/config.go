package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the per-project settings directory inside a project root.
	Dir = ".loop"
	// ConfigFile is the name of the project settings file.
	ConfigFile = "project.yaml"
	// RulesFile holds free-form instructions added to every skill prompt.
	RulesFile = "rules"
)

// Config holds per-project settings that take precedence over the user
// configuration.
type Config struct {
	VerifyCommand string `yaml:"verify_command,omitempty"`
}

func configPath(root string) string {
	return filepath.Join(root, Dir, ConfigFile)
}

func rulesPath(root string) string {
	return filepath.Join(root, Dir, RulesFile)
}

// ConfigExists checks if a project settings file exists.
func ConfigExists(root string) bool {
	_, err := os.Stat(configPath(root))
	return !os.IsNotExist(err)
}

// LoadConfig reads the project settings.
// Returns nil and no error if the file does not exist.
func LoadConfig(root string) (*Config, error) {
	data, err := os.ReadFile(configPath(root))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the project settings, creating the settings
// directory if needed.
func SaveConfig(root string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Join(root, Dir), 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal project config: %w", err)
	}
	if err := os.WriteFile(configPath(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}

// LoadRules reads the project rules file.
// Returns an empty string and no error if the file does not exist.
func LoadRules(root string) (string, error) {
	data, err := os.ReadFile(rulesPath(root))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rules file: %w", err)
	}
	return string(data), nil
}

// VerifyCommand picks the verification command for a project: the
// project setting, then fallback, then the detected type's test command.
func VerifyCommand(root, fallback string) (string, error) {
	cfg, err := LoadConfig(root)
	if err != nil {
		return "", err
	}
	if cfg != nil && cfg.VerifyCommand != "" {
		return cfg.VerifyCommand, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return TestCommand(DetectType(root)), nil
}
