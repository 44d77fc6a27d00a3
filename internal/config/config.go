// Package config holds user preferences and backend endpoints for brickstore.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds user preferences
type Config struct {
	BaseURL  string `json:"base_url"`  // backend API base URL
	Theme    string `json:"theme"`     // "light" or "dark"
	PageSize int    `json:"page_size"` // default rows per table page (10, 20 or 50)

	Logging LoggingConfig `json:"logging"`
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:  "http://localhost:5000",
		Theme:    "light",
		PageSize: 10,
	}
}

// ConfigDir returns the directory where config and the stored credential live
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".brickstore"), nil
}

// ConfigFile returns the full path to the config file
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk and applies environment overrides.
// A .env file in the working directory is honored the same way the backend
// honors its own.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path, err := ConfigFile()
	if err != nil {
		return applyEnv(cfg), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return applyEnv(cfg), nil
	}
	if err != nil {
		return applyEnv(cfg), err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), err
	}

	return applyEnv(cfg), nil
}

// applyEnv lets environment variables win over the config file.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("BRICKSTORE_API_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("BRICKSTORE_THEME"); v != "" {
		cfg.Theme = v
	}
	if os.Getenv("BRICKSTORE_DEBUG") == "1" {
		cfg.Logging.DebugMode = true
	}
	if cfg.PageSize != 10 && cfg.PageSize != 20 && cfg.PageSize != 50 {
		cfg.PageSize = 10
	}
	return cfg
}

// Save writes the configuration to disk
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
