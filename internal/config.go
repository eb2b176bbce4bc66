package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Editor EditorConfig      `yaml:"editor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Editor.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the search database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EditorConfig tunes the editing session's coalescing behavior.
type EditorConfig struct {
	// MaxHistory bounds the per-note undo stack.
	MaxHistory int `yaml:"max_history"`
	// CommitQuietMS is the typing pause (milliseconds) before a pending
	// edit is committed to the undo stack.
	CommitQuietMS int `yaml:"commit_quiet_ms"`
	// SaveQuietMS is the pause before the open note is autosaved.
	SaveQuietMS int `yaml:"save_quiet_ms"`
}

// CommitQuiet returns the commit quiet period as a duration.
func (c *EditorConfig) CommitQuiet() time.Duration {
	return time.Duration(c.CommitQuietMS) * time.Millisecond
}

// SaveQuiet returns the autosave quiet period as a duration.
func (c *EditorConfig) SaveQuiet() time.Duration {
	return time.Duration(c.SaveQuietMS) * time.Millisecond
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxHistory, validation.Min(2)),
		validation.Field(&c.CommitQuietMS, validation.Min(0)),
		validation.Field(&c.SaveQuietMS, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./skald.db",
		},
		Editor: EditorConfig{
			MaxHistory:    100,
			CommitQuietMS: 600,
			SaveQuietMS:   2000,
		},
	}
}
