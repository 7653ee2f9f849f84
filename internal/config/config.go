// Package config holds all voxclone configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxclone/internal/voice"
)

// Config holds all voxclone configuration.
type Config struct {
	// Provider configures the MiniMax facade.
	Provider ProviderConfig `yaml:"provider"`

	// Browser configures the automation session.
	Browser BrowserConfig `yaml:"browser"`

	// Batch configures batch processing.
	Batch BatchConfig `yaml:"batch"`

	// Store configures run history persistence.
	Store StoreConfig `yaml:"store"`

	// Logging configures the categorized file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// ProviderConfig configures the voice-cloning site driver.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	GoogleEmail    string `yaml:"google_email"`
	GooglePassword string `yaml:"google_password"`
	Language       string `yaml:"language"`

	// Generation settings
	MaxWaitTime       string `yaml:"max_wait_time"`       // overall generation bound
	Timeout           string `yaml:"timeout"`             // per element wait
	DownloadTimeout   string `yaml:"download_timeout"`    // audio download bound
	GenerateRetries   int    `yaml:"generate_retries"`    // generate button click attempts
	GenerateRetryWait string `yaml:"generate_retry_wait"` // wait per click attempt

	// Audio metadata
	SampleRate     int     `yaml:"sample_rate"`
	CharsPerSecond float64 `yaml:"chars_per_second"`
	MinDuration    float64 `yaml:"min_duration"`
	MaxDuration    float64 `yaml:"max_duration"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless            bool     `yaml:"headless"`
	DebuggerURL         string   `yaml:"debugger_url"`
	Launch              []string `yaml:"launch"`
	ViewportWidth       int      `yaml:"viewport_width"`
	ViewportHeight      int      `yaml:"viewport_height"`
	NavigationTimeoutMs int      `yaml:"navigation_timeout_ms"`
	SessionStore        string   `yaml:"session_store"`
	ScreenshotDir       string   `yaml:"screenshot_dir"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Enabled      bool   `yaml:"batch_processing"`
	MaxBatchSize int    `yaml:"max_batch_size"`
	Delay        string `yaml:"batch_delay"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:           "https://www.minimax.io/audio/voices-cloning",
			Language:          "Vietnamese",
			MaxWaitTime:       "300s",
			Timeout:           "30s",
			DownloadTimeout:   "120s",
			GenerateRetries:   3,
			GenerateRetryWait: "20s",
			SampleRate:        22050,
			CharsPerSecond:    12,
			MinDuration:       0.5,
			MaxDuration:       10.0,
		},
		Browser: BrowserConfig{
			Headless:            false,
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 30000,
			SessionStore:        filepath.Join(".voxclone", "browser", "session.json"),
			ScreenshotDir:       filepath.Join(".voxclone", "screenshots"),
		},
		Batch: BatchConfig{
			Enabled:      true,
			MaxBatchSize: 10,
			Delay:        "2s",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".voxclone", "voxclone.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if email := os.Getenv("MINIMAX_GOOGLE_EMAIL"); email != "" {
		c.Provider.GoogleEmail = email
	}
	if password := os.Getenv("MINIMAX_GOOGLE_PASSWORD"); password != "" {
		c.Provider.GooglePassword = password
	}
	if path := os.Getenv("VOXCLONE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if v := os.Getenv("VOXCLONE_HEADLESS"); v != "" {
		c.Browser.Headless = strings.EqualFold(v, "1") || strings.EqualFold(v, "true")
	}
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	if c.Provider.GoogleEmail == "" || c.Provider.GooglePassword == "" {
		return fmt.Errorf("%w: google_email and google_password are required (set MINIMAX_GOOGLE_EMAIL / MINIMAX_GOOGLE_PASSWORD)", voice.ErrConfiguration)
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// MaxWaitTime returns the overall generation bound.
func (c *Config) MaxWaitTime() time.Duration {
	return parseDuration(c.Provider.MaxWaitTime, 300*time.Second)
}

// ElementTimeout returns the per-element wait bound.
func (c *Config) ElementTimeout() time.Duration {
	return parseDuration(c.Provider.Timeout, 30*time.Second)
}

// DownloadTimeout returns the audio download bound.
func (c *Config) DownloadTimeout() time.Duration {
	return parseDuration(c.Provider.DownloadTimeout, 120*time.Second)
}

// GenerateRetryWait returns the wait per generate click attempt.
func (c *Config) GenerateRetryWait() time.Duration {
	return parseDuration(c.Provider.GenerateRetryWait, 20*time.Second)
}

// BatchDelay returns the pause inserted between batch items.
func (c *Config) BatchDelay() time.Duration {
	return parseDuration(c.Batch.Delay, 2*time.Second)
}

// DefaultPath returns the config path under the workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".voxclone", "config.yaml")
}
