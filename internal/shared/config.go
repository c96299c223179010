package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override file values.
const (
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
	EnvDeveloperToken = "APPLE_MUSIC_DEVELOPER_TOKEN"
	EnvDatabasePath   = "PLAYLIST_GEN_DB"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Generation  GenerationConfig  `toml:"generation"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	UI          UIConfig          `toml:"ui"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Anthropic  AnthropicConfig  `toml:"anthropic"`
	AppleMusic AppleMusicConfig `toml:"apple_music"`
}

// AnthropicConfig contains the suggestion generator credentials and model settings.
type AnthropicConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// AppleMusicConfig contains the catalog vendor developer credential and endpoint settings.
type AppleMusicConfig struct {
	DeveloperToken    string  `toml:"developer_token"`
	Storefront        string  `toml:"storefront"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// GenerationConfig controls the reconciliation loop.
type GenerationConfig struct {
	Count        int `toml:"count"`
	MaxRetries   int `toml:"max_retries"`
	MatchDelayMS int `toml:"match_delay_ms"`
}

// MatchDelay returns the pause inserted between catalog lookups.
func (g GenerationConfig) MatchDelay() time.Duration {
	return time.Duration(g.MatchDelayMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local authorization callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UIConfig contains presentation preferences.
type UIConfig struct {
	Theme string `toml:"theme"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads the given .env files (defaulting to ./.env) into the process environment.
//
// Missing files are not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides credential and database settings with environment variables when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAnthropicKey); v != "" {
		c.Credentials.Anthropic.APIKey = v
	}
	if v := os.Getenv(EnvDeveloperToken); v != "" {
		c.Credentials.AppleMusic.DeveloperToken = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
}

// Validate reports configuration values that would break generation.
func (c *Config) Validate() error {
	if c.Generation.Count < 0 {
		return fmt.Errorf("%w: generation.count must not be negative", ErrInvalidConfig)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("%w: generation.max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Generation.MatchDelayMS < 0 {
		return fmt.Errorf("%w: generation.match_delay_ms must not be negative", ErrInvalidConfig)
	}
	switch c.UI.Theme {
	case "", "light", "dark", "system":
	default:
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidConfig, c.UI.Theme)
	}
	return nil
}
