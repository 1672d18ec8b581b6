package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Cliq     CliqConfig     `toml:"cliq"`
	GitHub   GitHubConfig   `toml:"github"`
	Auth     AuthConfig     `toml:"auth"`
	Digest   DigestConfig   `toml:"digest"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig selects the persistence engine. A non-empty URL picks
// Postgres; the SQLite path is used directly or as the fallback.
type DatabaseConfig struct {
	URL        string `toml:"url"`
	SQLitePath string `toml:"sqlite_path"`
}

// CliqConfig holds chat webhook settings
type CliqConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// GitHubConfig holds source-control API settings
type GitHubConfig struct {
	Token   string `toml:"token"`
	APIBase string `toml:"api_base"`
}

// AuthConfig holds the pluggable request gates
type AuthConfig struct {
	APIKey        string `toml:"api_key"`
	WebhookSecret string `toml:"webhook_secret"`
}

// DigestConfig holds the scheduled stats summary settings
type DigestConfig struct {
	Schedule string `toml:"schedule"` // cron expression, empty disables
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Format string `toml:"format"` // "json"|"text"
	Level  string `toml:"level"`  // "debug"|"info"|"warn"|"error"
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Database: DatabaseConfig{
			SQLitePath: "data/ci_runs.db",
		},
		GitHub: GitHubConfig{
			APIBase: "https://api.github.com",
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	cfg.Database.SQLitePath = ExpandPath(cfg.Database.SQLitePath)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CI_RELAY_DB_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CLIQ_WEBHOOK_URL"); v != "" {
		cfg.Cliq.WebhookURL = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Auth.WebhookSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ci-relay", "config.toml")
}
