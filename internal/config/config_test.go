package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 3000 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Database.SQLitePath != "data/ci_runs.db" {
		t.Errorf("sqlite path = %q", cfg.Database.SQLitePath)
	}
	if cfg.Database.URL != "" {
		t.Errorf("database url should default empty, got %q", cfg.Database.URL)
	}
	if cfg.GitHub.APIBase != "https://api.github.com" {
		t.Errorf("api base = %q", cfg.GitHub.APIBase)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
host = "127.0.0.1"
port = 8080

[database]
url = "postgres://ci:ci@db/ci_runs"

[cliq]
webhook_url = "https://cliq.zoho.com/company/x/api/v2/channelsbyname/ci/message"

[digest]
schedule = "0 9 * * 1-5"

[logging]
format = "text"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.URL != "postgres://ci:ci@db/ci_runs" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if !strings.Contains(cfg.Cliq.WebhookURL, "channelsbyname/ci") {
		t.Errorf("webhook url = %q", cfg.Cliq.WebhookURL)
	}
	if cfg.Digest.Schedule != "0 9 * * 1-5" {
		t.Errorf("digest schedule = %q", cfg.Digest.Schedule)
	}
	if cfg.Logging.Format != "text" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Unset sections keep their defaults.
	if cfg.Database.SQLitePath != "data/ci_runs.db" {
		t.Errorf("sqlite path = %q", cfg.Database.SQLitePath)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nport="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed toml must be rejected")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env@db/ci")
	t.Setenv("CI_RELAY_DB_PATH", "/tmp/env.db")
	t.Setenv("CLIQ_WEBHOOK_URL", "https://cliq.example/hook")
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("API_KEY", "key-env")
	t.Setenv("WEBHOOK_SECRET", "sec-env")
	t.Setenv("PORT", "9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Database.URL != "postgres://env@db/ci" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if cfg.Database.SQLitePath != "/tmp/env.db" {
		t.Errorf("sqlite path = %q", cfg.Database.SQLitePath)
	}
	if cfg.Cliq.WebhookURL != "https://cliq.example/hook" {
		t.Errorf("webhook url = %q", cfg.Cliq.WebhookURL)
	}
	if cfg.GitHub.Token != "ghp_env" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
	if cfg.Auth.APIKey != "key-env" || cfg.Auth.WebhookSecret != "sec-env" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidPortEnvIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want default kept", cfg.Server.Port)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := ExpandPath("~/data/ci.db")
	if got != filepath.Join(home, "data", "ci.db") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/abs/path.db"); got != "/abs/path.db" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandPath("relative.db"); got != "relative.db" {
		t.Errorf("relative path changed: %q", got)
	}
}
