package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.LLM.Provider != "openai" || cfg.Chart.Size != 350 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("ttl = %s", cfg.Session.TTL)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SERVER_PORT", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9090
llm:
  provider: eino
  model: deepseek-chat
  timeout: 3m
archive:
  driver: postgres
  database:
    host: db
    port: 5432
    user: u
    password: p
    name: reports
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.LLM.Provider != "eino" || cfg.LLM.Model != "deepseek-chat" {
		t.Fatalf("file values not applied: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 3*time.Minute {
		t.Fatalf("timeout = %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.MaxTokens != 8192 {
		t.Fatal("unset field lost its default")
	}
	if dsn := cfg.PostgresDSN(); !strings.Contains(dsn, "host=db") || !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("LLM_MODEL", "o3-mini")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-fallback" || cfg.Server.Port != 7000 || cfg.LLM.Model != "o3-mini" {
		t.Fatalf("env not applied: port=%d key=%q model=%q", cfg.Server.Port, cfg.LLM.APIKey, cfg.LLM.Model)
	}

	t.Setenv("LLM_API_KEY", "sk-primary")
	cfg, _ = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.LLM.APIKey != "sk-primary" {
		t.Fatalf("LLM_API_KEY should win, got %q", cfg.LLM.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port":     func(c *Config) { c.Server.Port = 0 },
		"provider": func(c *Config) { c.LLM.Provider = "gemini" },
		"driver":   func(c *Config) { c.Archive.Driver = "sqlite" },
		"chart":    func(c *Config) { c.Chart.Radius = 200 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestMySQLDSN(t *testing.T) {
	c := Default()
	c.Archive.Database.User = "root"
	c.Archive.Database.Password = "pw"
	c.Archive.Database.Host = "localhost"
	c.Archive.Database.Port = 3306
	c.Archive.Database.Name = "alpha"
	if got := c.MySQLDSN(); got != "root:pw@tcp(localhost:3306)/alpha?parseTime=true&charset=utf8mb4&loc=UTC" {
		t.Fatalf("dsn = %q", got)
	}
	c.Archive.Database.DSN = "explicit"
	if c.MySQLDSN() != "explicit" {
		t.Fatal("explicit dsn ignored")
	}
}
