package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "shiplog" {
		t.Errorf("database.name = %s, want shiplog", cfg.Database.Name)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("database.ssl_mode = %s, want require", cfg.Database.SSLMode)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Workflow.PublishInterval != time.Minute {
		t.Errorf("workflow.publish_interval = %s, want 1m", cfg.Workflow.PublishInterval)
	}
	if cfg.Workflow.AuditLogReadOperations {
		t.Error("read-operation auditing should default to off")
	}
	if !cfg.Telemetry.Metrics.Enabled || cfg.Telemetry.Metrics.PrometheusPort != 9090 {
		t.Error("metrics should default to enabled on port 9090")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SHIPLOG_SERVER_PORT", "9999")
	t.Setenv("SHIPLOG_DATABASE_HOST", "db.internal")
	t.Setenv("SHIPLOG_WORKFLOW_PUBLISH_INTERVAL", "30s")
	t.Setenv("SHIPLOG_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database.host = %s, want db.internal", cfg.Database.Host)
	}
	if cfg.Workflow.PublishInterval != 30*time.Second {
		t.Errorf("workflow.publish_interval = %s, want 30s", cfg.Workflow.PublishInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8443
database:
  password: ${TEST_DB_PASSWORD}
workflow:
  publish_interval: 10s
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8443 {
		t.Errorf("server.port = %d, want 8443", cfg.Server.Port)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("database.password = %q, want expanded env value", cfg.Database.Password)
	}
	if cfg.Workflow.PublishInterval != 10*time.Second {
		t.Errorf("workflow.publish_interval = %s, want 10s", cfg.Workflow.PublishInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080, BaseURL: "http://localhost:8080"},
			Database: DatabaseConfig{Host: "localhost", Name: "shiplog", User: "shiplog"},
			Logging:  LoggingConfig{Level: "info"},
			Workflow: WorkflowConfig{PublishInterval: time.Minute},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"missing base_url", func(c *Config) { c.Server.BaseURL = "" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
		{"missing database name", func(c *Config) { c.Database.Name = "" }},
		{"missing database user", func(c *Config) { c.Database.User = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"publish interval too small", func(c *Config) { c.Workflow.PublishInterval = 100 * time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "shiplog",
		Password: "pw", Name: "shiplog", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=shiplog password=pw dbname=shiplog sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestGetAddress(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := s.GetAddress(); got != "0.0.0.0:8080" {
		t.Errorf("GetAddress() = %q, want 0.0.0.0:8080", got)
	}
}
