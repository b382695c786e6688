/*-------------------------------------------------------------------------
 *
 * config_test.go
 *    Tests for configuration loading
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/config/config_test.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8480 {
		t.Errorf("Server.Port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Database.Database != "casetrace" {
		t.Errorf("Database.Database = %q, want %q", cfg.Database.Database, "casetrace")
	}
	if cfg.Confirmation.TimeoutMinutes != 30 {
		t.Errorf("Confirmation.TimeoutMinutes = %d, want 30", cfg.Confirmation.TimeoutMinutes)
	}
	if cfg.Storage.Backend != "database" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "database")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
server:
  port: 9000
database:
  host: db.internal
  password: secret
llm:
  model: casetrace-large
  thinking_effort: high
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.internal")
	}
	if cfg.LLM.Model != "casetrace-large" {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, "casetrace-large")
	}
	/* Unset keys keep their defaults */
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want default 5432", cfg.Database.Port)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CASETRACE_DB_HOST", "env-host")
	t.Setenv("CASETRACE_SERVER_PORT", "7777")
	t.Setenv("CASETRACE_JOB_WORKERS", "9")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Database.Host != "env-host" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "env-host")
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Jobs.Workers != 9 {
		t.Errorf("Jobs.Workers = %d, want 9", cfg.Jobs.Workers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadConfig() error = nil for missing file, want error")
	}
}
