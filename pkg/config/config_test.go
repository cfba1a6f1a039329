package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("default backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Ledger.AllowOverdraft {
		t.Error("overdraft allowed by default")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: ":9090"
  read_timeout: 5s
store:
  backend: postgres
  postgres:
    host: db.internal
    database: ledger
ledger:
  allow_overdraft: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.Server.ReadTimeout.Std() != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("backend = %q, want postgres", cfg.Store.Backend)
	}
	if cfg.Store.Postgres.Host != "db.internal" {
		t.Errorf("postgres host = %q, want db.internal", cfg.Store.Postgres.Host)
	}
	// Untouched fields keep their defaults
	if cfg.Store.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d, want 5432", cfg.Store.Postgres.Port)
	}
	if !cfg.Ledger.AllowOverdraft {
		t.Error("allow_overdraft not loaded")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("PORT", "3000")
	t.Setenv("ALLOW_OVERDRAFT", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Backend != BackendRedis {
		t.Errorf("backend = %q, want redis", cfg.Store.Backend)
	}
	if cfg.Store.Redis.Addr != "cache.internal:6380" {
		t.Errorf("redis addr = %q", cfg.Store.Redis.Addr)
	}
	if cfg.Server.Address != ":3000" {
		t.Errorf("address = %q, want :3000", cfg.Server.Address)
	}
	if !cfg.Ledger.AllowOverdraft {
		t.Error("ALLOW_OVERDRAFT override ignored")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "cassandra"

	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend accepted")
	}
}
