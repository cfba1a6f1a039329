// Package config loads the daemon configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/logging"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/postgres"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/redis"
)

// Duration wraps time.Duration so YAML values like "5s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Backend selects the durable store implementation.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the daemon configuration.
type Config struct {
	Log    logging.Config `yaml:"log"`
	Server ServerConfig   `yaml:"server"`
	Store  StoreConfig    `yaml:"store"`
	Ledger LedgerConfig   `yaml:"ledger"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// StoreConfig selects and configures the store backend.
type StoreConfig struct {
	// Backend is one of memory, postgres, redis.
	Backend string `yaml:"backend"`

	// WALPath enables write-ahead logging for the memory backend.
	// Empty means volatile.
	WALPath string `yaml:"wal_path"`

	Postgres postgres.Config `yaml:"postgres"`
	Redis    redis.Config    `yaml:"redis"`

	Resilience  ResilienceConfig  `yaml:"resilience"`
	OwnerFilter OwnerFilterConfig `yaml:"owner_filter"`
}

// ResilienceConfig controls the circuit breaker wrapper around
// network-backed stores.
type ResilienceConfig struct {
	Enabled bool     `yaml:"enabled"`
	Timeout Duration `yaml:"timeout"`
}

// OwnerFilterConfig controls the owner bloom filter wrapper.
type OwnerFilterConfig struct {
	Enabled           bool    `yaml:"enabled"`
	ExpectedOwners    uint    `yaml:"expected_owners"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
}

// LedgerConfig holds the business rules.
type LedgerConfig struct {
	AllowOverdraft bool `yaml:"allow_overdraft"`
}

// Default returns the configuration used when no file and no overrides
// are present.
func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Store: StoreConfig{
			Backend:  BackendMemory,
			Postgres: postgres.DefaultConfig(),
			Redis:    redis.DefaultConfig(),
			Resilience: ResilienceConfig{
				Enabled: true,
				Timeout: Duration(5 * time.Second),
			},
			OwnerFilter: OwnerFilterConfig{
				Enabled:           true,
				ExpectedOwners:    10000,
				FalsePositiveRate: 0.01,
			},
		},
		Ledger: LedgerConfig{
			AllowOverdraft: false,
		},
	}
}

// Load reads the configuration file at path, falling back to defaults
// when path is empty or the file does not exist, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts a typo would otherwise surface at runtime.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Server.Address == "" {
		return fmt.Errorf("config: server address is required")
	}
	return nil
}

// applyEnv overlays deployment-specific environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	setString(&cfg.Server.Address, "SERVER_ADDRESS")

	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.WALPath, "WAL_PATH")

	setString(&cfg.Store.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Store.Postgres.Port, "POSTGRES_PORT")
	setString(&cfg.Store.Postgres.User, "POSTGRES_USER")
	setString(&cfg.Store.Postgres.Password, "POSTGRES_PASSWORD")
	setString(&cfg.Store.Postgres.Database, "POSTGRES_DB")
	setString(&cfg.Store.Postgres.SSLMode, "POSTGRES_SSLMODE")

	setString(&cfg.Store.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Store.Redis.Username, "REDIS_USERNAME")
	setString(&cfg.Store.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Store.Redis.DB, "REDIS_DB")

	if v := os.Getenv("ALLOW_OVERDRAFT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ledger.AllowOverdraft = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
