// Package config loads dataapi settings from a YAML file, DATAAPI_ environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/postgres"
	"github.com/statspub/dataapi/dataapi/storage/sqlite"
)

const (
	EnvPrefix  = "DATAAPI"
	configName = "dataapi"
)

type Config struct {
	Backend        string         `mapstructure:"backend"`
	SQLite         SQLiteConfig   `mapstructure:"sqlite"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
	HTTP           HTTPConfig     `mapstructure:"http"`
	Log            LogConfig      `mapstructure:"log"`
	MigrateOnStart bool           `mapstructure:"migrate_on_start"`
}

type SQLiteConfig struct {
	Path   string `mapstructure:"path"`
	Driver string `mapstructure:"driver"`
}

type PostgresConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// RateLimit is requests per minute per client IP; zero disables limiting.
	RateLimit    int           `mapstructure:"rate_limit"`
	Burst        int           `mapstructure:"burst"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// SetDefaults registers every key so environment overrides are seen by
// Unmarshal even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", string(storage.BackendSQLite))
	v.SetDefault("sqlite.path", "dataapi.db")
	v.SetDefault("sqlite.driver", sqlite.DriverModernc)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.schema", "public")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 600)
	v.SetDefault("http.burst", 50)
	v.SetDefault("http.query_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", false)
	v.SetDefault("migrate_on_start", false)
}

// Load reads configuration into v and decodes it. An explicit file must
// exist; without one, dataapi.yaml is looked up in the working directory and
// may be absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch storage.Backend(c.Backend) {
	case storage.BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
		switch c.SQLite.Driver {
		case sqlite.DriverModernc, sqlite.DriverMattn:
		default:
			return fmt.Errorf("unsupported sqlite.driver %q", c.SQLite.Driver)
		}
	case storage.BackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.Burst < 0 {
		return errors.New("http.rate_limit and http.burst must not be negative")
	}
	return nil
}

// Adapter returns the storage adapter selected by Backend.
func (c *Config) Adapter() (storage.Adapter, error) {
	switch storage.Backend(c.Backend) {
	case storage.BackendSQLite:
		return sqlite.NewWithDriver(c.SQLite.Path, c.SQLite.Driver), nil
	case storage.BackendPostgres:
		return postgres.New(c.Postgres.DSN, c.Postgres.Schema), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", c.Backend)
	}
}
