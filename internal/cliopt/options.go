package cliopt

import (
	"context"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/internal/config"
	"github.com/statspub/dataapi/internal/logger"
)

// GlobalOptions are bound once on the root command and shared by every
// subcommand.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	ConfigFile string
	Output     string

	viper *viper.Viper
}

func DefaultGlobalOptions() *GlobalOptions {
	return &GlobalOptions{
		Output: "pretty",
		viper:  viper.New(),
	}
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"backend":       "backend",
	"sqlite-path":   "sqlite.path",
	"sqlite-driver": "sqlite.driver",
	"pg-dsn":        "postgres.dsn",
	"pg-schema":     "postgres.schema",
	"log-level":     "log.level",
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.ConfigFile, "config", "", "config file (default ./dataapi.yaml)")
	fs.StringVarP(&g.Output, "output", "o", g.Output, "output: pretty|json|yaml")

	fs.String("backend", "", "backend: sqlite|postgres")
	fs.String("sqlite-path", "", "sqlite database file")
	fs.String("sqlite-driver", "", "sqlite driver: sqlite (modernc) or sqlite3 (cgo)")
	fs.String("pg-dsn", "", "postgres DSN")
	fs.String("pg-schema", "", "postgres schema")
	fs.String("log-level", "", "log level: debug|info|warn|error")

	for name, key := range flagKeys {
		_ = g.viper.BindPFlag(key, fs.Lookup(name))
	}
}

// Viper exposes the underlying viper instance for command specific flags.
func (g *GlobalOptions) Viper() *viper.Viper {
	return g.viper
}

func (g *GlobalOptions) Config() (*config.Config, error) {
	return config.Load(g.viper, g.ConfigFile)
}

// Logger builds the process logger; without a log file it writes to stderr
// in console format.
func (g *GlobalOptions) Logger(cfg *config.Config) (*logger.Log, error) {
	b := logger.New().Level(cfg.Log.Level)
	if cfg.Log.File != "" {
		b = b.FromPath(cfg.Log.File)
	} else {
		b = b.FromWriter(os.Stderr).Console(cfg.Log.Console)
	}
	return b.Make()
}

// OpenStore opens the configured database. With migrate set, pending
// migrations are applied first.
func (g *GlobalOptions) OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (*dataapi.Store, error) {
	adapter, err := cfg.Adapter()
	if err != nil {
		return nil, err
	}
	opts := dataapi.DefaultStoreOptions()
	if cfg.HTTP.QueryTimeout > 0 {
		opts.QueryTimeout = cfg.HTTP.QueryTimeout
	}
	if migrate {
		return dataapi.Create(ctx, adapter, opts)
	}
	return dataapi.Open(ctx, adapter, opts)
}
