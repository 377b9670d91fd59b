package commands

import (
	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/internal/cliopt"
	"github.com/statspub/dataapi/internal/httpapi"
)

func NewServeCommand(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.Config()
			if err != nil {
				return err
			}
			log, err := g.Logger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			ctx := cmd.Context()
			store, err := g.OpenStore(ctx, cfg, cfg.MigrateOnStart)
			if err != nil {
				return err
			}
			defer store.Close()

			log.Logger.Info().
				Str("backend", string(store.Backend())).
				Bool("migrated", cfg.MigrateOnStart).
				Msg("store opened")

			router := httpapi.NewRouter(store, httpapi.Options{
				Logger:       log.Logger,
				RateLimit:    cfg.HTTP.RateLimit,
				Burst:        cfg.HTTP.Burst,
				QueryTimeout: cfg.HTTP.QueryTimeout,
			})
			return httpapi.NewServer(cfg.HTTP.Addr, router, log.Logger).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("migrate", false, "apply pending migrations before serving")
	_ = g.Viper().BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	_ = g.Viper().BindPFlag("migrate_on_start", cmd.Flags().Lookup("migrate"))
	return cmd
}
