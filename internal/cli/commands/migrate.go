package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/internal/cliopt"
)

func NewMigrateCommand(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	cmd.AddCommand(newMigrateUp(g), newMigrateDown(g), newMigrateVersion(g))
	return cmd
}

func newMigrateUp(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.Config()
			if err != nil {
				return err
			}
			store, err := g.OpenStore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()
			return printVersion(cmd, g, cfg.Backend, store.Adapter())
		},
	}
}

func newMigrateDown(g *cliopt.GlobalOptions) *cobra.Command {
	var steps int
	var all bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 && !all {
				return errors.New("pass --steps N or --all")
			}
			if all {
				steps = 0
			}
			cfg, err := g.Config()
			if err != nil {
				return err
			}
			adapter, err := cfg.Adapter()
			if err != nil {
				return err
			}
			defer adapter.Close()
			if err := storage.MigrateDown(cmd.Context(), adapter, steps); err != nil {
				return err
			}
			return printVersion(cmd, g, cfg.Backend, adapter)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateVersion(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.Config()
			if err != nil {
				return err
			}
			adapter, err := cfg.Adapter()
			if err != nil {
				return err
			}
			defer adapter.Close()
			return printVersion(cmd, g, cfg.Backend, adapter)
		},
	}
}

type schemaVersion struct {
	Backend string `json:"backend"`
	Version uint   `json:"version"`
	Latest  uint   `json:"latest"`
	Dirty   bool   `json:"dirty"`
}

func printVersion(cmd *cobra.Command, g *cliopt.GlobalOptions, backend string, adapter storage.Adapter) error {
	version, dirty, err := storage.Version(adapter)
	if err != nil {
		return err
	}
	latest, err := storage.LatestVersion(adapter)
	if err != nil {
		return err
	}
	v := schemaVersion{Backend: backend, Version: version, Latest: latest, Dirty: dirty}
	return render(cmd, g, v, func(w *printer) {
		state := "current"
		switch {
		case dirty:
			state = "dirty"
		case version < latest:
			state = "pending"
		}
		w.printf("schema version %d of %d (%s)\n", version, latest, state)
	})
}
