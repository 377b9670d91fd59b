package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/internal/cliopt"
	"github.com/statspub/dataapi/internal/cliutil"
)

type importResult struct {
	Files     int     `json:"files"`
	Rows      int     `json:"rows"`
	Published []int64 `json:"published,omitempty"`
}

func NewImportCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var publish []string
	var migrate bool
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Load JSON or YAML datasets in one transaction",
		Long: `Load JSON or YAML datasets in one transaction.

Each file holds any of themes, topics, publications, releases, subjects,
locations, schools, providers, filters, filterGroups, filterItems,
indicatorGroups, indicators, observations, footnotes, boundaryLevels and
geometries. Releases are imported as drafts; --publish marks them published,
after which their rows can no longer change. Use - to read stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			releases, err := criteria.ParseIDStrings("publish", publish)
			if err != nil {
				return err
			}

			batch := dataapi.NewBatch()
			for _, path := range args {
				raw, err := cliutil.ReadInput(path, cmd.InOrStdin())
				if err != nil {
					return err
				}
				doc, err := cliutil.ToJSON(path, raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := batch.AddJSON(doc); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}

			cfg, err := g.Config()
			if err != nil {
				return err
			}
			store, err := g.OpenStore(cmd.Context(), cfg, migrate || cfg.MigrateOnStart)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.Apply(cmd.Context(), batch)
			if err != nil {
				return err
			}
			for _, id := range releases {
				if err := store.PublishRelease(cmd.Context(), id); err != nil {
					return err
				}
			}

			res := importResult{Files: len(args), Rows: rows, Published: releases}
			return render(cmd, g, res, func(p *printer) {
				p.printf("Imported %d rows from %d files\n", res.Rows, res.Files)
				for _, id := range res.Published {
					p.printf("Published release %d\n", id)
				}
			})
		},
	}
	cmd.Flags().StringSliceVar(&publish, "publish", nil, "release ids to publish after importing")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations first")
	return cmd
}
