package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/internal/cliopt"
)

func NewMetaCommand(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Describe subjects, releases and boundary levels",
	}
	cmd.AddCommand(newMetaSubject(g), newMetaRelease(g), newMetaBoundary(g))
	return cmd
}

func newMetaSubject(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "subject <id>",
		Short: "Show the filters, indicators, time periods and levels of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("subject", args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, g, func(store *dataapi.Store) error {
				meta, err := store.SubjectMeta(cmd.Context(), id)
				if err != nil {
					return err
				}
				return render(cmd, g, meta, func(p *printer) {
					s := meta.Subject
					p.printf("Subject %d: %s\n", s.ID, s.Name)
					p.printf("Release %d: %s (%s)\n", s.ReleaseID, s.ReleaseTitle, publishState(s))

					p.printf("\nFilters:\n")
					for _, f := range meta.Filters {
						p.printf("  [%d] %s\n", f.ID, f.Label)
						for _, grp := range f.Groups {
							p.printf("    [%d] %s\n", grp.ID, grp.Label)
							for _, it := range grp.Items {
								p.printf("      [%d] %s\n", it.ID, it.Label)
							}
						}
					}

					p.printf("\nIndicators:\n")
					for _, grp := range meta.IndicatorGroups {
						p.printf("  [%d] %s\n", grp.ID, grp.Label)
						for _, ind := range grp.Indicators {
							p.printf("    [%d] %s", ind.ID, ind.Label)
							if ind.Unit != "" {
								p.printf(" (%s)", ind.Unit)
							}
							p.printf("\n")
						}
					}

					p.printf("\nTime periods:")
					for _, tp := range meta.TimePeriods {
						p.printf(" %s", tp)
					}
					p.printf("\nGeographic levels:")
					for _, lvl := range meta.GeographicLevels {
						p.printf(" %s", lvl)
					}
					p.printf("\n")
				})
			})
		},
	}
}

func publishState(s dataapi.Subject) string {
	if !s.Published() {
		return "draft"
	}
	return "published " + time.UnixMilli(s.PublishedAtMS).UTC().Format(time.RFC3339)
}

func newMetaRelease(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "release <id>",
		Short: "List the subjects of a release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg("release", args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, g, func(store *dataapi.Store) error {
				subjects, err := store.ReleaseSubjects(cmd.Context(), id)
				if err != nil {
					return err
				}
				if subjects == nil {
					subjects = []dataapi.Subject{}
				}
				return render(cmd, g, subjects, func(p *printer) {
					for _, s := range subjects {
						p.printf("[%d] %s\n", s.ID, s.Name)
					}
					p.printf("--- %d subjects ---\n", len(subjects))
				})
			})
		},
	}
}

type boundaryOutput struct {
	BoundaryLevel dataapi.BoundaryLevel `json:"boundaryLevel"`
	Geometries    []dataapi.Geometry    `json:"geometries,omitempty"`
}

func newMetaBoundary(g *cliopt.GlobalOptions) *cobra.Command {
	var codes []string
	cmd := &cobra.Command{
		Use:   "boundary <level>",
		Short: "Show the latest boundary level for a geographic level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, g, func(store *dataapi.Store) error {
				level, err := store.LatestBoundaryLevel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := boundaryOutput{BoundaryLevel: level}
				if len(codes) > 0 {
					if out.Geometries, err = store.Geometries(cmd.Context(), level.ID, codes); err != nil {
						return err
					}
				}
				return render(cmd, g, out, func(p *printer) {
					p.printf("[%d] %s %s\n", level.ID, level.Level, level.Label)
					for _, geom := range out.Geometries {
						p.printf("  %s %s (%d bytes)\n", geom.Code, geom.Name, len(geom.GeoJSON))
					}
				})
			})
		},
	}
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "also fetch geometries for these codes")
	return cmd
}
