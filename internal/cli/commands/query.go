package commands

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/internal/cliopt"
	"github.com/statspub/dataapi/internal/cliutil"
)

func NewQueryCommand(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run observation, footnote and table queries",
	}
	cmd.AddCommand(newQueryObservations(g), newQueryFootnotes(g), newQueryTable(g))
	return cmd
}

// observationFlags collects an observation query from flags or a query file.
type observationFlags struct {
	file       string
	subject    int64
	level      string
	from, to   string
	locations  []string
	codes      []string
	items      []string
	indicators []string
	grouping   string
	explain    bool
}

func (f *observationFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.file, "file", "f", "", "JSON or YAML query file, - for stdin")
	fs.Int64Var(&f.subject, "subject", 0, "subject id")
	fs.StringVar(&f.level, "level", "", "geographic level name or label")
	fs.StringVar(&f.from, "from", "", "first time period, e.g. 2016_AY")
	fs.StringVar(&f.to, "to", "", "last time period (defaults to --from)")
	fs.StringSliceVar(&f.locations, "locations", nil, "location ids")
	fs.StringSliceVar(&f.codes, "codes", nil, "location codes at --level")
	fs.StringSliceVar(&f.items, "items", nil, "filter item ids")
	fs.StringSliceVar(&f.indicators, "indicators", nil, "indicator ids to return")
	fs.StringVar(&f.grouping, "grouping", "", "filter item grouping: filterGroup|filter")
	fs.BoolVar(&f.explain, "explain", false, "show the compiled query plan")
}

func (f *observationFlags) query(cmd *cobra.Command) (criteria.ObservationQuery, error) {
	if f.file != "" {
		var q criteria.ObservationQuery
		err := decodeInput(cmd, f.file, &q)
		return q, err
	}
	if f.subject == 0 {
		return criteria.ObservationQuery{}, errors.New("pass --subject or --file")
	}

	q := criteria.ObservationQuery{
		SubjectID:      f.subject,
		LocationCodes:  f.codes,
		FilterGrouping: criteria.FilterGrouping(f.grouping),
	}
	var err error
	if f.level != "" {
		if q.GeographicLevel, err = criteria.ParseGeographicLevel(f.level); err != nil {
			return q, err
		}
	}
	if f.from != "" || f.to != "" {
		from, to := f.from, f.to
		if from == "" {
			from = to
		}
		if to == "" {
			to = from
		}
		r := &criteria.TimePeriodRange{}
		if r.Start, err = criteria.ParseTimePeriod(from); err != nil {
			return q, err
		}
		if r.End, err = criteria.ParseTimePeriod(to); err != nil {
			return q, err
		}
		q.TimePeriod = r
	}
	if q.LocationIDs, err = criteria.ParseIDStrings("locations", f.locations); err != nil {
		return q, err
	}
	if q.FilterItemIDs, err = criteria.ParseIDStrings("items", f.items); err != nil {
		return q, err
	}
	if q.Indicators, err = criteria.ParseIDStrings("indicators", f.indicators); err != nil {
		return q, err
	}
	return q, nil
}

// decodeInput reads a JSON or YAML document from path (or stdin) into dst.
func decodeInput(cmd *cobra.Command, path string, dst any) error {
	raw, err := cliutil.ReadInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	doc, err := cliutil.ToJSON(path, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, dst)
}

func newQueryObservations(g *cliopt.GlobalOptions) *cobra.Command {
	var f observationFlags
	cmd := &cobra.Command{
		Use:   "observations",
		Short: "Filter the observations of a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd, g, func(store *dataapi.Store) error {
				res, err := store.FilteredObservations(cmd.Context(), q, dataapi.QueryOptions{Explain: f.explain})
				if err != nil {
					return err
				}
				return render(cmd, g, res, func(p *printer) {
					if f.explain {
						p.printf("=== Query Plan ===\n")
						for _, step := range res.ExplainSteps {
							p.printf("  %s\n", step)
						}
						p.printf("\n=== SQL ===\n%s\n\n=== Results ===\n", res.ExplainSQL)
					}
					printObservations(p, res.Observations)
				})
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func printObservations(p *printer, observations []dataapi.Observation) {
	for _, o := range observations {
		tp := criteria.TimePeriod{Year: o.Year, Identifier: o.TimeIdentifier}
		p.printf("#%d  %s %s  %s  location=%d", o.ID, tp.Label(), o.TimeIdentifier, o.GeographicLevel, o.LocationID)
		if o.SchoolLaestab != "" {
			p.printf("  school=%s", o.SchoolLaestab)
		}
		if o.ProviderUkprn != "" {
			p.printf("  provider=%s", o.ProviderUkprn)
		}
		p.printf("  items=%v  measures=%s\n", o.FilterItemIDs, formatMeasures(o.Measures))
	}
	p.printf("\n--- %d observations ---\n", len(observations))
}

func formatMeasures(m map[int64]string) string {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortIDs(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = formatID(id) + ":" + m[id]
	}
	return strings.Join(parts, " ")
}

func newQueryFootnotes(g *cliopt.GlobalOptions) *cobra.Command {
	var file string
	var subjects, indicators, filters, groups, items []string
	cmd := &cobra.Command{
		Use:   "footnotes",
		Short: "List the footnotes attached to subjects, indicators or filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var q criteria.FootnoteQuery
			if file != "" {
				if err := decodeInput(cmd, file, &q); err != nil {
					return err
				}
			} else {
				lists := []struct {
					field  string
					values []string
					dst    *[]int64
				}{
					{"subjects", subjects, &q.SubjectIDs},
					{"indicators", indicators, &q.IndicatorIDs},
					{"filters", filters, &q.FilterIDs},
					{"groups", groups, &q.FilterGroupIDs},
					{"items", items, &q.FilterItemIDs},
				}
				for _, l := range lists {
					ids, err := criteria.ParseIDStrings(l.field, l.values)
					if err != nil {
						return err
					}
					*l.dst = ids
				}
			}
			return withStore(cmd, g, func(store *dataapi.Store) error {
				footnotes, err := store.FilteredFootnotes(cmd.Context(), q)
				if err != nil {
					return err
				}
				if footnotes == nil {
					footnotes = []dataapi.Footnote{}
				}
				return render(cmd, g, footnotes, func(p *printer) {
					printFootnotes(p, footnotes)
				})
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&file, "file", "f", "", "JSON or YAML footnote query, - for stdin")
	fs.StringSliceVar(&subjects, "subjects", nil, "subject ids")
	fs.StringSliceVar(&indicators, "indicators", nil, "indicator ids")
	fs.StringSliceVar(&filters, "filters", nil, "filter ids")
	fs.StringSliceVar(&groups, "groups", nil, "filter group ids")
	fs.StringSliceVar(&items, "items", nil, "filter item ids")
	return cmd
}

func printFootnotes(p *printer, footnotes []dataapi.Footnote) {
	for _, f := range footnotes {
		p.printf("[%d] %s\n", f.ID, f.Content)
	}
	p.printf("--- %d footnotes ---\n", len(footnotes))
}

func newQueryTable(g *cliopt.GlobalOptions) *cobra.Command {
	var f observationFlags
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Filter observations and attach their footnotes and subject metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd, g, func(store *dataapi.Store) error {
				table, err := store.TableQuery(cmd.Context(), q, dataapi.QueryOptions{Explain: f.explain})
				if err != nil {
					return err
				}
				return render(cmd, g, table, func(p *printer) {
					if table.SubjectMeta != nil {
						s := table.SubjectMeta.Subject
						p.printf("%s (subject %d, %s)\n\n", s.Name, s.ID, s.ReleaseTitle)
					}
					printObservations(p, table.Observations)
					p.printf("\n")
					printFootnotes(p, table.Footnotes)
				})
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}
