package commands

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/dataapi"
	"github.com/statspub/dataapi/internal/cliopt"
)

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, g *cliopt.GlobalOptions, fn func(*dataapi.Store) error) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	store, err := g.OpenStore(cmd.Context(), cfg, cfg.MigrateOnStart)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func parseIDArg(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, dataapi.TypeMismatch(field, strconv.Quote(s)+" is not a positive integer id")
	}
	return id, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
