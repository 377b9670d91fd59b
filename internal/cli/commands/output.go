package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/internal/cliopt"
	"github.com/statspub/dataapi/internal/cliutil"
)

// printer keeps the first write error so pretty printers can ignore it.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// render writes v to the command's stdout in the --output format.
func render(cmd *cobra.Command, g *cliopt.GlobalOptions, v any, pretty func(p *printer)) error {
	return cliutil.Render(cmd.OutOrStdout(), g.Output, v, func(w io.Writer) error {
		p := &printer{w: w}
		pretty(p)
		return p.err
	})
}
