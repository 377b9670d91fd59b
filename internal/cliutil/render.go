package cliutil

import "io"

// Render writes v in the requested format; pretty uses the caller's printer.
func Render(w io.Writer, format string, v any, pretty func(io.Writer) error) error {
	f, err := ParseOutputFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		return PrintJSON(w, v)
	case FormatYAML:
		return PrintYAML(w, v)
	default:
		return pretty(w)
	}
}
