// Package logger builds the zerolog loggers used by the server and CLI.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0664

// Build collects logger options before Make opens any files.
type Build struct {
	writer  io.Writer
	path    string
	level   string
	console bool
}

// Log is a built logger and the file it writes to, if any.
type Log struct {
	File   *os.File
	Logger zerolog.Logger
}

func New() *Build {
	return &Build{}
}

// FromPath appends to the file at path instead of the writer.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

// Console switches to zerolog's human readable console output.
func (b *Build) Console(on bool) *Build {
	b.console = on
	return b
}

func (b *Build) Make() (*Log, error) {
	level, err := ParseLevel(b.level)
	if err != nil {
		return nil, err
	}

	out := &Log{}
	var w io.Writer = os.Stderr
	if b.writer != nil {
		w = b.writer
	}
	if b.path != "" {
		out.File, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		w = zerolog.SyncWriter(out.File)
	} else if b.console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return out, nil
}

// Close closes the log file when one was opened.
func (l *Log) Close() error {
	if l == nil || l.File == nil {
		return nil
	}
	return l.File.Close()
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}
