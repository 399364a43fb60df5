// Package slogx builds the process logger and carries request-scoped loggers
// through contexts.
package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler and the attributes stamped on every record.
type Config struct {
	Service string
	Version string
	Env     string // "dev" adds source locations
	Level   string // debug, info, warn or error; anything else is info
	Format  string // json (default) or text

	// Output defaults to stdout.
	Output io.Writer
}

// New builds the logger described by cfg and installs it as slog's default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     ParseLevel(cfg.Level),
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}

	l := slog.New(h).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)
	slog.SetDefault(l)
	return l
}

// ParseLevel accepts slog's own level names ("warn", "error+2"), plus
// "warning". Unknown input yields info.
func ParseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
