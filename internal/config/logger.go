package config

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewLogger returns a logger writing to out at level. Terminals get the
// human-readable console writer, everything else gets JSON lines.
func NewLogger(out *os.File, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
		return zerolog.New(console).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
