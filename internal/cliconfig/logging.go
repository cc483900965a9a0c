package cliconfig

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/snapship/internal/domain"
)

// NewLogger builds the process logger from cfg.
// Quiet disables output, Verbose forces debug level, otherwise LogLevel applies.
func NewLogger(cfg Config, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	switch {
	case cfg.Quiet:
		level = zerolog.Disabled
	case cfg.Verbose:
		level = zerolog.DebugLevel
	case cfg.LogLevel != "":
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("%w: log-level: %v", domain.ErrConfig, err)
		}
		level = l
	}

	var w io.Writer = out
	if cfg.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
