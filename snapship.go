// Package snapship takes periodic JSON snapshots of a dataset and reports on
// the snapshot corpus.
//
// Example usage:
//
//	cfg := snapship.DefaultConfig()
//	cfg.Dir = "/var/lib/myapp/backups"
//	if err := snapship.Run(ctx, cfg, supplier); err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control (events, on-demand snapshots, reports) use the
// pkg/snapship package directly.
package snapship

import (
	"context"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/snapship/internal/adapters/log"
	api "github.com/bft-labs/snapship/pkg/snapship"
)

// Config holds the scheduler configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = api.Config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return api.DefaultConfig()
}

// Run takes snapshots until ctx is cancelled or the scheduler stops itself
// because too many ticks overlapped. It blocks; the returned error is nil on
// a clean cancellation.
func Run(ctx context.Context, cfg Config, supplier api.Supplier) error {
	return RunWithLogger(ctx, cfg, supplier, zerolog.Nop())
}

// RunWithLogger is Run with scheduler activity logged to logger.
func RunWithLogger(ctx context.Context, cfg Config, supplier api.Supplier, logger zerolog.Logger) error {
	s, err := api.New(cfg, api.WithLogger(logAdapter.NewZerologAdapterWithLogger(logger)))
	if err != nil {
		return err
	}
	if err := s.Start(ctx, supplier); err != nil {
		return err
	}

	var fault error
	select {
	case <-ctx.Done():
	case fault = <-s.Faults():
	}
	if err := s.Stop(); err != nil && fault == nil {
		return err
	}
	return fault
}
