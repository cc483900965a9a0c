package snapship

import (
	"time"

	logAdapter "github.com/bft-labs/snapship/internal/adapters/log"
)

// Option configures optional behavior of Snapship.
type Option func(*options)

type options struct {
	logger        Logger
	eventHandlers []EventHandler
	clock         func() time.Time
	pruneObserver func(PruneResult)
}

func defaultOptions() options {
	return options{logger: logAdapter.NewNoopLogger()}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler registers a handler for scheduler events. It may be given
// more than once.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.eventHandlers = append(o.eventHandlers, handler)
		}
	}
}

// WithClock replaces time.Now for snapshot names and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithPruneObserver is called after each retention pass that removed files.
func WithPruneObserver(fn func(PruneResult)) Option {
	return func(o *options) {
		o.pruneObserver = fn
	}
}
