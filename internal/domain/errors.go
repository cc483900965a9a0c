package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the snapship domain.
// These errors are returned by the public API and can be checked with errors.Is.
// Most call sites wrap one of them with the path or value that failed.
var (
	// ErrConfig is returned when an operation is requested in an invalid state
	// or with invalid arguments.
	ErrConfig = errors.New("snapship: invalid configuration")

	// ErrStorage is returned when a directory or file operation fails.
	ErrStorage = errors.New("snapship: storage failure")

	// ErrFormat is returned when snapshot content or a snapshot filename
	// cannot be parsed.
	ErrFormat = errors.New("snapship: malformed snapshot")

	// ErrNotFound is returned when a snapshot file does not exist.
	ErrNotFound = errors.New("snapship: snapshot not found")

	// ErrBackpressureExceeded is delivered when the scheduler stops itself
	// because snapshots kept overlapping their own interval.
	ErrBackpressureExceeded = errors.New("snapship: backpressure exceeded")

	// ErrAlreadyRunning is returned when Start() is called on a running scheduler.
	ErrAlreadyRunning = fmt.Errorf("%w: already running", ErrConfig)

	// ErrShutdownTimeout is returned when in-flight snapshots outlive the wait.
	ErrShutdownTimeout = errors.New("snapship: shutdown timeout")
)
