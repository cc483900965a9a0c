package snapship

import (
	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

type (
	// Entity is one record of the dataset being snapshotted.
	Entity = domain.Entity

	// Supplier returns the full entity collection for one snapshot.
	Supplier = ports.Supplier

	// SupplierFunc adapts a function to Supplier.
	SupplierFunc = ports.SupplierFunc

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField is a structured log field.
	LogField = ports.Field
)

type (
	EventHandler     = app.EventHandler
	BaseEventHandler = app.BaseEventHandler
	StartedEvent     = app.StartedEvent
	CompletedEvent   = app.CompletedEvent
	SkippedEvent     = app.SkippedEvent
	ErrorEvent       = app.ErrorEvent
	FatalEvent       = app.FatalEvent
	StoppedEvent     = app.StoppedEvent
)

type (
	Report          = app.Report
	LatestFile      = app.LatestFile
	IDCount         = app.IDCount
	RetentionConfig = app.RetentionConfig
	PruneResult     = app.PruneResult
)

// State is the scheduler lifecycle state.
type State = app.State

const (
	StateStopped = app.StateStopped
	StateRunning = app.StateRunning
	StateCrashed = app.StateCrashed
)

// Errors returned by snapship. Check with errors.Is.
var (
	ErrConfig               = domain.ErrConfig
	ErrStorage              = domain.ErrStorage
	ErrFormat               = domain.ErrFormat
	ErrNotFound             = domain.ErrNotFound
	ErrBackpressureExceeded = domain.ErrBackpressureExceeded
	ErrAlreadyRunning       = domain.ErrAlreadyRunning
	ErrShutdownTimeout      = domain.ErrShutdownTimeout
)

// SnapshotName returns the file name used for a snapshot taken at t.
var SnapshotName = domain.SnapshotName

// ParseSnapshotName recovers the creation time from a snapshot file name.
var ParseSnapshotName = domain.ParseSnapshotName
