// Package ports declares what the scheduler, aggregator and retention need
// from the outside world.
//
//   - [Supplier] yields the full entity collection for one snapshot
//   - [SnapshotStore] writes, reads and lists snapshot files
//   - [SnapshotPruner] sizes and removes them
//   - [Logger] is the structured logging seam, with [Field] helpers
//
// Adapters under internal/adapters implement them.
package ports
