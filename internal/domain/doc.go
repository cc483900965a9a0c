// Package domain holds the snapship value types and the sentinel errors
// shared by every layer.
//
// [Entity] is one record of the snapshotted dataset. A snapshot file's
// identity is its name: [SnapshotName] encodes the creation instant so that
// lexical order is chronological, and [ParseSnapshotName] recovers it.
//
// Nothing here touches the file system or a logger.
package domain
