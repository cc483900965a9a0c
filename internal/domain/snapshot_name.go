package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// SnapshotPrefix starts every snapshot filename.
	SnapshotPrefix = "backup-"

	// SnapshotSuffix marks a file as a snapshot artifact.
	SnapshotSuffix = ".backup.json"

	// TimestampLayout is the fixed-width ISO-8601 UTC layout with milliseconds.
	// String order of two stamps equals their chronological order.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// encodedStamp matches an encoded timestamp: the date is untouched, the time
// separators ':' and '.' have been replaced with '-'.
var encodedStamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2})-(\d{2})-(\d{2})-(\d{3})Z$`)

// SnapshotName returns the filename of a snapshot created at t.
// The time is converted to UTC and truncated to milliseconds.
func SnapshotName(t time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(FormatTimestamp(t))
	return SnapshotPrefix + stamp + SnapshotSuffix
}

// FormatTimestamp renders t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseSnapshotName recovers the creation time encoded in a snapshot filename.
// It returns an error wrapping ErrFormat when name was not produced by SnapshotName.
func ParseSnapshotName(name string) (time.Time, error) {
	if !IsSnapshotName(name) {
		return time.Time{}, fmt.Errorf("%w: %q is not a snapshot filename", ErrFormat, name)
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(name, SnapshotPrefix), SnapshotSuffix)
	m := encodedStamp.FindStringSubmatch(stamp)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: unexpected timestamp %q in %s", ErrFormat, stamp, name)
	}

	iso := fmt.Sprintf("%s:%s:%s.%sZ", m[1], m[2], m[3], m[4])
	t, err := time.Parse(TimestampLayout, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrFormat, name, err)
	}
	return t, nil
}

// IsSnapshotName reports whether name carries the snapshot prefix and suffix.
func IsSnapshotName(name string) bool {
	return strings.HasPrefix(name, SnapshotPrefix) && strings.HasSuffix(name, SnapshotSuffix)
}

// SnapshotFile is a snapshot artifact on disk together with its size.
type SnapshotFile struct {
	Name string
	Size int64
}
