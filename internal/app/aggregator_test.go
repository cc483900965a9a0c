package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/snapship/internal/adapters/fs"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

func writeSnapshot(t *testing.T, dir string, at time.Time, entities ...domain.Entity) string {
	t.Helper()
	name := domain.SnapshotName(at)
	store := fs.NewSnapshotStore(dir)
	require.NoError(t, store.Write(context.Background(), entities, store.Path(name)))
	return name
}

func newTestAggregator() *Aggregator {
	return NewAggregator(fs.NewSnapshotStore(""), mockLogger{}).WithLocation(time.UTC)
}

func TestAggregator_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0, report.FileCount)
	assert.Equal(t, NoSnapshotsMessage, report.Message)
	assert.Nil(t, report.LatestFile)
	assert.Empty(t, report.IDCounts)
}

func TestAggregator_MissingDirectory(t *testing.T) {
	_, err := newTestAggregator().GenerateReport(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestAggregator_CountsAndAverages(t *testing.T) {
	dir := t.TempDir()
	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	writeSnapshot(t, dir, t1,
		domain.Entity{ID: "1", Name: "A", Age: 20, Group: 1},
		domain.Entity{ID: "2", Name: "B", Age: 21, Group: 1},
	)
	latest := writeSnapshot(t, dir, t2,
		domain.Entity{ID: "1", Name: "A", Age: 20, Group: 1},
		domain.Entity{ID: "3", Name: "C", Age: 22, Group: 2},
	)

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FileCount)
	assert.Equal(t, 4, report.TotalAcrossAll)
	assert.Equal(t, "2.00", report.AveragePerFile)
	assert.Equal(t, []IDCount{
		{ID: "1", Amount: 2},
		{ID: "2", Amount: 1},
		{ID: "3", Amount: 1},
	}, report.IDCounts)

	require.NotNil(t, report.LatestFile)
	assert.Equal(t, latest, report.LatestFile.Name)
	assert.True(t, report.LatestFile.CreatedAt.Equal(t2))
	assert.Equal(t, "01.01.2025, 10:01:00", report.LatestFile.HumanReadable)
	assert.Empty(t, report.Message)
}

func TestAggregator_LatestIsChronological(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 12, 31, 23, 59, 59, 999_000_000, time.UTC)

	// Written newest first so directory order cannot be relied upon.
	newest := writeSnapshot(t, dir, base.Add(10*time.Second), domain.Entity{ID: "x"})
	writeSnapshot(t, dir, base.Add(time.Millisecond), domain.Entity{ID: "x"})
	writeSnapshot(t, dir, base, domain.Entity{ID: "x"})

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, newest, report.LatestFile.Name)
	assert.Equal(t, 3, report.FileCount)
}

func TestAggregator_DuplicateIDsCountOncePerFile(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	writeSnapshot(t, dir, at,
		domain.Entity{ID: "1"},
		domain.Entity{ID: "1"},
		domain.Entity{ID: "2"},
	)

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []IDCount{{ID: "1", Amount: 1}, {ID: "2", Amount: 1}}, report.IDCounts)
	assert.Equal(t, 3, report.TotalAcrossAll)
	assert.Equal(t, "3.00", report.AveragePerFile)
}

func TestAggregator_TiesKeepEncounterOrder(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	writeSnapshot(t, dir, at, domain.Entity{ID: "b"}, domain.Entity{ID: "a"})
	writeSnapshot(t, dir, at.Add(time.Second), domain.Entity{ID: "c"}, domain.Entity{ID: "a"})

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []IDCount{
		{ID: "a", Amount: 2},
		{ID: "b", Amount: 1},
		{ID: "c", Amount: 1},
	}, report.IDCounts)
}

func TestAggregator_AverageRounding(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	writeSnapshot(t, dir, at, domain.Entity{ID: "1"})
	writeSnapshot(t, dir, at.Add(time.Second), domain.Entity{ID: "1"}, domain.Entity{ID: "2"})
	writeSnapshot(t, dir, at.Add(2*time.Second), domain.Entity{ID: "1"}, domain.Entity{ID: "2"})

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "1.67", report.AveragePerFile)
	assert.Equal(t, 5, report.TotalAcrossAll)
}

func TestAggregator_EmptySnapshots(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	writeSnapshot(t, dir, at)

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FileCount)
	assert.Equal(t, 0, report.TotalAcrossAll)
	assert.Equal(t, "0.00", report.AveragePerFile)
	assert.Empty(t, report.IDCounts)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"idCounts":[]`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "latestFile")
	assert.Equal(t, "0.00", decoded["averagePerFile"])
	assert.NotContains(t, decoded, "message")

	out, err := yaml.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "idCounts: []")
}

func TestAggregator_MalformedFileFailsReport(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	writeSnapshot(t, dir, at, domain.Entity{ID: "1"})
	bad := domain.SnapshotName(at.Add(time.Second))
	require.NoError(t, os.WriteFile(filepath.Join(dir, bad), []byte(`{"not":"an array"}`), 0o644))

	_, err := newTestAggregator().GenerateReport(context.Background(), dir)
	assert.ErrorIs(t, err, domain.ErrFormat)
	assert.Contains(t, err.Error(), bad)
}

func TestAggregator_UnparseableLatestName(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	name := writeSnapshot(t, dir, at, domain.Entity{ID: "1"})

	// A copy made by hand sorts after the original but carries no timestamp.
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	copyName := name[:len(name)-len(domain.SnapshotSuffix)] + "_copy" + domain.SnapshotSuffix
	require.NoError(t, os.WriteFile(filepath.Join(dir, copyName), data, 0o644))

	_, err = newTestAggregator().GenerateReport(context.Background(), dir)
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestAggregator_ReadsCommentedFiles(t *testing.T) {
	dir := t.TempDir()
	name := domain.SnapshotName(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	content := "// edited by hand\n[{\"id\": \"7\", \"name\": \"Z\", \"age\": 30, \"group\": 1} /* ok */]"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []IDCount{{ID: "7", Amount: 1}}, report.IDCounts)
}

func TestAggregator_ReportJSONShape(t *testing.T) {
	empty, err := json.Marshal(Report{FileCount: 0, Message: NoSnapshotsMessage})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fileCount":0,"message":"No backup files found","totalAcrossAll":0}`, string(empty))

	at := time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	full, err := json.Marshal(Report{
		FileCount:      1,
		LatestFile:     &LatestFile{Name: domain.SnapshotName(at), CreatedAt: at, HumanReadable: "02.01.2025, 03:04:05"},
		IDCounts:       []IDCount{{ID: "1", Amount: 1}},
		AveragePerFile: "1.00",
		TotalAcrossAll: 1,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"fileCount": 1,
		"latestFile": {
			"name": "backup-2025-01-02T03-04-05-678Z.backup.json",
			"createdAt": "2025-01-02T03:04:05.678Z",
			"humanReadable": "02.01.2025, 03:04:05"
		},
		"idCounts": [{"id": "1", "amount": 1}],
		"averagePerFile": "1.00",
		"totalAcrossAll": 1
	}`, string(full))
}

func TestAggregator_CreatedAtKeepsMilliseconds(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 3, 4, 22, 9, 29, 400_000_000, time.UTC)
	name := writeSnapshot(t, dir, at, domain.Entity{ID: "1"})

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"createdAt":"2025-03-04T22:09:29.400Z"`)

	out, err := yaml.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "2025-03-04T22:09:29.400Z")

	// The stamp encodes back into the filename it came from.
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.LatestFile)
	assert.Equal(t, name, domain.SnapshotName(decoded.LatestFile.CreatedAt))

	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(out, &fromYAML))
	require.NotNil(t, fromYAML.LatestFile)
	assert.True(t, at.Equal(fromYAML.LatestFile.CreatedAt))
}

// pruningStore removes victims right after listing, the way a retention pass
// running alongside a report would.
type pruningStore struct {
	ports.SnapshotStore
	victims []string
}

func (p pruningStore) List(ctx context.Context, dir string) ([]string, error) {
	names, err := p.SnapshotStore.List(ctx, dir)
	for _, v := range p.victims {
		_ = os.Remove(filepath.Join(dir, v))
	}
	return names, err
}

func TestAggregator_SkipsFilesRemovedAfterListing(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	oldest := writeSnapshot(t, dir, at, domain.Entity{ID: "1"}, domain.Entity{ID: "2"})
	latest := writeSnapshot(t, dir, at.Add(time.Minute), domain.Entity{ID: "1"})

	agg := NewAggregator(pruningStore{SnapshotStore: fs.NewSnapshotStore(dir), victims: []string{oldest}}, mockLogger{}).
		WithLocation(time.UTC)
	report, err := agg.GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FileCount)
	assert.Equal(t, latest, report.LatestFile.Name)
	assert.Equal(t, []IDCount{{ID: "1", Amount: 1}}, report.IDCounts)
	assert.Equal(t, 1, report.TotalAcrossAll)
}

func TestAggregator_AllFilesRemovedAfterListing(t *testing.T) {
	dir := t.TempDir()
	name := writeSnapshot(t, dir, time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC), domain.Entity{ID: "1"})

	agg := NewAggregator(pruningStore{SnapshotStore: fs.NewSnapshotStore(dir), victims: []string{name}}, mockLogger{})
	report, err := agg.GenerateReport(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.FileCount)
	assert.Equal(t, NoSnapshotsMessage, report.Message)
}

func TestAggregator_ReadsSchedulerOutput(t *testing.T) {
	s, rec, dir := newTestScheduler(t)
	require.NoError(t, s.Start(context.Background(), staticSupplier(students), 15*time.Millisecond))
	waitUntil(t, 2*time.Second, func() bool { return rec.count(isCompleted) >= 2 })
	s.Stop()
	require.NoError(t, s.Wait(time.Second))

	report, err := newTestAggregator().GenerateReport(context.Background(), dir)
	require.NoError(t, err)

	files := snapshotFiles(t, dir)
	assert.Equal(t, len(files), report.FileCount)
	assert.Equal(t, files[len(files)-1], report.LatestFile.Name)
	assert.Equal(t, len(files)*len(students), report.TotalAcrossAll)
	assert.Equal(t, "3.00", report.AveragePerFile)
	for _, c := range report.IDCounts {
		assert.Equal(t, len(files), c.Amount)
	}
}
