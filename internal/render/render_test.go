package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/domain"
)

func init() {
	color.NoColor = true
}

func sampleReport() app.Report {
	at := time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	return app.Report{
		FileCount: 2,
		LatestFile: &app.LatestFile{
			Name:          domain.SnapshotName(at),
			CreatedAt:     at,
			HumanReadable: "02.01.2025, 03:04:05",
		},
		IDCounts: []app.IDCount{
			{ID: "1", Amount: 2},
			{ID: "2", Amount: 1},
			{ID: "3", Amount: 1},
		},
		AveragePerFile: "2.00",
		TotalAcrossAll: 4,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " yaml ", want: FormatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Table(t *testing.T) {
	report := sampleReport()
	now := report.LatestFile.CreatedAt.Add(3 * time.Hour)

	var buf bytes.Buffer
	require.NoError(t, New(FormatTable, WithClock(func() time.Time { return now })).Render(&buf, report))
	out := buf.String()

	assert.Contains(t, out, "BACKUP REPORT")
	assert.Contains(t, out, "Snapshot files: 2")
	assert.Contains(t, out, "backup-2025-01-02T03-04-05-678Z.backup.json")
	assert.Contains(t, out, "02.01.2025, 03:04:05 (3 hours ago)")
	assert.Contains(t, strings.ToLower(out), "3 ids")
	assert.Contains(t, out, "Average entities per snapshot: 2.00")
	assert.Contains(t, out, "Total entities across all snapshots: 4")
}

func TestRender_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	report := app.Report{FileCount: 0, Message: app.NoSnapshotsMessage}
	require.NoError(t, New(FormatTable).Render(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "Snapshot files: 0")
	assert.Contains(t, out, app.NoSnapshotsMessage)
	assert.NotContains(t, out, "Latest snapshot")
}

func TestRender_TableLargeTotals(t *testing.T) {
	report := sampleReport()
	report.TotalAcrossAll = 1234567

	var buf bytes.Buffer
	require.NoError(t, New(FormatTable).Render(&buf, report))
	assert.Contains(t, buf.String(), "1,234,567")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatJSON).Render(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.EqualValues(t, 2, got["fileCount"])
	assert.Equal(t, "2.00", got["averagePerFile"])
	assert.EqualValues(t, 4, got["totalAcrossAll"])
	assert.NotContains(t, got, "message")
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}

func TestRender_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatJSON).Render(&buf, app.Report{Message: app.NoSnapshotsMessage}))
	assert.JSONEq(t, `{"fileCount":0,"message":"No backup files found","totalAcrossAll":0}`, buf.String())
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport()
	require.NoError(t, New(FormatYAML).Render(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "fileCount: 2")
	assert.Contains(t, out, `averagePerFile: "2.00"`)

	var got app.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, report.IDCounts, got.IDCounts)
	assert.Equal(t, report.LatestFile.Name, got.LatestFile.Name)
	assert.True(t, report.LatestFile.CreatedAt.Equal(got.LatestFile.CreatedAt))
}
