package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

// NoSnapshotsMessage is the report message for a directory without snapshots.
const NoSnapshotsMessage = "No backup files found"

// HumanTimeLayout formats the latest snapshot time for people.
const HumanTimeLayout = "02.01.2006, 15:04:05"

// Report aggregates every snapshot in a directory.
// It is computed on demand and never persisted.
//
// A report with FileCount 0 is encoded as {fileCount, message, totalAcrossAll};
// any other report always carries latestFile, idCounts and averagePerFile.
type Report struct {
	FileCount      int         `json:"fileCount" yaml:"fileCount"`
	Message        string      `json:"message,omitempty" yaml:"message,omitempty"`
	LatestFile     *LatestFile `json:"latestFile,omitempty" yaml:"latestFile,omitempty"`
	IDCounts       []IDCount   `json:"idCounts" yaml:"idCounts"`
	AveragePerFile string      `json:"averagePerFile,omitempty" yaml:"averagePerFile,omitempty"`
	TotalAcrossAll int         `json:"totalAcrossAll" yaml:"totalAcrossAll"`
}

type emptyReportWire struct {
	FileCount      int    `json:"fileCount" yaml:"fileCount"`
	Message        string `json:"message" yaml:"message"`
	TotalAcrossAll int    `json:"totalAcrossAll" yaml:"totalAcrossAll"`
}

type reportWire struct {
	FileCount      int         `json:"fileCount" yaml:"fileCount"`
	LatestFile     *LatestFile `json:"latestFile,omitempty" yaml:"latestFile,omitempty"`
	IDCounts       []IDCount   `json:"idCounts" yaml:"idCounts"`
	AveragePerFile string      `json:"averagePerFile" yaml:"averagePerFile"`
	TotalAcrossAll int         `json:"totalAcrossAll" yaml:"totalAcrossAll"`
}

func (r Report) wire() any {
	if r.FileCount == 0 {
		return emptyReportWire{FileCount: 0, Message: r.Message, TotalAcrossAll: r.TotalAcrossAll}
	}
	ids := r.IDCounts
	if ids == nil {
		ids = []IDCount{}
	}
	return reportWire{
		FileCount:      r.FileCount,
		LatestFile:     r.LatestFile,
		IDCounts:       ids,
		AveragePerFile: r.AveragePerFile,
		TotalAcrossAll: r.TotalAcrossAll,
	}
}

func (r Report) MarshalJSON() ([]byte, error) { return json.Marshal(r.wire()) }
func (r Report) MarshalYAML() (any, error)    { return r.wire(), nil }

// LatestFile describes the newest snapshot in the corpus.
// CreatedAt is encoded with domain.TimestampLayout, the same stamp the
// filename carries.
type LatestFile struct {
	Name          string
	CreatedAt     time.Time
	HumanReadable string
}

type latestFileWire struct {
	Name          string `json:"name" yaml:"name"`
	CreatedAt     string `json:"createdAt" yaml:"createdAt"`
	HumanReadable string `json:"humanReadable" yaml:"humanReadable"`
}

func (f LatestFile) wire() latestFileWire {
	return latestFileWire{Name: f.Name, CreatedAt: domain.FormatTimestamp(f.CreatedAt), HumanReadable: f.HumanReadable}
}

func (f LatestFile) MarshalJSON() ([]byte, error) { return json.Marshal(f.wire()) }
func (f LatestFile) MarshalYAML() (any, error)    { return f.wire(), nil }

func (f *LatestFile) UnmarshalJSON(data []byte) error {
	var w latestFileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return f.fromWire(w)
}

func (f *LatestFile) UnmarshalYAML(node *yaml.Node) error {
	var w latestFileWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return f.fromWire(w)
}

func (f *LatestFile) fromWire(w latestFileWire) error {
	created, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: latestFile.createdAt: %v", domain.ErrFormat, err)
	}
	*f = LatestFile{Name: w.Name, CreatedAt: created, HumanReadable: w.HumanReadable}
	return nil
}

// IDCount is the number of snapshots an entity id appears in.
type IDCount struct {
	ID     string `json:"id" yaml:"id"`
	Amount int    `json:"amount" yaml:"amount"`
}

// Aggregator builds reports from a directory of snapshot files.
type Aggregator struct {
	store    ports.SnapshotStore
	logger   ports.Logger
	location *time.Location
}

// NewAggregator creates an aggregator reading snapshots through store.
// Human-readable times are rendered in the local time zone.
func NewAggregator(store ports.SnapshotStore, logger ports.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger, location: time.Local}
}

// WithLocation returns a copy of the aggregator that renders human-readable
// times in loc.
func (a *Aggregator) WithLocation(loc *time.Location) *Aggregator {
	cp := *a
	if loc != nil {
		cp.location = loc
	}
	return &cp
}

// GenerateReport scans dir and aggregates every snapshot file in it.
// The report reflects the directory as it is now; a snapshot being written
// concurrently may or may not be included, and a file removed between listing
// and reading (by retention, say) is left out. Any other unreadable or
// malformed file fails the whole report.
func (a *Aggregator) GenerateReport(ctx context.Context, dir string) (Report, error) {
	names, err := a.store.List(ctx, dir)
	if err != nil {
		return Report{}, fmt.Errorf("generate report: %w", err)
	}
	if len(names) == 0 {
		return Report{FileCount: 0, Message: NoSnapshotsMessage}, nil
	}

	// List returns names in string order, which is chronological order.
	sort.Strings(names)

	counts := make(map[string]int)
	var order []string
	total := 0
	present := names[:0]

	for _, name := range names {
		entities, err := a.store.Read(ctx, filepath.Join(dir, name))
		if errors.Is(err, domain.ErrNotFound) {
			a.logger.Debug("snapshot vanished while reporting", ports.String("file", name))
			continue
		}
		if err != nil {
			return Report{}, fmt.Errorf("generate report: %w", err)
		}
		present = append(present, name)
		total += len(entities)

		seen := make(map[string]struct{}, len(entities))
		for _, e := range entities {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			if _, known := counts[e.ID]; !known {
				order = append(order, e.ID)
			}
			counts[e.ID]++
		}
	}

	names = present
	if len(names) == 0 {
		return Report{FileCount: 0, Message: NoSnapshotsMessage}, nil
	}

	latest := names[len(names)-1]
	createdAt, err := domain.ParseSnapshotName(latest)
	if err != nil {
		return Report{}, fmt.Errorf("generate report: latest snapshot: %w", err)
	}

	idCounts := make([]IDCount, 0, len(order))
	for _, id := range order {
		idCounts = append(idCounts, IDCount{ID: id, Amount: counts[id]})
	}
	sort.SliceStable(idCounts, func(i, j int) bool {
		return idCounts[i].Amount > idCounts[j].Amount
	})

	a.logger.Debug("report generated",
		ports.String("dir", dir),
		ports.Int("files", len(names)),
		ports.Int("entities", total),
	)

	return Report{
		FileCount: len(names),
		LatestFile: &LatestFile{
			Name:          latest,
			CreatedAt:     createdAt,
			HumanReadable: createdAt.In(a.location).Format(HumanTimeLayout),
		},
		IDCounts:       idCounts,
		AveragePerFile: fmt.Sprintf("%.2f", float64(total)/float64(len(names))),
		TotalAcrossAll: total,
	}, nil
}
