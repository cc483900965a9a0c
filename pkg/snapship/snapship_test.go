package snapship_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/snapship/pkg/snapship"
)

func entities(ids ...string) snapship.Supplier {
	return snapship.SupplierFunc(func(context.Context) ([]snapship.Entity, error) {
		out := make([]snapship.Entity, 0, len(ids))
		for _, id := range ids {
			out = append(out, snapship.Entity{ID: id, Name: "student " + id, Age: 20, Group: 1})
		}
		return out, nil
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*snapship.Config)
		ok     bool
	}{
		{"defaults", func(*snapship.Config) {}, true},
		{"empty dir", func(c *snapship.Config) { c.Dir = "" }, false},
		{"zero interval", func(c *snapship.Config) { c.Interval = 0 }, false},
		{"negative max pending", func(c *snapship.Config) { c.MaxPending = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := snapship.DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, snapship.ErrConfig)
			}
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := snapship.DefaultConfig()
	cfg.Dir = ""
	_, err := snapship.New(cfg)
	assert.ErrorIs(t, err, snapship.ErrConfig)
}

type countingHandler struct {
	snapship.BaseEventHandler

	mu        sync.Mutex
	completed int
	stopped   int
}

func (h *countingHandler) OnCompleted(snapship.CompletedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed++
}

func (h *countingHandler) OnStopped(snapship.StoppedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped++
}

func (h *countingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed, h.stopped
}

func TestSnapship_StartStop(t *testing.T) {
	cfg := snapship.DefaultConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "backups")
	cfg.Interval = 20 * time.Millisecond

	h := &countingHandler{}
	s, err := snapship.New(cfg, snapship.WithEventHandler(h))
	require.NoError(t, err)
	assert.Equal(t, snapship.StateStopped, s.Status())

	require.NoError(t, s.Start(context.Background(), entities("1", "2")))
	assert.Equal(t, snapship.StateRunning, s.Status())
	assert.ErrorIs(t, s.Start(context.Background(), entities("1")), snapship.ErrAlreadyRunning)

	require.Eventually(t, func() bool {
		completed, _ := h.counts()
		return completed >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.Equal(t, snapship.StateStopped, s.Status())
	_, stopped := h.counts()
	assert.Equal(t, 1, stopped)
	assert.NoError(t, s.Err())

	report, err := s.Report(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.FileCount, 2)
	assert.Equal(t, report.FileCount*2, report.TotalAcrossAll)
	assert.Equal(t, "2.00", report.AveragePerFile)
}

func TestSnapship_StopWithoutStart(t *testing.T) {
	cfg := snapship.DefaultConfig()
	cfg.Dir = t.TempDir()
	s, err := snapship.New(cfg)
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}

func TestSnapship_BackpressureFault(t *testing.T) {
	cfg := snapship.DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.Interval = 5 * time.Millisecond
	cfg.MaxPending = 2

	release := make(chan struct{})
	slow := snapship.SupplierFunc(func(ctx context.Context) ([]snapship.Entity, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})

	s, err := snapship.New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background(), slow))

	select {
	case err := <-s.Faults():
		assert.True(t, errors.Is(err, snapship.ErrBackpressureExceeded))
	case <-time.After(2 * time.Second):
		t.Fatal("expected backpressure fault")
	}
	assert.Equal(t, snapship.StateCrashed, s.Status())
	assert.ErrorIs(t, s.Err(), snapship.ErrBackpressureExceeded)

	close(release)
	assert.NoError(t, s.Stop())
}

func TestSnapship_Prune(t *testing.T) {
	dir := t.TempDir()
	cfg := snapship.DefaultConfig()
	cfg.Dir = dir
	cfg.Retention = snapship.RetentionConfig{Enabled: true, Interval: time.Hour, MaxFiles: 2}

	var observed []snapship.PruneResult
	clock := time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)
	s, err := snapship.New(cfg,
		snapship.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
		snapship.WithPruneObserver(func(r snapship.PruneResult) { observed = append(observed, r) }),
	)
	require.NoError(t, err)

	var last snapship.CompletedEvent
	for i := 0; i < 4; i++ {
		last, err = s.SnapshotNow(context.Background(), entities("1"))
		require.NoError(t, err)
	}

	res, err := s.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 2, res.RemainingFiles)
	require.Len(t, observed, 1)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Base(last.FilePath), files[1].Name())
}
