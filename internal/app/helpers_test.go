package app

import (
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/snapship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// recorder collects every event in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recorder) add(e interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnStarted(e StartedEvent)     { r.add(e) }
func (r *recorder) OnCompleted(e CompletedEvent) { r.add(e) }
func (r *recorder) OnSkipped(e SkippedEvent)     { r.add(e) }
func (r *recorder) OnError(e ErrorEvent)         { r.add(e) }
func (r *recorder) OnFatal(e FatalEvent)         { r.add(e) }
func (r *recorder) OnStopped(e StoppedEvent)     { r.add(e) }

func (r *recorder) Events() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}{}, r.events...)
}

func (r *recorder) count(match func(interface{}) bool) int {
	n := 0
	for _, e := range r.Events() {
		if match(e) {
			n++
		}
	}
	return n
}

func isCompleted(e interface{}) bool { _, ok := e.(CompletedEvent); return ok }
func isSkipped(e interface{}) bool   { _, ok := e.(SkippedEvent); return ok }
func isError(e interface{}) bool     { _, ok := e.(ErrorEvent); return ok }
func isFatal(e interface{}) bool     { _, ok := e.(FatalEvent); return ok }
func isStopped(e interface{}) bool   { _, ok := e.(StoppedEvent); return ok }

// waitUntil polls cond until it holds or the timeout expires.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
