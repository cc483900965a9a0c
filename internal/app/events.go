package app

import (
	"sync"
	"time"
)

// StartedEvent is emitted when the scheduler begins ticking.
type StartedEvent struct {
	Interval time.Duration
}

// CompletedEvent is emitted after a snapshot file has been written.
type CompletedEvent struct {
	FilePath    string
	EntityCount int
	Timestamp   time.Time
}

// SkippedEvent is emitted when a tick fires while the previous snapshot is
// still being taken.
type SkippedEvent struct {
	Reason       string
	PendingCount int
}

// ErrorEvent is emitted when one snapshot fails. The schedule keeps running.
type ErrorEvent struct {
	Err       error
	Message   string
	Timestamp time.Time
}

// FatalEvent is emitted once when overlapping ticks reach the threshold and
// the scheduler stops itself.
type FatalEvent struct {
	Err          error
	PendingCount int
}

// StoppedEvent is emitted when the scheduler transitions from running to stopped.
type StoppedEvent struct {
	Timestamp time.Time
}

// EventHandler receives scheduler lifecycle events.
// Calls are serialized: a handler never receives two events concurrently, and
// events arrive in the order the scheduler decided them. A handler may call
// back into the scheduler (e.g. Stop); the resulting events are delivered
// after the current call returns.
type EventHandler interface {
	OnStarted(StartedEvent)
	OnCompleted(CompletedEvent)
	OnSkipped(SkippedEvent)
	OnError(ErrorEvent)
	OnFatal(FatalEvent)
	OnStopped(StoppedEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle a
// subset of events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStarted(StartedEvent)     {}
func (BaseEventHandler) OnCompleted(CompletedEvent) {}
func (BaseEventHandler) OnSkipped(SkippedEvent)     {}
func (BaseEventHandler) OnError(ErrorEvent)         {}
func (BaseEventHandler) OnFatal(FatalEvent)         {}
func (BaseEventHandler) OnStopped(StoppedEvent)     {}

// EventHandlers fans every event out to each handler in order.
type EventHandlers []EventHandler

func (hs EventHandlers) OnStarted(e StartedEvent) {
	for _, h := range hs {
		h.OnStarted(e)
	}
}

func (hs EventHandlers) OnCompleted(e CompletedEvent) {
	for _, h := range hs {
		h.OnCompleted(e)
	}
}

func (hs EventHandlers) OnSkipped(e SkippedEvent) {
	for _, h := range hs {
		h.OnSkipped(e)
	}
}

func (hs EventHandlers) OnError(e ErrorEvent) {
	for _, h := range hs {
		h.OnError(e)
	}
}

func (hs EventHandlers) OnFatal(e FatalEvent) {
	for _, h := range hs {
		h.OnFatal(e)
	}
}

func (hs EventHandlers) OnStopped(e StoppedEvent) {
	for _, h := range hs {
		h.OnStopped(e)
	}
}

// eventQueue delivers events to a handler in push order.
// push is called while the scheduler holds its own lock, which fixes the
// order; drain is called after that lock is released. Whichever goroutine
// finds the queue idle delivers everything queued, including events pushed by
// handlers during delivery.
type eventQueue struct {
	mu       sync.Mutex
	pending  []func(EventHandler)
	draining bool
	handler  EventHandler
}

func newEventQueue(handler EventHandler) *eventQueue {
	return &eventQueue{handler: handler}
}

func (q *eventQueue) push(deliver func(EventHandler)) {
	q.mu.Lock()
	q.pending = append(q.pending, deliver)
	q.mu.Unlock()
}

func (q *eventQueue) drain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	for len(q.pending) > 0 {
		deliver := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()
		deliver(q.handler)
		q.mu.Lock()
	}
	q.draining = false
	q.mu.Unlock()
}
