package discovery

import (
	"log/slog"
	"sync"
)

// notifierQueueSize bounds the pending event queue. A full queue drops
// the newest event rather than blocking the receive loop.
const notifierQueueSize = 256

// Notifier fans stream lifecycle events out to registered callbacks.
// Dispatch runs on a single goroutine, so each subscriber sees events
// in order; every callback invocation has its own panic boundary.
type Notifier struct {
	mu        sync.RWMutex
	callbacks []Callback
	closed    bool

	queue chan Event
	wg    sync.WaitGroup
}

// NewNotifier creates a notifier and starts its dispatch goroutine.
func NewNotifier() *Notifier {
	n := &Notifier{
		queue: make(chan Event, notifierQueueSize),
	}
	n.wg.Add(1)
	go n.dispatch()
	return n
}

// Add registers a callback for subsequent events.
func (n *Notifier) Add(cb Callback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callbacks = append(n.callbacks, cb)
}

// Publish enqueues an event for dispatch. Never blocks; the event is
// dropped with a warning when the queue is full or the notifier is
// closed.
func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- ev:
	default:
		slog.Warn("event queue full, dropping event",
			"type", ev.Type, "stream_id", ev.Stream.ID)
	}
}

// Close stops the dispatch goroutine after the queued events drain.
// Safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.queue)
	n.wg.Wait()
}

func (n *Notifier) dispatch() {
	defer n.wg.Done()
	for ev := range n.queue {
		n.mu.RLock()
		cbs := append([]Callback(nil), n.callbacks...)
		n.mu.RUnlock()

		for _, cb := range cbs {
			n.invoke(cb, ev)
		}
	}
}

// invoke runs one callback inside its own panic boundary so a broken
// subscriber cannot take down dispatch.
func (n *Notifier) invoke(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stream event callback panicked",
				"type", ev.Type, "stream_id", ev.Stream.ID, "panic", r)
		}
	}()
	cb(ev)
}
