// Package notify implements the best-effort, fire-and-forget notification
// publisher for SWS mutations: a bounded async queue drained by a single
// worker goroutine, matching spec.md §4.7 ("publisher error is logged,
// never propagated back to the request reply").
package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize bounds the pending-event queue before events start
// being dropped.
const DefaultQueueSize = 256

// Action enumerates the kinds of document mutation a notification reports.
type Action string

const (
	ActionCreated Action = "CREATED"
	ActionUpdated Action = "UPDATED"
	ActionDeleted Action = "DELETED"
)

// Event is the notification payload (spec.md §6.2), secrets already
// stripped by the caller before it reaches the manager.
type Event struct {
	Action            Action
	Portfolio         string
	OldData           map[string]interface{}
	NewData           map[string]interface{}
	NonSecretChanged  *bool
	SecretChanged     *bool
}

// Publisher is the out-of-scope stream-publisher collaborator (spec.md
// §1); internal/transport provides the in-process stand-in used by tests
// and the local daemon.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Manager is the async bounded notifier. Per-server ordering is preserved
// because Send always delivers to the same single worker goroutine in call
// order.
type Manager struct {
	publisher Publisher
	queue     chan Event
	done      chan struct{}
	wg        sync.WaitGroup

	mu      sync.RWMutex
	running bool

	dropped   int64
	onDropped func()
	onError   func(error)
}

// Option customizes Manager construction.
type Option func(*Manager)

// WithOnDropped registers a callback invoked (synchronously, from Send)
// whenever a full queue forces an event to be dropped — wired to
// internal/metrics by the server setup.
func WithOnDropped(fn func()) Option {
	return func(m *Manager) { m.onDropped = fn }
}

// WithOnError registers a callback invoked whenever the publisher returns
// an error, so the caller can log it without the notifier importing a
// logging package directly.
func WithOnError(fn func(error)) Option {
	return func(m *Manager) { m.onError = fn }
}

// NewManager creates a manager with the given queue size (DefaultQueueSize
// if queueSize <= 0) publishing through publisher.
func NewManager(publisher Publisher, queueSize int, opts ...Option) *Manager {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	m := &Manager{
		publisher: publisher,
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the background worker. Must be called before Send.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.worker(ctx)
}

// Stop drains pending events and shuts the worker down.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

// Send enqueues event for publication. Never blocks: if the queue is full,
// the new event is dropped and the drop counter is incremented (spec.md §9
// — best-effort, no replay, no ack).
func (m *Manager) Send(event Event) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return
	}

	select {
	case m.queue <- event:
	default:
		atomic.AddInt64(&m.dropped, 1)
		if m.onDropped != nil {
			m.onDropped()
		}
	}
}

// DroppedCount returns the number of events dropped due to a full queue.
func (m *Manager) DroppedCount() int64 {
	return atomic.LoadInt64(&m.dropped)
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.drain()
			return
		case <-m.done:
			m.drain()
			return
		case event := <-m.queue:
			m.publish(ctx, event)
		}
	}
}

func (m *Manager) drain() {
	for {
		select {
		case event := <-m.queue:
			m.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (m *Manager) publish(ctx context.Context, event Event) {
	if err := m.publisher.Publish(ctx, event); err != nil && m.onError != nil {
		m.onError(err)
	}
}
