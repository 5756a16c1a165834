package observer

import (
	"context"
	"fmt"
	"sync"

	"github.com/smilemakc/flowgraph/internal/infrastructure/logger"
	"github.com/smilemakc/flowgraph/pkg/engine"
)

// Manager fans events out to registered observers without blocking the
// orchestrator: Notify enqueues into a buffered channel drained by a single
// worker goroutine. Observer panics and errors are logged, never propagated.
type Manager struct {
	mu        sync.RWMutex
	observers []Observer

	logger     *logger.Logger
	bufferSize int

	events chan eventEnvelope
	once   sync.Once
	done   chan struct{}
	wg     sync.WaitGroup
}

type eventEnvelope struct {
	ctx   context.Context
	event engine.ExecutionEvent
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithBufferSize sets the event queue depth; events beyond it are dropped.
func WithBufferSize(size int) ManagerOption {
	return func(m *Manager) { m.bufferSize = size }
}

// NewManager creates a manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		bufferSize: 256,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = make(chan eventEnvelope, m.bufferSize)
	return m
}

// Register adds an observer. Names must be unique.
func (m *Manager) Register(observer Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obs := range m.observers {
		if obs.Name() == observer.Name() {
			return fmt.Errorf("observer with name %q already registered", observer.Name())
		}
	}
	m.observers = append(m.observers, observer)
	return nil
}

// Unregister removes an observer by name.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, obs := range m.observers {
		if obs.Name() == name {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("observer %q not found", name)
}

// Notify implements engine.ExecutionNotifier. It never blocks: when the
// queue is full the event is dropped (and the drop logged).
func (m *Manager) Notify(ctx context.Context, event engine.ExecutionEvent) {
	m.once.Do(m.startWorker)

	select {
	case m.events <- eventEnvelope{ctx: ctx, event: event}:
	default:
		if m.logger != nil {
			m.logger.Warn("observer event dropped",
				"type", string(event.Type),
				"execution_id", event.ExecutionID)
		}
	}
}

// Close drains the queue and stops the worker.
func (m *Manager) Close() {
	m.once.Do(m.startWorker)
	close(m.done)
	m.wg.Wait()
}

func (m *Manager) startWorker() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case env := <-m.events:
				m.dispatch(env.ctx, env.event)
			case <-m.done:
				for {
					select {
					case env := <-m.events:
						m.dispatch(env.ctx, env.event)
					default:
						return
					}
				}
			}
		}
	}()
}

func (m *Manager) dispatch(ctx context.Context, event engine.ExecutionEvent) {
	m.mu.RLock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.RUnlock()

	for _, obs := range observers {
		if filter := obs.Filter(); filter != nil && !filter.ShouldNotify(event) {
			continue
		}
		m.safeNotify(ctx, obs, event)
	}
}

func (m *Manager) safeNotify(ctx context.Context, obs Observer, event engine.ExecutionEvent) {
	defer func() {
		if r := recover(); r != nil && m.logger != nil {
			m.logger.Error("observer panicked",
				"observer", obs.Name(),
				"panic", fmt.Sprintf("%v", r))
		}
	}()

	if err := obs.OnEvent(ctx, event); err != nil && m.logger != nil {
		m.logger.Warn("observer error",
			"observer", obs.Name(),
			"error", err.Error())
	}
}
