// Package observer fans execution events out to pluggable observers:
// logging, metrics, websocket streams. The Manager implements the engine's
// ExecutionNotifier so it can be passed directly into engine options.
package observer

import (
	"context"

	"github.com/smilemakc/flowgraph/pkg/engine"
)

// Observer receives execution events.
type Observer interface {
	// OnEvent is called for every event passing the observer's filter.
	OnEvent(ctx context.Context, event engine.ExecutionEvent) error

	// Name is the observer's unique identifier.
	Name() string

	// Filter returns the event filter (nil = all events).
	Filter() EventFilter
}

// EventFilter decides which events reach an observer.
type EventFilter interface {
	ShouldNotify(event engine.ExecutionEvent) bool
}

// EventTypeFilter filters events by type.
type EventTypeFilter struct {
	allowed map[engine.EventType]bool
}

// NewEventTypeFilter creates a filter for specific event types. With no
// types it allows everything.
func NewEventTypeFilter(types ...engine.EventType) EventFilter {
	if len(types) == 0 {
		return nil
	}
	f := &EventTypeFilter{allowed: make(map[engine.EventType]bool, len(types))}
	for _, t := range types {
		f.allowed[t] = true
	}
	return f
}

// ShouldNotify checks the event type against the allow set.
func (f *EventTypeFilter) ShouldNotify(event engine.ExecutionEvent) bool {
	if f == nil || len(f.allowed) == 0 {
		return true
	}
	return f.allowed[event.Type]
}

// ExecutionIDFilter only passes events for one execution.
type ExecutionIDFilter struct {
	executionID string
}

// NewExecutionIDFilter creates a single-execution filter.
func NewExecutionIDFilter(executionID string) EventFilter {
	return &ExecutionIDFilter{executionID: executionID}
}

// ShouldNotify matches the execution id.
func (f *ExecutionIDFilter) ShouldNotify(event engine.ExecutionEvent) bool {
	return event.ExecutionID == f.executionID
}
