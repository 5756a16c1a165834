package observer

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/smilemakc/flowgraph/pkg/engine"
)

// LoggerObserver writes the execution event stream as structured zerolog
// lines.
type LoggerObserver struct {
	log    zerolog.Logger
	filter EventFilter
}

// NewLoggerObserver creates a logger observer writing to w.
func NewLoggerObserver(w io.Writer, filter EventFilter) *LoggerObserver {
	return &LoggerObserver{
		log:    zerolog.New(w).With().Timestamp().Str("component", "flowgraph").Logger(),
		filter: filter,
	}
}

// Name identifies the observer.
func (o *LoggerObserver) Name() string { return "logger" }

// Filter returns the configured filter.
func (o *LoggerObserver) Filter() EventFilter { return o.filter }

// OnEvent logs one event.
func (o *LoggerObserver) OnEvent(_ context.Context, event engine.ExecutionEvent) error {
	entry := o.log.Info()
	switch event.Type {
	case engine.EventTypeNodeFailed, engine.EventTypeExecutionFailed:
		entry = o.log.Error()
	case engine.EventTypeNodeSkipped:
		entry = o.log.Debug()
	}

	entry = entry.
		Str("event", string(event.Type)).
		Str("execution_id", event.ExecutionID).
		Str("status", string(event.Status))

	if event.WorkflowID != "" {
		entry = entry.Str("workflow_id", event.WorkflowID)
	}
	if event.NodeID != "" {
		entry = entry.Str("node_id", event.NodeID).Str("node_type", event.NodeType)
	}
	if event.DurationMs > 0 {
		entry = entry.Int64("duration_ms", event.DurationMs)
	}
	if event.Error != nil {
		entry = entry.Err(event.Error)
	}

	entry.Msg(eventMessage(event))
	return nil
}

func eventMessage(event engine.ExecutionEvent) string {
	if event.Message != "" {
		return event.Message
	}
	return string(event.Type)
}
