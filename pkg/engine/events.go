package engine

import (
	"context"
	"time"

	"github.com/smilemakc/flowgraph/pkg/models"
)

// EventType identifies a lifecycle event (dot notation).
type EventType string

const (
	EventTypeExecutionStarted   EventType = "execution.started"
	EventTypeExecutionCompleted EventType = "execution.completed"
	EventTypeExecutionFailed    EventType = "execution.failed"
	EventTypeExecutionPaused    EventType = "execution.paused"
	EventTypeExecutionResumed   EventType = "execution.resumed"
	EventTypeExecutionCanceled  EventType = "execution.canceled"
	EventTypeBatchStarted       EventType = "batch.started"
	EventTypeBatchCompleted     EventType = "batch.completed"
	EventTypeNodeStarted        EventType = "node.started"
	EventTypeNodeCompleted      EventType = "node.completed"
	EventTypeNodeFailed         EventType = "node.failed"
	EventTypeNodeSkipped        EventType = "node.skipped"
	EventTypeLoopIteration      EventType = "loop.iteration"
)

// ExecutionEvent is a diagnostic event emitted during a run.
type ExecutionEvent struct {
	Type        EventType
	ExecutionID string
	WorkflowID  string
	NodeID      string
	NodeName    string
	NodeType    string
	BatchIndex  int
	NodeCount   int
	Status      models.ExecutionStatus
	Error       error
	Output      map[string]interface{}
	DurationMs  int64
	Message     string
	Timestamp   time.Time
}

// ExecutionNotifier receives diagnostic events. Implementations must be safe
// for concurrent calls; node events fire from handler goroutines.
type ExecutionNotifier interface {
	Notify(ctx context.Context, event ExecutionEvent)
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

// Notify does nothing.
func (NoopNotifier) Notify(context.Context, ExecutionEvent) {}

// ProgressUpdate is a fire-and-forget status snapshot for external sinks.
type ProgressUpdate struct {
	ExecutionID  string                 `json:"execution_id"`
	Status       models.ExecutionStatus `json:"status"`
	Progress     int                    `json:"progress"`
	Completed    []string               `json:"completed"`
	Failed       []string               `json:"failed"`
	CurrentBatch []string               `json:"current_batch,omitempty"`
}

// ProgressSink receives progress updates at every status transition.
// Implementations must not block the orchestrator.
type ProgressSink interface {
	Publish(ctx context.Context, update ProgressUpdate)
}
