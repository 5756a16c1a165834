package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/flowgraph/pkg/models"
)

// Outcome is the result of running a plan to completion, pause or failure.
type Outcome struct {
	ExecutionID string
	WorkflowID  string
	Status      models.ExecutionStatus
	Success     bool

	// Outputs holds terminal node outputs plus __variables (terminal runs).
	Outputs map[string]interface{}

	// PartialOutputs holds completed-node outputs when paused.
	PartialOutputs map[string]interface{}

	// WaitpointID is set when Status is paused.
	WaitpointID string

	CompletedNodes []string
	FailedNodes    []string
	SkippedNodes   []string

	Error      string
	Warnings   []string
	StartedAt  time.Time
	DurationMs int64

	records []*nodeRecord
	inputs  map[string]interface{}
}

// IsPaused reports whether the run suspended at a waitpoint.
func (o *Outcome) IsPaused() bool {
	return o.Status == models.ExecutionStatusPaused
}

// nodeRecord captures per-node execution detail for the execution record.
type nodeRecord struct {
	nodeID         string
	nodeName       string
	nodeType       string
	status         models.NodeStatus
	input          map[string]interface{}
	output         map[string]interface{}
	config         map[string]interface{}
	resolvedConfig map[string]interface{}
	errMsg         string
	startedAt      time.Time
	endedAt        time.Time
}

// ToExecution converts the outcome into a persistable execution record with
// per-node detail.
func (o *Outcome) ToExecution(workflowName string) *models.Execution {
	inputs := o.inputs
	records := o.records
	completedAt := o.StartedAt.Add(time.Duration(o.DurationMs) * time.Millisecond)
	exec := &models.Execution{
		ID:           o.ExecutionID,
		WorkflowID:   o.WorkflowID,
		WorkflowName: workflowName,
		Status:       o.Status,
		Input:        inputs,
		Output:       o.Outputs,
		Error:        o.Error,
		WaitpointID:  o.WaitpointID,
		StartedAt:    o.StartedAt,
		Duration:     o.DurationMs,
	}
	if o.Status.IsTerminal() {
		exec.CompletedAt = &completedAt
	}

	for _, r := range records {
		ne := &models.NodeExecution{
			ID:             uuid.New().String(),
			ExecutionID:    o.ExecutionID,
			NodeID:         r.nodeID,
			NodeName:       r.nodeName,
			NodeType:       r.nodeType,
			Status:         r.status,
			Input:          r.input,
			Output:         r.output,
			Config:         r.config,
			ResolvedConfig: r.resolvedConfig,
			Error:          r.errMsg,
			StartedAt:      r.startedAt,
		}
		if !r.endedAt.IsZero() {
			ended := r.endedAt
			ne.CompletedAt = &ended
			ne.Duration = ended.Sub(r.startedAt).Milliseconds()
		}
		exec.NodeExecutions = append(exec.NodeExecutions, ne)
	}

	return exec
}
