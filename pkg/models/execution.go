package models

import (
	"time"
)

// Execution represents a single workflow execution instance.
type Execution struct {
	ID             string                 `json:"id"`
	WorkflowID     string                 `json:"workflow_id"`
	WorkflowName   string                 `json:"workflow_name,omitempty"`
	Status         ExecutionStatus        `json:"status"`
	Input          map[string]interface{} `json:"input,omitempty"`
	Output         map[string]interface{} `json:"output,omitempty"`
	Error          string                 `json:"error,omitempty"`
	WaitpointID    string                 `json:"waitpoint_id,omitempty"`
	NodeExecutions []*NodeExecution       `json:"node_executions,omitempty"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Duration       int64                  `json:"duration,omitempty"` // milliseconds
	TriggeredBy    string                 `json:"triggered_by,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ExecutionStatus represents the status of an execution.
type ExecutionStatus string

const (
	ExecutionStatusInitializing ExecutionStatus = "initializing"
	ExecutionStatusBuildingPlan ExecutionStatus = "building-plan"
	ExecutionStatusRunning      ExecutionStatus = "running"
	ExecutionStatusPaused       ExecutionStatus = "paused"
	ExecutionStatusCompleted    ExecutionStatus = "completed"
	// ExecutionStatusCompletedWithErrors means the run finished but at least
	// one node failed (its error-port branch may still have completed).
	ExecutionStatusCompletedWithErrors ExecutionStatus = "completed_with_errors"
	ExecutionStatusFailed              ExecutionStatus = "failed"
	ExecutionStatusCanceled            ExecutionStatus = "canceled"
)

// IsTerminal returns true if the execution status is terminal.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted ||
		s == ExecutionStatusCompletedWithErrors ||
		s == ExecutionStatusFailed ||
		s == ExecutionStatusCanceled
}

// NodeExecution represents the execution of a single node within a run.
type NodeExecution struct {
	ID             string                 `json:"id"`
	ExecutionID    string                 `json:"execution_id"`
	NodeID         string                 `json:"node_id"`
	NodeName       string                 `json:"node_name,omitempty"`
	NodeType       string                 `json:"node_type,omitempty"`
	Status         NodeStatus             `json:"status"`
	Input          map[string]interface{} `json:"input,omitempty"`
	Output         map[string]interface{} `json:"output,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
	ResolvedConfig map[string]interface{} `json:"resolved_config,omitempty"`
	Error          string                 `json:"error,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Duration       int64                  `json:"duration,omitempty"` // milliseconds
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// NodeStatus represents the scheduling state of a node within an execution.
// The five states are disjoint; completed, failed and skipped are terminal.
type NodeStatus string

const (
	NodeStatusPending    NodeStatus = "pending"
	NodeStatusInProgress NodeStatus = "in_progress"
	NodeStatusCompleted  NodeStatus = "completed"
	NodeStatusFailed     NodeStatus = "failed"
	NodeStatusSkipped    NodeStatus = "skipped"
)

// IsTerminal returns true if the node status is terminal.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeStatusCompleted ||
		s == NodeStatusFailed ||
		s == NodeStatusSkipped
}

// GetNodeExecution returns a node execution by node ID.
func (e *Execution) GetNodeExecution(nodeID string) (*NodeExecution, error) {
	for _, ne := range e.NodeExecutions {
		if ne.NodeID == nodeID {
			return ne, nil
		}
	}
	return nil, ErrNodeNotFound
}

// CalculateDuration calculates the execution duration in milliseconds.
func (e *Execution) CalculateDuration() int64 {
	if e.CompletedAt == nil {
		return time.Since(e.StartedAt).Milliseconds()
	}
	return e.CompletedAt.Sub(e.StartedAt).Milliseconds()
}

// CalculateDuration calculates the node execution duration in milliseconds.
func (ne *NodeExecution) CalculateDuration() int64 {
	if ne.CompletedAt == nil {
		return time.Since(ne.StartedAt).Milliseconds()
	}
	return ne.CompletedAt.Sub(ne.StartedAt).Milliseconds()
}
