// Package models defines the database models for the persistence
// collaborator.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	domain "github.com/smilemakc/flowgraph/pkg/models"
)

// ExecutionModel represents a workflow execution instance in the database.
type ExecutionModel struct {
	bun.BaseModel `bun:"table:executions,alias:ex"`

	ID           string     `bun:"id,pk" json:"id"`
	WorkflowID   string     `bun:"workflow_id,notnull" json:"workflow_id"`
	WorkflowName string     `bun:"workflow_name" json:"workflow_name,omitempty"`
	Status       string     `bun:"status,notnull,default:'running'" json:"status"`
	InputData    JSONBMap   `bun:"input_data,type:jsonb,default:'{}'" json:"input_data,omitempty"`
	OutputData   JSONBMap   `bun:"output_data,type:jsonb" json:"output_data,omitempty"`
	Error        string     `bun:"error" json:"error,omitempty"`
	WaitpointID  string     `bun:"waitpoint_id" json:"waitpoint_id,omitempty"`
	StartedAt    time.Time  `bun:"started_at,notnull" json:"started_at"`
	CompletedAt  *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	DurationMs   int64      `bun:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	NodeExecutions []*NodeExecutionModel `bun:"rel:has-many,join:id=execution_id" json:"node_executions,omitempty"`
}

// NodeExecutionModel represents one node execution within a run.
type NodeExecutionModel struct {
	bun.BaseModel `bun:"table:node_executions,alias:nx"`

	ID             string     `bun:"id,pk" json:"id"`
	ExecutionID    string     `bun:"execution_id,notnull" json:"execution_id"`
	NodeID         string     `bun:"node_id,notnull" json:"node_id"`
	NodeName       string     `bun:"node_name" json:"node_name,omitempty"`
	NodeType       string     `bun:"node_type" json:"node_type,omitempty"`
	Status         string     `bun:"status,notnull" json:"status"`
	InputData      JSONBMap   `bun:"input_data,type:jsonb" json:"input_data,omitempty"`
	OutputData     JSONBMap   `bun:"output_data,type:jsonb" json:"output_data,omitempty"`
	ResolvedConfig JSONBMap   `bun:"resolved_config,type:jsonb" json:"resolved_config,omitempty"`
	Error          string     `bun:"error" json:"error,omitempty"`
	StartedAt      time.Time  `bun:"started_at" json:"started_at"`
	CompletedAt    *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	DurationMs     int64      `bun:"duration_ms" json:"duration_ms,omitempty"`
}

// WaitpointModel persists pause tokens so resumes survive process restarts.
type WaitpointModel struct {
	bun.BaseModel `bun:"table:waitpoints,alias:wp"`

	Token       string     `bun:"token,pk" json:"token"`
	ExecutionID string     `bun:"execution_id" json:"execution_id,omitempty"`
	NodeID      string     `bun:"node_id" json:"node_id,omitempty"`
	Reason      string     `bun:"reason" json:"reason,omitempty"`
	Status      string     `bun:"status,notnull,default:'waiting'" json:"status"`
	Output      JSONBMap   `bun:"output,type:jsonb" json:"output,omitempty"`
	Error       string     `bun:"error" json:"error,omitempty"`
	Deadline    *time.Time `bun:"deadline" json:"deadline,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ResolvedAt  *time.Time `bun:"resolved_at" json:"resolved_at,omitempty"`
}

// Waitpoint statuses.
const (
	WaitpointStatusWaiting   = "waiting"
	WaitpointStatusCompleted = "completed"
	WaitpointStatusFailed    = "failed"
	WaitpointStatusTimedOut  = "timed_out"
)

// FromExecution maps a domain execution to its database model.
func FromExecution(exec *domain.Execution) *ExecutionModel {
	m := &ExecutionModel{
		ID:           exec.ID,
		WorkflowID:   exec.WorkflowID,
		WorkflowName: exec.WorkflowName,
		Status:       string(exec.Status),
		InputData:    JSONBMap(exec.Input),
		OutputData:   JSONBMap(exec.Output),
		Error:        exec.Error,
		WaitpointID:  exec.WaitpointID,
		StartedAt:    exec.StartedAt,
		CompletedAt:  exec.CompletedAt,
		DurationMs:   exec.Duration,
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	for _, ne := range exec.NodeExecutions {
		nm := &NodeExecutionModel{
			ID:             ne.ID,
			ExecutionID:    m.ID,
			NodeID:         ne.NodeID,
			NodeName:       ne.NodeName,
			NodeType:       ne.NodeType,
			Status:         string(ne.Status),
			InputData:      JSONBMap(ne.Input),
			OutputData:     JSONBMap(ne.Output),
			ResolvedConfig: JSONBMap(ne.ResolvedConfig),
			Error:          ne.Error,
			StartedAt:      ne.StartedAt,
			CompletedAt:    ne.CompletedAt,
			DurationMs:     ne.Duration,
		}
		if nm.ID == "" {
			nm.ID = uuid.New().String()
		}
		m.NodeExecutions = append(m.NodeExecutions, nm)
	}

	return m
}

// ToExecution maps a database model back to the domain type.
func (m *ExecutionModel) ToExecution() *domain.Execution {
	exec := &domain.Execution{
		ID:           m.ID,
		WorkflowID:   m.WorkflowID,
		WorkflowName: m.WorkflowName,
		Status:       domain.ExecutionStatus(m.Status),
		Input:        map[string]interface{}(m.InputData),
		Output:       map[string]interface{}(m.OutputData),
		Error:        m.Error,
		WaitpointID:  m.WaitpointID,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		Duration:     m.DurationMs,
	}

	for _, nm := range m.NodeExecutions {
		exec.NodeExecutions = append(exec.NodeExecutions, &domain.NodeExecution{
			ID:             nm.ID,
			ExecutionID:    nm.ExecutionID,
			NodeID:         nm.NodeID,
			NodeName:       nm.NodeName,
			NodeType:       nm.NodeType,
			Status:         domain.NodeStatus(nm.Status),
			Input:          map[string]interface{}(nm.InputData),
			Output:         map[string]interface{}(nm.OutputData),
			ResolvedConfig: map[string]interface{}(nm.ResolvedConfig),
			Error:          nm.Error,
			StartedAt:      nm.StartedAt,
			CompletedAt:    nm.CompletedAt,
			Duration:       nm.DurationMs,
		})
	}

	return exec
}
