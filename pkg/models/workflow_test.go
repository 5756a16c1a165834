package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *Definition {
	return &Definition{
		ID:   "wf-1",
		Name: "test",
		Nodes: []*Node{
			{ID: "a", Name: "a", Type: "input"},
			{ID: "b", Name: "b", Type: "task"},
		},
		Edges: []*Edge{
			{From: "a", To: "b"},
		},
	}
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validDefinition().Validate())

	t.Run("missing name", func(t *testing.T) {
		def := validDefinition()
		def.Name = ""
		assert.Error(t, def.Validate())
	})

	t.Run("no nodes", func(t *testing.T) {
		def := validDefinition()
		def.Nodes = nil
		assert.Error(t, def.Validate())
	})

	t.Run("duplicate node id", func(t *testing.T) {
		def := validDefinition()
		def.Nodes = append(def.Nodes, &Node{ID: "a", Name: "dup", Type: "task"})
		assert.Error(t, def.Validate())
	})

	t.Run("node without type", func(t *testing.T) {
		def := validDefinition()
		def.Nodes[0].Type = ""
		assert.Error(t, def.Validate())
	})

	t.Run("edge without endpoints", func(t *testing.T) {
		def := validDefinition()
		def.Edges = append(def.Edges, &Edge{From: "", To: "b"})
		assert.Error(t, def.Validate())
	})

	t.Run("unknown entry node", func(t *testing.T) {
		def := validDefinition()
		def.EntryNodeID = "ghost"
		assert.Error(t, def.Validate())
	})
}

func TestDefinition_AddNodeAndEdge(t *testing.T) {
	t.Parallel()

	def := validDefinition()

	require.NoError(t, def.AddNode(&Node{ID: "c", Name: "c", Type: "task"}))
	assert.Error(t, def.AddNode(&Node{ID: "c", Name: "dup", Type: "task"}))

	require.NoError(t, def.AddEdge(&Edge{From: "b", To: "c"}))
	assert.Error(t, def.AddEdge(&Edge{From: "b", To: "ghost"}))
}

func TestDefinition_Clone(t *testing.T) {
	t.Parallel()

	def := validDefinition()
	def.Variables = map[string]interface{}{"k": "v"}

	clone, err := def.Clone()
	require.NoError(t, err)

	clone.Nodes[0].ID = "mutated"
	clone.Variables["k"] = "changed"

	assert.Equal(t, "a", def.Nodes[0].ID)
	assert.Equal(t, "v", def.Variables["k"])
}

func TestEdge_IsErrorPort(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Edge{SourcePort: PortError}).IsErrorPort())
	assert.False(t, (&Edge{SourcePort: PortTrue}).IsErrorPort())
	assert.False(t, (&Edge{}).IsErrorPort())
}

func TestStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []ExecutionStatus{
		ExecutionStatusCompleted,
		ExecutionStatusCompletedWithErrors,
		ExecutionStatusFailed,
		ExecutionStatusCanceled,
	} {
		assert.True(t, s.IsTerminal(), string(s))
	}
	for _, s := range []ExecutionStatus{
		ExecutionStatusRunning,
		ExecutionStatusPaused,
		ExecutionStatusInitializing,
	} {
		assert.False(t, s.IsTerminal(), string(s))
	}

	assert.True(t, NodeStatusSkipped.IsTerminal())
	assert.False(t, NodeStatusInProgress.IsTerminal())
}
