package engine

import (
	"encoding/json"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// Truncation sentinel keys.
const (
	keyTruncated    = "truncated"
	keyOriginalSize = "originalSize"
	keyPreview      = "preview"
)

// ContextManager is the shared substrate holding per-node outputs, workflow
// variables and loop/parallel scopes for one execution. It is owned by the
// orchestration goroutine; handlers only ever see snapshots.
type ContextManager struct {
	inputs        map[string]interface{}
	nodeOutputs   map[string]map[string]interface{}
	variables     map[string]interface{}
	loopStack     []executor.LoopScope
	parallelStack []executor.ParallelScope
	maxOutputSize int
}

// NewContextManager creates a context with the given workflow inputs.
// maxOutputSize <= 0 selects the default cap.
func NewContextManager(inputs map[string]interface{}, maxOutputSize int) *ContextManager {
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	if maxOutputSize <= 0 {
		maxOutputSize = DefaultMaxOutputSize
	}
	return &ContextManager{
		inputs:        inputs,
		nodeOutputs:   make(map[string]map[string]interface{}),
		variables:     make(map[string]interface{}),
		maxOutputSize: maxOutputSize,
	}
}

// Inputs returns the workflow input map. Callers must not mutate it.
func (c *ContextManager) Inputs() map[string]interface{} { return c.inputs }

// SetNodeOutput stores a node output, applying the truncation rule: an
// output whose JSON serialization exceeds the cap is replaced by
// {truncated, originalSize, preview}.
func (c *ContextManager) SetNodeOutput(id string, output map[string]interface{}) {
	if output == nil {
		output = map[string]interface{}{}
	}

	data, err := json.Marshal(output)
	if err == nil && len(data) > c.maxOutputSize {
		preview := data
		if len(preview) > TruncationPreviewSize {
			preview = preview[:TruncationPreviewSize]
		}
		output = map[string]interface{}{
			keyTruncated:    true,
			keyOriginalSize: len(data),
			keyPreview:      string(preview),
		}
	}

	c.nodeOutputs[id] = output
}

// GetNodeOutput returns a node's stored output.
func (c *ContextManager) GetNodeOutput(id string) (map[string]interface{}, bool) {
	out, ok := c.nodeOutputs[id]
	return out, ok
}

// HasNodeOutput reports whether a node output is stored.
func (c *ContextManager) HasNodeOutput(id string) bool {
	_, ok := c.nodeOutputs[id]
	return ok
}

// ClearNodeOutput removes one node's output (loop region reset).
func (c *ContextManager) ClearNodeOutput(id string) {
	delete(c.nodeOutputs, id)
}

// SetVariable sets a workflow variable.
func (c *ContextManager) SetVariable(name string, value interface{}) {
	c.variables[name] = value
}

// GetVariable returns a workflow variable.
func (c *ContextManager) GetVariable(name string) (interface{}, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// DeleteVariable removes a workflow variable; a subsequent get reports "not
// present".
func (c *ContextManager) DeleteVariable(name string) {
	delete(c.variables, name)
}

// Variables returns the live variable map. Callers must not mutate it.
func (c *ContextManager) Variables() map[string]interface{} { return c.variables }

// EnterLoop pushes a loop scope.
func (c *ContextManager) EnterLoop(loopID string, index int, item interface{}, total int) {
	c.loopStack = append(c.loopStack, executor.LoopScope{
		LoopID: loopID,
		Index:  index,
		Item:   item,
		Total:  total,
	})
}

// UpdateLoopIteration advances the innermost loop scope.
func (c *ContextManager) UpdateLoopIteration(index int, item interface{}) {
	if len(c.loopStack) == 0 {
		return
	}
	top := &c.loopStack[len(c.loopStack)-1]
	top.Index = index
	top.Item = item
}

// ExitLoop pops the innermost loop scope.
func (c *ContextManager) ExitLoop() {
	if len(c.loopStack) > 0 {
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
	}
}

// CurrentLoop returns a copy of the innermost loop scope.
func (c *ContextManager) CurrentLoop() (executor.LoopScope, bool) {
	if len(c.loopStack) == 0 {
		return executor.LoopScope{}, false
	}
	return c.loopStack[len(c.loopStack)-1], true
}

// EnterParallel pushes a parallel scope.
func (c *ContextManager) EnterParallel(parallelID string, branchIndex int) {
	c.parallelStack = append(c.parallelStack, executor.ParallelScope{
		ParallelID:  parallelID,
		BranchIndex: branchIndex,
	})
}

// ExitParallel pops the innermost parallel scope.
func (c *ContextManager) ExitParallel() {
	if len(c.parallelStack) > 0 {
		c.parallelStack = c.parallelStack[:len(c.parallelStack)-1]
	}
}

// Snapshot returns an immutable structural copy of the context. Mutating
// the snapshot (or anything reachable from it) has no effect on the live
// context or on later snapshots.
func (c *ContextManager) Snapshot() *executor.Snapshot {
	snap := &executor.Snapshot{
		Inputs:      copyMap(c.inputs),
		Variables:   copyMap(c.variables),
		NodeOutputs: make(map[string]map[string]interface{}, len(c.nodeOutputs)),
	}
	for id, out := range c.nodeOutputs {
		snap.NodeOutputs[id] = copyMap(out)
	}
	if len(c.loopStack) > 0 {
		top := c.loopStack[len(c.loopStack)-1]
		top.Item = copyValue(top.Item)
		snap.Loop = &top
	}
	if len(c.parallelStack) > 0 {
		top := c.parallelStack[len(c.parallelStack)-1]
		snap.Parallel = &top
	}
	return snap
}

// PruneUnusedOutputs drops every stored output whose id is absent from the
// still-needed set. The executor calls this between batches to bound memory
// to the live frontier.
func (c *ContextManager) PruneUnusedOutputs(stillNeeded map[string]bool) {
	for id := range c.nodeOutputs {
		if !stillNeeded[id] {
			delete(c.nodeOutputs, id)
		}
	}
}

// FinalOutputs builds the outcome output map: stored outputs keyed by the
// given node ids, plus a __variables key when any variable is set.
func (c *ContextManager) FinalOutputs(ids []string) map[string]interface{} {
	out := make(map[string]interface{})
	for _, id := range ids {
		if output, ok := c.nodeOutputs[id]; ok {
			out[id] = copyMap(output)
		}
	}
	if len(c.variables) > 0 {
		out["__variables"] = copyMap(c.variables)
	}
	return out
}
