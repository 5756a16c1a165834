package engine

import (
	"github.com/smilemakc/flowgraph/pkg/executor"
	"github.com/smilemakc/flowgraph/pkg/plan"
)

// copyMap deep-copies a JSON-shaped map.
func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue deep-copies a JSON-shaped value. Scalars are returned as-is.
func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// prepareInput builds a node's merged input from the snapshot, mirroring
// how parents feed their children:
//   - no parents: the workflow inputs
//   - one parent: inputs overlaid with the parent output
//   - multiple parents: outputs namespaced by parent id
//
// Parents without a stored output (skipped branches) contribute nothing.
func prepareInput(n *plan.ExecutableNode, snap *executor.Snapshot) map[string]interface{} {
	switch len(n.Dependencies) {
	case 0:
		return copyMap(snap.Inputs)

	case 1:
		input := make(map[string]interface{}, len(snap.Inputs))
		for k, v := range snap.Inputs {
			input[k] = v
		}
		if out, ok := snap.NodeOutputs[n.Dependencies[0]]; ok {
			for k, v := range out {
				input[k] = v
			}
		}
		return input

	default:
		input := make(map[string]interface{}, len(n.Dependencies))
		for _, dep := range n.Dependencies {
			if out, ok := snap.NodeOutputs[dep]; ok {
				input[dep] = out
			}
		}
		return input
	}
}

// loopScopeMap exposes a loop scope to templates.
func loopScopeMap(s *executor.LoopScope) map[string]interface{} {
	if s == nil {
		return nil
	}
	return map[string]interface{}{
		"loopId": s.LoopID,
		"index":  s.Index,
		"item":   s.Item,
		"total":  s.Total,
	}
}

// parallelScopeMap exposes a parallel scope to templates.
func parallelScopeMap(s *executor.ParallelScope) map[string]interface{} {
	if s == nil {
		return nil
	}
	return map[string]interface{}{
		"parallelId":  s.ParallelID,
		"branchIndex": s.BranchIndex,
	}
}

// mergeVariables layers execution variables over workflow variables.
func mergeVariables(workflowVars, executionVars map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for k, v := range workflowVars {
		merged[k] = v
	}
	for k, v := range executionVars {
		merged[k] = v
	}
	return merged
}
