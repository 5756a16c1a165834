package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// MergeHandler combines the outputs of a node's parents. Parents that never
// produced an output (skipped branches) contribute nothing, so merging
// after a conditional keeps only the taken branch.
type MergeHandler struct {
	*executor.BaseHandler
}

// NewMergeHandler creates a merge handler.
func NewMergeHandler() *MergeHandler {
	return &MergeHandler{BaseHandler: executor.NewBaseHandler("merge")}
}

// Execute merges parent outputs per the configured strategy:
//   - "all" (default): every present parent output, keyed branch_<i> in
//     dependency order
//   - "first": the first present parent output alone
//   - "flat": present parent outputs shallow-merged into one object
func (h *MergeHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	strategy := h.GetStringDefault(inv.Config, "merge_strategy", "all")

	var present []map[string]interface{}
	for _, dep := range inv.Dependencies {
		if out, ok := inv.Snapshot.NodeOutputs[dep]; ok {
			present = append(present, out)
		}
	}

	switch strategy {
	case "all":
		merged := make(map[string]interface{}, len(present))
		for i, out := range present {
			merged[fmt.Sprintf("branch_%d", i)] = out
		}
		return executor.OK(map[string]interface{}{"merged": merged}), nil

	case "first":
		if len(present) == 0 {
			return executor.OK(map[string]interface{}{"merged": nil}), nil
		}
		return executor.OK(map[string]interface{}{"merged": present[0]}), nil

	case "flat":
		merged := make(map[string]interface{})
		for _, out := range present {
			for k, v := range out {
				merged[k] = v
			}
		}
		return executor.OK(map[string]interface{}{"merged": merged}), nil

	default:
		return executor.Failf("unknown merge strategy: %s", strategy), nil
	}
}

// Validate checks the strategy name.
func (h *MergeHandler) Validate(config map[string]interface{}) error {
	strategy := h.GetStringDefault(config, "merge_strategy", "all")
	switch strategy {
	case "all", "first", "flat":
		return nil
	default:
		return fmt.Errorf("invalid merge strategy: %s", strategy)
	}
}
