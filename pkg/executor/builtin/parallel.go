package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// ParallelHandler opens a parallel boundary. Branches between the start and
// end nodes run concurrently through normal level scheduling; the handler's
// output fans the input out to every branch.
type ParallelHandler struct {
	*executor.BaseHandler
}

// NewParallelHandler creates a parallel handler.
func NewParallelHandler() *ParallelHandler {
	return &ParallelHandler{BaseHandler: executor.NewBaseHandler("parallel")}
}

// Execute passes the input through to the branches.
func (h *ParallelHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	return executor.OK(map[string]interface{}{"input": inv.Input}), nil
}

// ParallelEndHandler closes a parallel boundary and merges branch outputs,
// keyed branch_<i> in dependency order.
type ParallelEndHandler struct {
	*executor.BaseHandler
}

// NewParallelEndHandler creates a parallel-end handler.
func NewParallelEndHandler() *ParallelEndHandler {
	return &ParallelEndHandler{BaseHandler: executor.NewBaseHandler("parallel_end")}
}

// Execute collects present parent outputs into branches.
func (h *ParallelEndHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	branches := make(map[string]interface{})
	i := 0
	for _, dep := range inv.Dependencies {
		if out, ok := inv.Snapshot.NodeOutputs[dep]; ok {
			branches[fmt.Sprintf("branch_%d", i)] = out
			i++
		}
	}
	return executor.OK(map[string]interface{}{"branches": branches}), nil
}
