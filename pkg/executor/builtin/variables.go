package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// VariableHandler writes workflow variables via the set-variable signal.
type VariableHandler struct {
	*executor.BaseHandler
}

// NewVariableHandler creates a variable handler.
func NewVariableHandler() *VariableHandler {
	return &VariableHandler{BaseHandler: executor.NewBaseHandler("variable")}
}

// Execute sets every name/value pair from the 'set' config map; names
// listed under 'unset' are deleted.
func (h *VariableHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	assignments, err := h.GetMap(inv.Config, "set")
	if err != nil {
		assignments = map[string]interface{}{}
	}

	vars := make(map[string]interface{}, len(assignments))
	for name, value := range assignments {
		vars[name] = value
	}

	if unset, err := h.GetSlice(inv.Config, "unset"); err == nil {
		for _, name := range unset {
			if s, ok := name.(string); ok {
				vars[s] = nil
			}
		}
	}

	if len(vars) == 0 {
		return executor.Failf("variable node requires 'set' or 'unset'"), nil
	}

	res := executor.OK(map[string]interface{}{"variables": assignments})
	res.Signals = &executor.Signals{SetVariables: vars}
	return res, nil
}

// Validate requires at least one assignment.
func (h *VariableHandler) Validate(config map[string]interface{}) error {
	_, setErr := h.GetMap(config, "set")
	_, unsetErr := h.GetSlice(config, "unset")
	if setErr != nil && unsetErr != nil {
		return fmt.Errorf("variable node requires 'set' or 'unset'")
	}
	return nil
}
