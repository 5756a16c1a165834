package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/flowgraph/pkg/executor"
	"github.com/smilemakc/flowgraph/pkg/models"
)

// ConditionalHandler evaluates a boolean condition and routes execution
// through the "true" or "false" port.
type ConditionalHandler struct {
	*executor.BaseHandler
}

// NewConditionalHandler creates a conditional handler.
func NewConditionalHandler() *ConditionalHandler {
	return &ConditionalHandler{BaseHandler: executor.NewBaseHandler("conditional")}
}

// Execute evaluates the condition against the node input and selects the
// matching route.
func (h *ConditionalHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	condition, err := h.GetString(inv.Config, "condition")
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	env := map[string]interface{}{
		"input":     toAnyMap(inv.Input),
		"variables": toAnyMap(inv.Snapshot.Variables),
	}

	result, err := sharedConditions.EvaluateBool(condition, env)
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	route := models.PortFalse
	if result {
		route = models.PortTrue
	}

	res := executor.OK(map[string]interface{}{"result": result})
	res.Signals = &executor.Signals{SelectedRoute: route}
	return res, nil
}

// Validate requires a condition expression.
func (h *ConditionalHandler) Validate(config map[string]interface{}) error {
	if _, err := h.GetString(config, "condition"); err != nil {
		return fmt.Errorf("conditional node requires 'condition' field")
	}
	return nil
}
