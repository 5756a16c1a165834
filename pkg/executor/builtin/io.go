// Package builtin provides the built-in node handler implementations.
package builtin

import (
	"context"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// InputHandler starts a workflow branch by emitting the workflow inputs.
type InputHandler struct {
	*executor.BaseHandler
}

// NewInputHandler creates an input handler.
func NewInputHandler() *InputHandler {
	return &InputHandler{BaseHandler: executor.NewBaseHandler("input")}
}

// Execute emits the workflow inputs, optionally overlaid with config
// defaults for missing keys.
func (h *InputHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	data := make(map[string]interface{})
	if defaults, err := h.GetMap(inv.Config, "defaults"); err == nil {
		for k, v := range defaults {
			data[k] = v
		}
	}
	for k, v := range inv.Snapshot.Inputs {
		data[k] = v
	}
	return executor.OK(data), nil
}

// OutputHandler terminates a branch and shapes the final output.
type OutputHandler struct {
	*executor.BaseHandler
}

// NewOutputHandler creates an output handler.
func NewOutputHandler() *OutputHandler {
	return &OutputHandler{BaseHandler: executor.NewBaseHandler("output")}
}

// Execute wraps the merged parent input as the node's final result.
func (h *OutputHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	return executor.OK(map[string]interface{}{
		"__isOutput": true,
		"result":     inv.Input,
	}), nil
}

// StopHandler hard-stops a branch.
type StopHandler struct {
	*executor.BaseHandler
}

// NewStopHandler creates a stop handler.
func NewStopHandler() *StopHandler {
	return &StopHandler{BaseHandler: executor.NewBaseHandler("stop")}
}

// Execute echoes the input and signals a terminal stop.
func (h *StopHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	res := executor.OK(map[string]interface{}{
		"stopped": true,
		"result":  inv.Input,
	})
	res.Signals = &executor.Signals{IsTerminal: true}
	return res, nil
}
