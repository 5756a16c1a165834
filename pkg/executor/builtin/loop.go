package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// LoopHandler opens a loop boundary. It normalizes the iteration source
// (an items list or a count) into the output the engine uses to drive the
// loop scope.
type LoopHandler struct {
	*executor.BaseHandler
}

// NewLoopHandler creates a loop handler.
func NewLoopHandler() *LoopHandler {
	return &LoopHandler{BaseHandler: executor.NewBaseHandler("loop")}
}

// Execute emits items, total and the first item. Items may come from config
// directly or from a field of the node input named by 'items_from'.
func (h *LoopHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	var items []interface{}

	if raw, ok := inv.Config["items"]; ok {
		list, ok := raw.([]interface{})
		if !ok {
			return executor.Failf("loop 'items' must be a list"), nil
		}
		items = list
	} else if field := h.GetStringDefault(inv.Config, "items_from", ""); field != "" {
		raw, ok := inv.Input[field]
		if !ok {
			return executor.Failf("loop input has no field %q", field), nil
		}
		list, ok := raw.([]interface{})
		if !ok {
			return executor.Failf("loop input field %q is not a list", field), nil
		}
		items = list
	} else if count := h.GetIntDefault(inv.Config, "count", -1); count >= 0 {
		items = make([]interface{}, count)
		for i := range items {
			items[i] = i
		}
	} else {
		return executor.Failf("loop node requires 'items', 'items_from' or 'count'"), nil
	}

	var first interface{}
	if len(items) > 0 {
		first = items[0]
	}

	return executor.OK(map[string]interface{}{
		"items": items,
		"total": len(items),
		"index": 0,
		"item":  first,
	}), nil
}

// Validate requires an iteration source.
func (h *LoopHandler) Validate(config map[string]interface{}) error {
	if _, ok := config["items"]; ok {
		return nil
	}
	if _, ok := config["items_from"]; ok {
		return nil
	}
	if _, ok := config["count"]; ok {
		return nil
	}
	return fmt.Errorf("loop node requires 'items', 'items_from' or 'count'")
}

// LoopEndHandler closes a loop boundary. Its break condition decides whether
// the engine runs another iteration.
type LoopEndHandler struct {
	*executor.BaseHandler
}

// NewLoopEndHandler creates a loop-end handler.
func NewLoopEndHandler() *LoopEndHandler {
	return &LoopEndHandler{BaseHandler: executor.NewBaseHandler("loop_end")}
}

// Execute evaluates the optional break condition against the node input and
// the loop scope, signaling break or continue. Without a condition the
// engine continues until the items are exhausted.
func (h *LoopEndHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	control := executor.LoopControlContinue

	if condition := h.GetStringDefault(inv.Config, "break_condition", ""); condition != "" {
		env := map[string]interface{}{
			"input":     toAnyMap(inv.Input),
			"variables": toAnyMap(inv.Snapshot.Variables),
		}
		if inv.Snapshot.Loop != nil {
			env["loop"] = map[string]interface{}{
				"index": inv.Snapshot.Loop.Index,
				"item":  inv.Snapshot.Loop.Item,
				"total": inv.Snapshot.Loop.Total,
			}
		}

		shouldBreak, err := sharedConditions.EvaluateBool(condition, env)
		if err != nil {
			return executor.Failf("break condition: %v", err), nil
		}
		if shouldBreak {
			control = executor.LoopControlBreak
		}
	}

	data := map[string]interface{}{"result": inv.Input}
	if inv.Snapshot.Loop != nil {
		data["index"] = inv.Snapshot.Loop.Index
	}

	res := executor.OK(data)
	res.Signals = &executor.Signals{LoopControl: control}
	return res, nil
}
