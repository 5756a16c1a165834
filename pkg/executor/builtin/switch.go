package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// SwitchHandler evaluates ordered cases and routes execution through the
// first matching case's port.
type SwitchHandler struct {
	*executor.BaseHandler
}

// NewSwitchHandler creates a switch handler.
func NewSwitchHandler() *SwitchHandler {
	return &SwitchHandler{BaseHandler: executor.NewBaseHandler("switch")}
}

// Execute evaluates cases in order; the first case whose 'when' expression
// is true selects its 'route'. Falls back to the 'default' route.
func (h *SwitchHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	cases, err := h.GetSlice(inv.Config, "cases")
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	env := map[string]interface{}{
		"input":     toAnyMap(inv.Input),
		"variables": toAnyMap(inv.Snapshot.Variables),
	}

	for i, c := range cases {
		m, ok := c.(map[string]interface{})
		if !ok {
			return executor.Failf("case %d is not an object", i), nil
		}
		when, _ := m["when"].(string)
		route, _ := m["route"].(string)
		if when == "" || route == "" {
			return executor.Failf("case %d requires 'when' and 'route'", i), nil
		}

		matched, err := sharedConditions.EvaluateBool(when, env)
		if err != nil {
			return executor.Failf("case %d: %v", i, err), nil
		}
		if matched {
			res := executor.OK(map[string]interface{}{"route": route, "case": i})
			res.Signals = &executor.Signals{SelectedRoute: route}
			return res, nil
		}
	}

	route := h.GetStringDefault(inv.Config, "default", "default")
	res := executor.OK(map[string]interface{}{"route": route, "case": -1})
	res.Signals = &executor.Signals{SelectedRoute: route}
	return res, nil
}

// Validate requires a non-empty cases list with when/route pairs.
func (h *SwitchHandler) Validate(config map[string]interface{}) error {
	cases, err := h.GetSlice(config, "cases")
	if err != nil || len(cases) == 0 {
		return fmt.Errorf("switch node requires a non-empty 'cases' list")
	}
	for i, c := range cases {
		m, ok := c.(map[string]interface{})
		if !ok {
			return fmt.Errorf("switch case %d must be an object", i)
		}
		if _, ok := m["when"].(string); !ok {
			return fmt.Errorf("switch case %d requires a 'when' expression", i)
		}
		if _, ok := m["route"].(string); !ok {
			return fmt.Errorf("switch case %d requires a 'route' name", i)
		}
	}
	return nil
}
