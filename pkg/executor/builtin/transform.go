package builtin

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/itchyny/gojq"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// TransformHandler transforms data using expressions, jq filters or
// templates.
type TransformHandler struct {
	*executor.BaseHandler
}

// NewTransformHandler creates a transform handler.
func NewTransformHandler() *TransformHandler {
	return &TransformHandler{BaseHandler: executor.NewBaseHandler("transform")}
}

// Execute runs the configured transformation over the node input.
func (h *TransformHandler) Execute(ctx context.Context, inv *executor.Invocation) (*executor.Result, error) {
	transformType := h.GetStringDefault(inv.Config, "type", "passthrough")

	switch transformType {
	case "passthrough":
		return executor.OK(map[string]interface{}{"result": inv.Input}), nil

	case "template":
		// The engine resolves templates before dispatch, so the template
		// value arrives already rendered.
		tmpl, ok := inv.Config["template"]
		if !ok {
			return executor.Failf("template transform requires 'template' field"), nil
		}
		return executor.OK(map[string]interface{}{"result": tmpl}), nil

	case "expression":
		exprStr, err := h.GetString(inv.Config, "expression")
		if err != nil {
			return executor.Failf("%v", err), nil
		}

		env := map[string]interface{}{
			"input":     toAnyMap(inv.Input),
			"variables": toAnyMap(inv.Snapshot.Variables),
		}

		program, err := expr.Compile(exprStr, expr.Env(env), expr.AllowUndefinedVariables())
		if err != nil {
			return executor.Failf("failed to compile expression: %v", err), nil
		}

		output, err := expr.Run(program, env)
		if err != nil {
			return executor.Failf("failed to evaluate expression: %v", err), nil
		}
		return executor.OK(map[string]interface{}{"result": output}), nil

	case "jq":
		filterStr, err := h.GetString(inv.Config, "filter")
		if err != nil {
			return executor.Failf("%v", err), nil
		}

		query, err := gojq.Parse(filterStr)
		if err != nil {
			return executor.Failf("failed to parse jq filter: %v", err), nil
		}

		code, err := gojq.Compile(query)
		if err != nil {
			return executor.Failf("failed to compile jq filter: %v", err), nil
		}

		var results []interface{}
		iter := code.RunWithContext(ctx, toAnyMap(inv.Input))
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return executor.Failf("jq evaluation failed: %v", err), nil
			}
			results = append(results, v)
		}

		if len(results) == 1 {
			return executor.OK(map[string]interface{}{"result": results[0]}), nil
		}
		return executor.OK(map[string]interface{}{"result": results}), nil

	default:
		return executor.Failf("unknown transform type: %s", transformType), nil
	}
}

// Validate checks type-specific required fields.
func (h *TransformHandler) Validate(config map[string]interface{}) error {
	transformType := h.GetStringDefault(config, "type", "passthrough")
	switch transformType {
	case "passthrough":
	case "expression":
		if _, ok := config["expression"]; !ok {
			return fmt.Errorf("expression transform requires 'expression' field")
		}
	case "jq":
		if _, ok := config["filter"]; !ok {
			return fmt.Errorf("jq transform requires 'filter' field")
		}
	case "template":
		if _, ok := config["template"]; !ok {
			return fmt.Errorf("template transform requires 'template' field")
		}
	default:
		return fmt.Errorf("invalid transform type: %s", transformType)
	}
	return nil
}

// toAnyMap widens a typed map for expression environments.
func toAnyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
