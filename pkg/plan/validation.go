package plan

import (
	"fmt"
)

// validateNodeConfig validates node configuration for built-in node types.
// Unknown types are skipped; they may be custom handlers.
func validateNodeConfig(nodeType string, config map[string]interface{}) error {
	switch nodeType {
	case "http":
		return validateHTTPConfig(config)
	case NodeTypeConditional:
		return validateConditionalConfig(config)
	case NodeTypeSwitch:
		return validateSwitchConfig(config)
	case "transform":
		return validateTransformConfig(config)
	case NodeTypeLoop:
		return validateLoopConfig(config)
	case "wait":
		return validateWaitConfig(config)
	default:
		return nil
	}
}

func validateHTTPConfig(config map[string]interface{}) error {
	if _, ok := config["method"]; !ok {
		return fmt.Errorf("http node requires 'method' field")
	}
	if _, ok := config["url"]; !ok {
		return fmt.Errorf("http node requires 'url' field")
	}
	return nil
}

func validateConditionalConfig(config map[string]interface{}) error {
	cond, ok := config["condition"].(string)
	if !ok || cond == "" {
		return fmt.Errorf("conditional node requires 'condition' field")
	}
	return nil
}

func validateSwitchConfig(config map[string]interface{}) error {
	cases, ok := config["cases"].([]interface{})
	if !ok || len(cases) == 0 {
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

func validateTransformConfig(config map[string]interface{}) error {
	transformType, ok := config["type"]
	if !ok {
		return fmt.Errorf("transform node requires 'type' field")
	}

	typeStr, ok := transformType.(string)
	if !ok {
		return fmt.Errorf("transform 'type' must be a string")
	}

	switch typeStr {
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
		return fmt.Errorf("invalid transform type: %s", typeStr)
	}

	return nil
}

func validateLoopConfig(config map[string]interface{}) error {
	_, hasItems := config["items"]
	_, hasItemsFrom := config["items_from"]
	_, hasCount := config["count"]
	if !hasItems && !hasItemsFrom && !hasCount {
		return fmt.Errorf("loop node requires 'items', 'items_from' or 'count'")
	}
	if maxIter, ok := config["max_iterations"]; ok {
		switch v := maxIter.(type) {
		case int:
			if v <= 0 {
				return fmt.Errorf("max_iterations must be > 0, got %d", v)
			}
		case float64:
			if v <= 0 {
				return fmt.Errorf("max_iterations must be > 0, got %v", v)
			}
		default:
			return fmt.Errorf("max_iterations must be a number")
		}
	}
	return nil
}

func validateWaitConfig(config map[string]interface{}) error {
	if reason, ok := config["reason"]; ok {
		if _, ok := reason.(string); !ok {
			return fmt.Errorf("wait 'reason' must be a string")
		}
	}
	return nil
}
