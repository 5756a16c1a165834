package executor

import (
	"fmt"
)

// BaseHandler provides common functionality for handlers bound to one node
// type: CanHandle by exact match plus typed config getters.
type BaseHandler struct {
	NodeType string
}

// NewBaseHandler creates a BaseHandler for the given node type.
func NewBaseHandler(nodeType string) *BaseHandler {
	return &BaseHandler{NodeType: nodeType}
}

// CanHandle matches the handler's node type exactly.
func (b *BaseHandler) CanHandle(nodeType string) bool {
	return nodeType == b.NodeType
}

// Validate accepts any configuration by default.
func (b *BaseHandler) Validate(config map[string]interface{}) error {
	return nil
}

// ValidateRequired validates that required fields are present in the
// configuration.
func (b *BaseHandler) ValidateRequired(config map[string]interface{}, fields ...string) error {
	for _, field := range fields {
		if _, ok := config[field]; !ok {
			return fmt.Errorf("required field missing: %s", field)
		}
	}
	return nil
}

// GetString safely retrieves a string value from config.
func (b *BaseHandler) GetString(config map[string]interface{}, key string) (string, error) {
	val, ok := config[key]
	if !ok {
		return "", fmt.Errorf("field not found: %s", key)
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("field %s is not a string", key)
	}

	return str, nil
}

// GetStringDefault safely retrieves a string value from config with a default.
func (b *BaseHandler) GetStringDefault(config map[string]interface{}, key, defaultValue string) string {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}

	str, ok := val.(string)
	if !ok {
		return defaultValue
	}

	return str
}

// GetInt safely retrieves an int value from config. Handles both float64
// (from JSON) and int.
func (b *BaseHandler) GetInt(config map[string]interface{}, key string) (int, error) {
	val, ok := config[key]
	if !ok {
		return 0, fmt.Errorf("field not found: %s", key)
	}

	switch v := val.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("field %s is not a number", key)
	}
}

// GetIntDefault safely retrieves an int value from config with a default.
func (b *BaseHandler) GetIntDefault(config map[string]interface{}, key string, defaultValue int) int {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}

	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// GetBoolDefault safely retrieves a bool value from config with a default.
func (b *BaseHandler) GetBoolDefault(config map[string]interface{}, key string, defaultValue bool) bool {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}

	boolVal, ok := val.(bool)
	if !ok {
		return defaultValue
	}

	return boolVal
}

// GetMap safely retrieves a map value from config.
func (b *BaseHandler) GetMap(config map[string]interface{}, key string) (map[string]interface{}, error) {
	val, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("field not found: %s", key)
	}

	m, ok := val.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("field %s is not a map", key)
	}

	return m, nil
}

// GetSlice safely retrieves a slice value from config.
func (b *BaseHandler) GetSlice(config map[string]interface{}, key string) ([]interface{}, error) {
	val, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("field not found: %s", key)
	}

	s, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %s is not a list", key)
	}

	return s, nil
}
