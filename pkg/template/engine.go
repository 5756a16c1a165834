package template

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Engine resolves placeholders in whole configuration trees.
type Engine struct {
	resolver *Resolver
	opts     Options
}

// NewEngine creates an engine over the given context.
func NewEngine(ctx *Context, opts Options) *Engine {
	return &Engine{resolver: NewResolver(ctx, opts), opts: opts}
}

// ResolveConfig returns a copy of config with every placeholder resolved.
// The input config is never mutated.
func (e *Engine) ResolveConfig(config map[string]interface{}) (map[string]interface{}, error) {
	if config == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		resolved, err := e.resolveValue(v)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ResolveString resolves placeholders in a single string. A string that is
// exactly one placeholder resolves to the referenced value with its type
// preserved; otherwise every placeholder is stringified in place.
func (e *Engine) ResolveString(s string) (interface{}, error) {
	refs := findPlaceholders(s)
	if len(refs) == 0 {
		return s, nil
	}

	// Whole-string placeholder keeps the referenced value's type.
	if len(refs) == 1 && strings.TrimSpace(s) == "{{"+refs[0]+"}}" {
		value, err := e.resolver.Resolve(refs[0])
		if err != nil {
			if e.opts.Strict {
				return nil, err
			}
			return "", nil
		}
		return value, nil
	}

	result := s
	for _, ref := range refs {
		value, err := e.resolver.Resolve(ref)
		if err != nil {
			if e.opts.Strict {
				return nil, err
			}
			value = ""
		}
		result = strings.ReplaceAll(result, "{{"+ref+"}}", stringify(value))
	}
	return result, nil
}

func (e *Engine) resolveValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return e.ResolveString(val)
	case map[string]interface{}:
		return e.ResolveConfig(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			resolved, err := e.resolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// findPlaceholders extracts the inner references of every {{...}} in order.
func findPlaceholders(s string) []string {
	var refs []string
	for i := 0; i < len(s); {
		open := strings.Index(s[i:], "{{")
		if open < 0 {
			break
		}
		open += i
		close := strings.Index(s[open:], "}}")
		if close < 0 {
			break
		}
		close += open
		refs = append(refs, strings.TrimSpace(s[open+2:close]))
		i = close + 2
	}
	return refs
}

// stringify renders a resolved value for in-string interpolation.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, int, int64, bool:
		return fmt.Sprintf("%v", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
