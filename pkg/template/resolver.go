package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver resolves single variable references against a Context.
type Resolver struct {
	ctx  *Context
	opts Options
}

// NewResolver creates a resolver.
func NewResolver(ctx *Context, opts Options) *Resolver {
	return &Resolver{ctx: ctx, opts: opts}
}

// Resolve resolves a reference like "inputs.user.name" or "nodeA.items[0].id".
func (r *Resolver) Resolve(ref string) (interface{}, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidTemplate)
	}

	parts := splitPath(ref)
	root, index, hasIndex := splitIndex(parts[0])
	rest := parts[1:]

	var value interface{}
	var found bool

	switch root {
	case rootInputs:
		value, found, rest = rootLookup(r.ctx.Inputs, rest)
	case rootVariables, rootVarAlias:
		value, found, rest = rootLookup(r.ctx.Variables, rest)
	case rootLoop:
		value, found, rest = rootLookup(r.ctx.Loop, rest)
	case rootParallel:
		value, found, rest = rootLookup(r.ctx.Parallel, rest)
	default:
		if out, ok := r.ctx.NodeOutputs[root]; ok {
			value, found = interface{}(out), true
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: {{%s}}", ErrVariableNotFound, ref)
	}

	if hasIndex {
		var err error
		value, err = indexInto(value, index)
		if err != nil {
			return nil, fmt.Errorf("%w: {{%s}}: %v", ErrVariableNotFound, ref, err)
		}
	}

	return traverse(value, rest, ref)
}

// rootLookup consumes the first remaining path segment as a key into the
// root map. A bare root (e.g. {{inputs}}) resolves to the map itself.
func rootLookup(root map[string]interface{}, rest []string) (interface{}, bool, []string) {
	if root == nil {
		return nil, false, rest
	}
	if len(rest) == 0 {
		return root, true, rest
	}

	key, index, hasIndex := splitIndex(rest[0])
	value, ok := root[key]
	if !ok {
		return nil, false, rest
	}
	if hasIndex {
		indexed, err := indexInto(value, index)
		if err != nil {
			return nil, false, rest
		}
		value = indexed
	}
	return value, true, rest[1:]
}

// traverse walks the remaining path segments into a value.
func traverse(value interface{}, parts []string, ref string) (interface{}, error) {
	current := value
	for _, part := range parts {
		key, index, hasIndex := splitIndex(part)

		if key != "" {
			m, ok := current.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: {{%s}}: %q is not an object", ErrVariableNotFound, ref, key)
			}
			next, ok := m[key]
			if !ok {
				return nil, fmt.Errorf("%w: {{%s}}: missing field %q", ErrVariableNotFound, ref, key)
			}
			current = next
		}

		if hasIndex {
			next, err := indexInto(current, index)
			if err != nil {
				return nil, fmt.Errorf("%w: {{%s}}: %v", ErrVariableNotFound, ref, err)
			}
			current = next
		}
	}
	return current, nil
}

// indexInto applies an array index to a value.
func indexInto(value interface{}, index int) (interface{}, error) {
	arr, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("value is not an array")
	}
	if index < 0 || index >= len(arr) {
		return nil, fmt.Errorf("index %d out of range (len %d)", index, len(arr))
	}
	return arr[index], nil
}

// splitPath splits a dotted path into segments, keeping [idx] attached to
// its segment.
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// splitIndex splits "items[3]" into ("items", 3, true). A segment without
// an index returns (segment, 0, false).
func splitIndex(segment string) (string, int, bool) {
	open := strings.Index(segment, "[")
	if open < 0 {
		return segment, 0, false
	}
	end := strings.Index(segment, "]")
	if end < open {
		return segment, 0, false
	}
	idx, err := strconv.Atoi(segment[open+1 : end])
	if err != nil {
		return segment, 0, false
	}
	return segment[:open], idx, true
}
