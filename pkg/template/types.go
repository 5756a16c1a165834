// Package template resolves {{...}} placeholders in node configurations
// against an execution snapshot.
//
// The grammar is fixed:
//   - {{inputs.path}}            workflow inputs
//   - {{variables.path}}         workflow variables ({{var.path}} is an alias)
//   - {{loop.index|item|total}}  innermost loop scope
//   - {{parallel.parallelId|branchIndex}} innermost parallel scope
//   - {{<nodeId>.path}}          a node's output
//
// Paths support nested fields (a.b.c) and array indexing (items[0].id). The
// resolver never evaluates code; it only walks data.
//
// In strict mode a missing variable fails resolution; otherwise the
// placeholder resolves to an empty string.
package template

import (
	"errors"
)

// Resolution errors.
var (
	ErrVariableNotFound = errors.New("template variable not found")
	ErrInvalidTemplate  = errors.New("invalid template")
)

// Context holds the data visible to placeholder resolution. All maps are
// read-only from the resolver's point of view.
type Context struct {
	Inputs      map[string]interface{}
	Variables   map[string]interface{}
	NodeOutputs map[string]map[string]interface{}

	// Loop and Parallel expose the innermost scopes, keyed by their public
	// field names (index, item, total / parallelId, branchIndex). Nil when
	// no scope is active.
	Loop     map[string]interface{}
	Parallel map[string]interface{}
}

// Options configures resolution behavior.
type Options struct {
	// Strict makes missing variables an error instead of an empty string.
	Strict bool
}

// Root prefixes with reserved meaning. Any other root is a node id.
const (
	rootInputs    = "inputs"
	rootVariables = "variables"
	rootVarAlias  = "var"
	rootLoop      = "loop"
	rootParallel  = "parallel"
)
