package engine

import (
	"context"

	"github.com/smilemakc/flowgraph/pkg/models"
	"github.com/smilemakc/flowgraph/pkg/plan"
)

// RunDefinition compiles and runs a definition in one call. Useful for
// tests, demos and the CLI; long-lived services build the plan once and
// call Run.
func (e *Executor) RunDefinition(ctx context.Context, def *models.Definition, inputs map[string]interface{}) (*Outcome, error) {
	p, err := plan.Build(def)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, p, inputs)
}
