package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/flowgraph/pkg/models"
)

func node(id, nodeType string) *models.Node {
	return &models.Node{ID: id, Name: id, Type: nodeType}
}

func edge(from, to string) *models.Edge {
	return &models.Edge{From: from, To: to}
}

func portEdge(from, to, port string) *models.Edge {
	return &models.Edge{From: from, To: to, SourcePort: port}
}

func definition(nodes []*models.Node, edges []*models.Edge) *models.Definition {
	return &models.Definition{ID: "wf-1", Name: "test", Nodes: nodes, Edges: edges}
}

func TestBuild_LinearChain(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("b", "task"), node("c", NodeTypeOutput)},
		[]*models.Edge{edge("a", "b"), edge("b", "c")},
	)

	p, err := Build(def)
	require.NoError(t, err)

	assert.Equal(t, "a", p.EntryNodeID)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, p.Levels)
	assert.Equal(t, []string{"a"}, p.Nodes["b"].Dependencies)
	assert.Equal(t, []string{"c"}, p.Nodes["b"].Dependents)
	assert.True(t, p.Nodes["c"].IsTerminal)
	assert.False(t, p.Nodes["b"].IsTerminal)
	assert.True(t, p.Nodes["c"].Reachable)
	assert.Empty(t, p.Warnings)
}

func TestBuild_DiamondLevels(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("c", "task"), node("b", "task"), node("d", NodeTypeOutput)},
		[]*models.Edge{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d")},
	)

	p, err := Build(def)
	require.NoError(t, err)

	// Ties inside a level break lexicographically.
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, p.Levels)
	assert.Equal(t, []string{"b", "c"}, p.Nodes["d"].Dependencies)
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("z", "task"), node("m", "task"), node("out", NodeTypeOutput)},
		[]*models.Edge{edge("a", "z"), edge("a", "m"), edge("z", "out"), edge("m", "out"), edge("a", "ghost")},
	)

	p1, err := Build(def)
	require.NoError(t, err)
	p2, err := Build(def)
	require.NoError(t, err)

	assert.Equal(t, p1.Levels, p2.Levels)
	assert.Equal(t, p1.Warnings, p2.Warnings)
	assert.Equal(t, p1.NodeIDs(), p2.NodeIDs())
}

func TestBuild_DuplicateNodeID(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("a", "task")},
		nil,
	)

	_, err := Build(def)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, KindDuplicateNodeID, buildErr.Kind)
	assert.Equal(t, []string{"a"}, buildErr.NodeIDs)
}

func TestBuild_EntryPointResolution(t *testing.T) {
	t.Parallel()

	t.Run("explicit entry wins", func(t *testing.T) {
		def := definition(
			[]*models.Node{node("a", "task"), node("b", "task")},
			[]*models.Edge{edge("a", "b")},
		)
		def.EntryNodeID = "a"

		p, err := Build(def)
		require.NoError(t, err)
		assert.Equal(t, "a", p.EntryNodeID)
	})

	t.Run("unique input root inferred", func(t *testing.T) {
		def := definition(
			[]*models.Node{node("start", NodeTypeInput), node("b", "task")},
			[]*models.Edge{edge("start", "b")},
		)

		p, err := Build(def)
		require.NoError(t, err)
		assert.Equal(t, "start", p.EntryNodeID)
	})

	t.Run("multiple unmarked roots fail", func(t *testing.T) {
		def := definition(
			[]*models.Node{node("a", "task"), node("b", "task")},
			nil,
		)

		_, err := Build(def)
		var buildErr *BuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, KindMultipleEntryPoints, buildErr.Kind)
	})

	t.Run("marked additional root allowed", func(t *testing.T) {
		extra := node("extra", "task")
		extra.Metadata = map[string]interface{}{models.MetadataEntryPoint: true}
		def := definition(
			[]*models.Node{node("a", NodeTypeInput), node("b", "task"), extra},
			[]*models.Edge{edge("a", "b")},
		)

		p, err := Build(def)
		require.NoError(t, err)
		assert.Equal(t, "a", p.EntryNodeID)
		assert.True(t, p.Nodes["extra"].Reachable)
		// Detached roots land in level 0 alongside the entry.
		assert.Contains(t, p.Levels[0], "extra")
	})

	t.Run("no roots means cycle", func(t *testing.T) {
		def := definition(
			[]*models.Node{node("a", "task"), node("b", "task")},
			[]*models.Edge{edge("a", "b"), edge("b", "a")},
		)

		_, err := Build(def)
		var buildErr *BuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, KindNoEntryPoint, buildErr.Kind)
	})
}

func TestBuild_CycleDetected(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("start", NodeTypeInput), node("a", "task"), node("b", "task"), node("c", "task")},
		[]*models.Edge{edge("start", "a"), edge("a", "b"), edge("b", "c"), edge("c", "a")},
	)

	_, err := Build(def)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, KindCycleDetected, buildErr.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, buildErr.NodeIDs)
}

func TestBuild_DanglingEdgeDroppedWithWarning(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("b", "task")},
		[]*models.Edge{edge("a", "b"), edge("a", "missing")},
	)

	p, err := Build(def)
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "missing")
	assert.Len(t, p.Edges, 1)
}

func TestBuild_TerminalOutgoingDropped(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("out", NodeTypeOutput), node("b", "task")},
		[]*models.Edge{edge("a", "out"), edge("out", "b"), edge("a", "b")},
	)

	p, err := Build(def)
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "terminal")
	assert.Empty(t, p.Nodes["out"].Dependents)
}

func TestBuild_SelfLoopRejected(t *testing.T) {
	t.Parallel()

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("b", "task")},
		[]*models.Edge{edge("a", "b"), edge("b", "b")},
	)

	_, err := Build(def)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, KindInvalidEdge, buildErr.Kind)
}

func TestBuild_EdgeClassification(t *testing.T) {
	t.Parallel()

	cond := node("cond", NodeTypeConditional)
	cond.Config = map[string]interface{}{"condition": "true"}
	def := definition(
		[]*models.Node{node("a", NodeTypeInput), cond, node("t", "task"), node("f", "task"), node("x", "task"), node("e", "task")},
		[]*models.Edge{
			edge("a", "cond"),
			portEdge("cond", "t", models.PortTrue),
			portEdge("cond", "f", models.PortFalse),
			edge("a", "x"),
			portEdge("x", "e", models.PortError),
		},
	)

	p, err := Build(def)
	require.NoError(t, err)

	kinds := make(map[string]EdgeKind)
	for _, e := range p.Edges {
		kinds[e.From+"->"+e.To] = e.Kind
	}
	assert.Equal(t, EdgeKindData, kinds["a->cond"])
	assert.Equal(t, EdgeKindControl, kinds["cond->t"])
	assert.Equal(t, EdgeKindControl, kinds["cond->f"])
	assert.Equal(t, EdgeKindError, kinds["x->e"])
	assert.True(t, p.Nodes["x"].HasErrorPort)
	assert.False(t, p.Nodes["a"].HasErrorPort)
}

func TestBuild_LoopBoundary(t *testing.T) {
	t.Parallel()

	loopEnd := node("lend", NodeTypeLoopEnd)
	loopEnd.Config = map[string]interface{}{ConfigLoopID: "lstart"}
	loopStart := node("lstart", NodeTypeLoop)
	loopStart.Config = map[string]interface{}{"count": 3}

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), loopStart, node("body", "task"), loopEnd, node("out", NodeTypeOutput)},
		[]*models.Edge{
			edge("a", "lstart"),
			edge("lstart", "body"),
			edge("body", "lend"),
			edge("lend", "out"),
		},
	)

	p, err := Build(def)
	require.NoError(t, err)

	assert.Equal(t, "lstart", p.Nodes["body"].LoopBoundary)
	assert.Equal(t, "lstart", p.Nodes["lend"].LoopBoundary)
	assert.Empty(t, p.Nodes["a"].LoopBoundary)
	assert.Empty(t, p.Nodes["out"].LoopBoundary)
	assert.Equal(t, []string{"body", "lend"}, p.BoundaryNodes("lstart"))
}

func TestBuild_LoopBackEdgeExcludedFromDependencies(t *testing.T) {
	t.Parallel()

	loopEnd := node("lend", NodeTypeLoopEnd)
	loopEnd.Config = map[string]interface{}{ConfigLoopID: "lstart"}
	loopStart := node("lstart", NodeTypeLoop)
	loopStart.Config = map[string]interface{}{"count": 2}

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), loopStart, node("body", "task"), loopEnd},
		[]*models.Edge{
			edge("a", "lstart"),
			edge("lstart", "body"),
			edge("body", "lend"),
			edge("lend", "lstart"), // loop-back
		},
	)

	p, err := Build(def)
	require.NoError(t, err)

	kinds := make(map[string]EdgeKind)
	for _, e := range p.Edges {
		kinds[e.From+"->"+e.To] = e.Kind
	}
	assert.Equal(t, EdgeKindLoopBack, kinds["lend->lstart"])
	assert.Equal(t, []string{"a"}, p.Nodes["lstart"].Dependencies)
}

func TestBuild_UnbalancedBoundary(t *testing.T) {
	t.Parallel()

	t.Run("loop without end", func(t *testing.T) {
		loopStart := node("lstart", NodeTypeLoop)
		loopStart.Config = map[string]interface{}{"count": 2}
		def := definition(
			[]*models.Node{node("a", NodeTypeInput), loopStart, node("b", "task")},
			[]*models.Edge{edge("a", "lstart"), edge("lstart", "b")},
		)

		_, err := Build(def)
		var buildErr *BuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, KindUnbalancedBoundary, buildErr.Kind)
	})

	t.Run("end referencing unknown start", func(t *testing.T) {
		loopEnd := node("lend", NodeTypeLoopEnd)
		loopEnd.Config = map[string]interface{}{ConfigLoopID: "nope"}
		def := definition(
			[]*models.Node{node("a", NodeTypeInput), loopEnd},
			[]*models.Edge{edge("a", "lend")},
		)

		_, err := Build(def)
		var buildErr *BuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, KindUnbalancedBoundary, buildErr.Kind)
	})
}

func TestBuild_StrictValidation(t *testing.T) {
	t.Parallel()

	httpNode := node("h", "http")
	httpNode.Config = map[string]interface{}{"url": "https://example.com"} // missing method
	def := definition(
		[]*models.Node{node("a", NodeTypeInput), httpNode},
		[]*models.Edge{edge("a", "h")},
	)

	_, err := Build(def)
	require.NoError(t, err)

	_, err = NewBuilder(WithStrictValidation()).Build(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method")
}

func TestBuild_StrictValidationAcceptsLoopSources(t *testing.T) {
	t.Parallel()

	for _, config := range []map[string]interface{}{
		{"items": []interface{}{1, 2}},
		{"items_from": "list"},
		{"count": 3},
	} {
		loopEnd := node("lend", NodeTypeLoopEnd)
		loopEnd.Config = map[string]interface{}{ConfigLoopID: "lstart"}
		loopStart := node("lstart", NodeTypeLoop)
		loopStart.Config = config

		def := definition(
			[]*models.Node{node("a", NodeTypeInput), loopStart, node("body", "task"), loopEnd},
			[]*models.Edge{edge("a", "lstart"), edge("lstart", "body"), edge("body", "lend")},
		)

		_, err := NewBuilder(WithStrictValidation()).Build(def)
		require.NoError(t, err)
	}

	// No iteration source at all still fails.
	loopEnd := node("lend", NodeTypeLoopEnd)
	loopEnd.Config = map[string]interface{}{ConfigLoopID: "lstart"}
	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("lstart", NodeTypeLoop), node("body", "task"), loopEnd},
		[]*models.Edge{edge("a", "lstart"), edge("lstart", "body"), edge("body", "lend")},
	)
	_, err := NewBuilder(WithStrictValidation()).Build(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items")
}

func TestBuild_ParallelBoundary(t *testing.T) {
	t.Parallel()

	pEnd := node("pend", NodeTypeParallelEnd)
	pEnd.Config = map[string]interface{}{ConfigParallelID: "pstart"}

	def := definition(
		[]*models.Node{node("a", NodeTypeInput), node("pstart", NodeTypeParallel), node("b1", "task"), node("b2", "task"), pEnd},
		[]*models.Edge{
			edge("a", "pstart"),
			edge("pstart", "b1"),
			edge("pstart", "b2"),
			edge("b1", "pend"),
			edge("b2", "pend"),
		},
	)

	p, err := Build(def)
	require.NoError(t, err)

	assert.Equal(t, "pstart", p.Nodes["b1"].ParallelBoundary)
	assert.Equal(t, "pstart", p.Nodes["b2"].ParallelBoundary)
	// Branches share a level: they can run in the same batch.
	assert.Equal(t, p.Nodes["b1"].Level, p.Nodes["b2"].Level)
}
