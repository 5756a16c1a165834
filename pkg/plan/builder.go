package plan

import (
	"fmt"
	"sort"

	"github.com/smilemakc/flowgraph/pkg/models"
)

// Node types with builder-level meaning. Any other type is an opaque handler
// type carried through to the registry.
const (
	NodeTypeInput       = "input"
	NodeTypeTrigger     = "trigger"
	NodeTypeOutput      = "output"
	NodeTypeStop        = "stop"
	NodeTypeConditional = "conditional"
	NodeTypeSwitch      = "switch"
	NodeTypeLoop        = "loop"
	NodeTypeLoopEnd     = "loop_end"
	NodeTypeParallel    = "parallel"
	NodeTypeParallelEnd = "parallel_end"
)

// Config keys understood by the builder.
const (
	ConfigErrorPort  = "error_port"
	ConfigLoopID     = "loop_id"
	ConfigParallelID = "parallel_id"
)

// Builder compiles definitions into plans. A Builder is stateless and safe
// for reuse.
type Builder struct {
	strict bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithStrictValidation enables per-type config validation for built-in node
// types during the build.
func WithStrictValidation() Option {
	return func(b *Builder) { b.strict = true }
}

// NewBuilder creates a builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build compiles a definition with default options.
func Build(def *models.Definition) (*Plan, error) {
	return NewBuilder().Build(def)
}

// Build compiles the definition into an immutable execution plan. The same
// definition always yields a structurally identical plan, including warning
// order. On failure no partial plan is returned.
func (b *Builder) Build(def *models.Definition) (*Plan, error) {
	if def == nil {
		return nil, buildErr(KindInvalidDefinition, "definition is nil")
	}
	if len(def.Nodes) == 0 {
		return nil, buildErr(KindInvalidDefinition, "definition has no nodes")
	}

	nodes := make(map[string]*models.Node, len(def.Nodes))
	for _, n := range def.Nodes {
		if err := n.Validate(); err != nil {
			return nil, buildErr(KindInvalidDefinition, "node %q: %v", n.ID, err)
		}
		if _, dup := nodes[n.ID]; dup {
			return nil, &BuildError{Kind: KindDuplicateNodeID, Message: fmt.Sprintf("duplicate node id %q", n.ID), NodeIDs: []string{n.ID}}
		}
		nodes[n.ID] = n
	}

	var warnings []string

	edges, warnings, err := b.normalizeEdges(def, nodes, warnings)
	if err != nil {
		return nil, err
	}

	edges, warnings = dropTerminalOutgoing(nodes, edges, warnings)

	loopRegions, err := detectBoundaries(nodes, edges, NodeTypeLoop, NodeTypeLoopEnd, ConfigLoopID)
	if err != nil {
		return nil, err
	}
	parallelRegions, err := detectBoundaries(nodes, edges, NodeTypeParallel, NodeTypeParallelEnd, ConfigParallelID)
	if err != nil {
		return nil, err
	}

	classifyEdges(nodes, edges, loopRegions)

	p := &Plan{
		WorkflowID:    def.ID,
		WorkflowName:  def.Name,
		Nodes:         make(map[string]*ExecutableNode, len(nodes)),
		EdgesByTarget: make(map[string][]*Edge),
		EdgesBySource: make(map[string][]*Edge),
		Warnings:      warnings,
		Variables:     copyVariables(def.Variables),
	}

	for _, n := range def.Nodes {
		p.Nodes[n.ID] = &ExecutableNode{
			ID:           n.ID,
			Type:         n.Type,
			Name:         n.Name,
			Config:       n.Config,
			HasErrorPort: hasErrorPortConfig(n),
			IsTerminal:   n.Type == NodeTypeOutput || n.Type == NodeTypeStop,
		}
	}

	for _, e := range edges {
		p.Edges = append(p.Edges, e)
		p.EdgesByTarget[e.To] = append(p.EdgesByTarget[e.To], e)
		p.EdgesBySource[e.From] = append(p.EdgesBySource[e.From], e)
		if e.Kind == EdgeKindError {
			p.Nodes[e.From].HasErrorPort = true
		}
	}

	applyBoundaries(p, loopRegions, func(n *ExecutableNode, id string) { n.LoopBoundary = id })
	applyBoundaries(p, parallelRegions, func(n *ExecutableNode, id string) { n.ParallelBoundary = id })

	buildDependencyLists(p)

	entry, err := resolveEntryPoint(def, nodes, p)
	if err != nil {
		return nil, err
	}
	p.EntryNodeID = entry

	markReachable(p, nodes, entry)

	if err := layerLevels(p); err != nil {
		return nil, err
	}

	if b.strict {
		for _, id := range p.NodeIDs() {
			n := p.Nodes[id]
			if err := validateNodeConfig(n.Type, n.Config); err != nil {
				return nil, buildErr(KindInvalidDefinition, "node %q: %v", id, err)
			}
		}
	}

	return p, nil
}

// normalizeEdges assigns missing edge ids, drops edges with unresolvable
// endpoints (with a warning) and rejects self-loops on non-loop nodes.
func (b *Builder) normalizeEdges(def *models.Definition, nodes map[string]*models.Node, warnings []string) ([]*Edge, []string, error) {
	used := make(map[string]bool, len(def.Edges))
	for _, e := range def.Edges {
		if e.ID != "" {
			used[e.ID] = true
		}
	}

	var out []*Edge
	for i, e := range def.Edges {
		if err := e.Validate(); err != nil {
			return nil, nil, buildErr(KindInvalidEdge, "edge %d: %v", i, err)
		}

		id := e.ID
		if id == "" {
			id = fmt.Sprintf("edge-%d", i)
			if used[id] {
				id = fmt.Sprintf("edge-%d-%s-%s", i, e.From, e.To)
			}
			used[id] = true
		}

		if _, ok := nodes[e.From]; !ok {
			warnings = append(warnings, fmt.Sprintf("dropping edge %s: unknown source node %q", id, e.From))
			continue
		}
		if _, ok := nodes[e.To]; !ok {
			warnings = append(warnings, fmt.Sprintf("dropping edge %s: unknown target node %q", id, e.To))
			continue
		}

		if e.From == e.To && nodes[e.From].Type != NodeTypeLoop {
			return nil, nil, &BuildError{
				Kind:    KindInvalidEdge,
				Message: fmt.Sprintf("self-loop on node %q is only allowed on loop nodes", e.From),
				NodeIDs: []string{e.From},
			}
		}

		out = append(out, &Edge{
			ID:         id,
			From:       e.From,
			To:         e.To,
			SourcePort: e.SourcePort,
			TargetPort: e.TargetPort,
		})
	}

	return out, warnings, nil
}

// dropTerminalOutgoing removes edges leaving terminal-typed nodes.
func dropTerminalOutgoing(nodes map[string]*models.Node, edges []*Edge, warnings []string) ([]*Edge, []string) {
	var out []*Edge
	for _, e := range edges {
		t := nodes[e.From].Type
		if t == NodeTypeOutput || t == NodeTypeStop {
			warnings = append(warnings, fmt.Sprintf("terminal node %q has outgoing edge %s; dropping it", e.From, e.ID))
			continue
		}
		out = append(out, e)
	}
	return out, warnings
}

// boundaryRegion is a detected loop or parallel region.
type boundaryRegion struct {
	startID string
	members map[string]bool
}

// detectBoundaries pairs boundary start nodes with their end nodes and
// computes the enclosed region (nodes on start→end paths). End nodes name
// their start via the id config key; when exactly one start exists the key
// may be omitted.
func detectBoundaries(nodes map[string]*models.Node, edges []*Edge, startType, endType, idKey string) ([]boundaryRegion, error) {
	var starts, ends []string
	for id, n := range nodes {
		switch n.Type {
		case startType:
			starts = append(starts, id)
		case endType:
			ends = append(ends, id)
		}
	}
	sort.Strings(starts)
	sort.Strings(ends)

	if len(starts) == 0 && len(ends) == 0 {
		return nil, nil
	}

	endsByStart := make(map[string][]string)
	for _, endID := range ends {
		startID, _ := nodes[endID].Config[idKey].(string)
		if startID == "" {
			if len(starts) != 1 {
				return nil, &BuildError{
					Kind:    KindUnbalancedBoundary,
					Message: fmt.Sprintf("%s node %q does not name its %s node via %q", endType, endID, startType, idKey),
					NodeIDs: []string{endID},
				}
			}
			startID = starts[0]
		}
		s, ok := nodes[startID]
		if !ok || s.Type != startType {
			return nil, &BuildError{
				Kind:    KindUnbalancedBoundary,
				Message: fmt.Sprintf("%s node %q references unknown %s node %q", endType, endID, startType, startID),
				NodeIDs: []string{endID},
			}
		}
		endsByStart[startID] = append(endsByStart[startID], endID)
	}

	forward := adjacency(edges, false)
	backward := adjacency(edges, true)

	var regions []boundaryRegion
	for _, startID := range starts {
		matched := endsByStart[startID]
		if len(matched) == 0 {
			return nil, &BuildError{
				Kind:    KindUnbalancedBoundary,
				Message: fmt.Sprintf("%s node %q has no matching %s node", startType, startID, endType),
				NodeIDs: []string{startID},
			}
		}

		reach := bfs(forward, startID)
		coreach := make(map[string]bool)
		for _, endID := range matched {
			if !reach[endID] {
				return nil, &BuildError{
					Kind:    KindUnbalancedBoundary,
					Message: fmt.Sprintf("%s node %q is not reachable from %s node %q", endType, endID, startType, startID),
					NodeIDs: []string{startID, endID},
				}
			}
			for id := range bfs(backward, endID) {
				coreach[id] = true
			}
		}

		members := map[string]bool{startID: true}
		for id := range reach {
			if coreach[id] {
				members[id] = true
			}
		}
		regions = append(regions, boundaryRegion{startID: startID, members: members})
	}

	// Regions must nest cleanly: any two overlapping regions must be
	// subset-related.
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if overlapsWithoutNesting(regions[i].members, regions[j].members) {
				return nil, &BuildError{
					Kind:    KindUnbalancedBoundary,
					Message: fmt.Sprintf("boundaries %q and %q overlap without nesting", regions[i].startID, regions[j].startID),
					NodeIDs: []string{regions[i].startID, regions[j].startID},
				}
			}
		}
	}

	return regions, nil
}

// classifyEdges tags every edge with its kind. Loop-back edges are edges
// targeting a loop-start node from inside that loop's own region.
func classifyEdges(nodes map[string]*models.Node, edges []*Edge, loopRegions []boundaryRegion) {
	regionByStart := make(map[string]map[string]bool, len(loopRegions))
	for _, r := range loopRegions {
		regionByStart[r.startID] = r.members
	}

	for _, e := range edges {
		switch {
		case nodes[e.To].Type == NodeTypeLoop && regionByStart[e.To] != nil && regionByStart[e.To][e.From]:
			e.Kind = EdgeKindLoopBack
		case e.SourcePort == models.PortError:
			e.Kind = EdgeKindError
		case (nodes[e.From].Type == NodeTypeConditional || nodes[e.From].Type == NodeTypeSwitch) && e.SourcePort != "":
			e.Kind = EdgeKindControl
		default:
			e.Kind = EdgeKindData
		}
	}
}

// applyBoundaries tags plan nodes with their innermost enclosing boundary.
// Larger regions are applied first so nested (smaller) regions overwrite.
func applyBoundaries(p *Plan, regions []boundaryRegion, set func(*ExecutableNode, string)) {
	sorted := make([]boundaryRegion, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].members) != len(sorted[j].members) {
			return len(sorted[i].members) > len(sorted[j].members)
		}
		return sorted[i].startID < sorted[j].startID
	})

	for _, r := range sorted {
		for id := range r.members {
			set(p.Nodes[id], r.startID)
		}
	}
}

// buildDependencyLists derives sorted Dependencies/Dependents from
// non-loop-back edges.
func buildDependencyLists(p *Plan) {
	deps := make(map[string]map[string]bool)
	dependents := make(map[string]map[string]bool)

	for _, e := range p.Edges {
		if e.Kind == EdgeKindLoopBack {
			continue
		}
		if deps[e.To] == nil {
			deps[e.To] = make(map[string]bool)
		}
		deps[e.To][e.From] = true
		if dependents[e.From] == nil {
			dependents[e.From] = make(map[string]bool)
		}
		dependents[e.From][e.To] = true
	}

	for id, n := range p.Nodes {
		n.Dependencies = sortedKeys(deps[id])
		n.Dependents = sortedKeys(dependents[id])
	}
}

// resolveEntryPoint enforces the single-entry rule. An explicit EntryNodeID
// wins; otherwise a unique input/trigger root, otherwise a unique root.
// Detached roots marked as additional entry points are exempt.
func resolveEntryPoint(def *models.Definition, nodes map[string]*models.Node, p *Plan) (string, error) {
	if def.EntryNodeID != "" {
		if !p.Has(def.EntryNodeID) {
			return "", buildErr(KindInvalidDefinition, "entry node %q does not exist", def.EntryNodeID)
		}
		return def.EntryNodeID, nil
	}

	var roots []string
	for _, id := range p.NodeIDs() {
		if len(p.Nodes[id].Dependencies) == 0 {
			roots = append(roots, id)
		}
	}

	var candidates []string
	for _, id := range roots {
		if !nodes[id].IsAdditionalEntryPoint() {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		return "", buildErr(KindNoEntryPoint, "no entry point candidate among root nodes")
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	var entryTyped []string
	for _, id := range candidates {
		t := nodes[id].Type
		if t == NodeTypeInput || t == NodeTypeTrigger {
			entryTyped = append(entryTyped, id)
		}
	}
	if len(entryTyped) == 1 {
		return entryTyped[0], nil
	}

	offending := candidates
	if len(entryTyped) > 1 {
		offending = entryTyped
	}
	return "", &BuildError{
		Kind:    KindMultipleEntryPoints,
		Message: "multiple entry point candidates; set entry_node_id or mark extra roots as additional entry points",
		NodeIDs: offending,
	}
}

// markReachable flags nodes reachable from the entry point or from any
// marked additional entry root, following non-loop-back edges.
func markReachable(p *Plan, nodes map[string]*models.Node, entry string) {
	forward := make(map[string][]string)
	for _, e := range p.Edges {
		if e.Kind == EdgeKindLoopBack {
			continue
		}
		forward[e.From] = append(forward[e.From], e.To)
	}

	seeds := []string{entry}
	for _, id := range p.NodeIDs() {
		if nodes[id].IsAdditionalEntryPoint() && len(p.Nodes[id].Dependencies) == 0 {
			seeds = append(seeds, id)
		}
	}

	seen := make(map[string]bool)
	queue := seeds
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		queue = append(queue, forward[id]...)
	}

	for id, n := range p.Nodes {
		n.Reachable = seen[id]
	}
}

// layerLevels runs Kahn's algorithm over non-loop-back edges, producing
// BFS layers with a lexicographic tie-break inside each level. A non-empty
// remainder means a cycle.
func layerLevels(p *Plan) error {
	inDegree := make(map[string]int, len(p.Nodes))
	forward := make(map[string][]string)
	for id := range p.Nodes {
		inDegree[id] = 0
	}
	for _, e := range p.Edges {
		if e.Kind == EdgeKindLoopBack {
			continue
		}
		inDegree[e.To]++
		forward[e.From] = append(forward[e.From], e.To)
	}

	remaining := len(p.Nodes)
	for remaining > 0 {
		var level []string
		for id, deg := range inDegree {
			if deg == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			var stuck []string
			for id, deg := range inDegree {
				if deg > 0 {
					stuck = append(stuck, id)
				}
			}
			sort.Strings(stuck)
			return &BuildError{
				Kind:    KindCycleDetected,
				Message: "cycle detected in non-loop-back dependency graph",
				NodeIDs: stuck,
			}
		}

		sort.Strings(level)
		for _, id := range level {
			p.Nodes[id].Level = len(p.Levels)
			delete(inDegree, id)
			remaining--
			for _, child := range forward[id] {
				if _, ok := inDegree[child]; ok {
					inDegree[child]--
				}
			}
		}
		p.Levels = append(p.Levels, level)
	}

	return nil
}

func hasErrorPortConfig(n *models.Node) bool {
	if n.Config == nil {
		return false
	}
	b, ok := n.Config[ConfigErrorPort].(bool)
	return ok && b
}

func copyVariables(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func adjacency(edges []*Edge, reverse bool) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		if reverse {
			adj[e.To] = append(adj[e.To], e.From)
		} else {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}
	return adj
}

func bfs(adj map[string][]string, start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

func overlapsWithoutNesting(a, b map[string]bool) bool {
	var shared, onlyA, onlyB bool
	for id := range a {
		if b[id] {
			shared = true
		} else {
			onlyA = true
		}
	}
	for id := range b {
		if !a[id] {
			onlyB = true
		}
	}
	return shared && onlyA && onlyB
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
