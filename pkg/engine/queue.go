package engine

import (
	"sort"

	"github.com/smilemakc/flowgraph/pkg/models"
	"github.com/smilemakc/flowgraph/pkg/plan"
)

// ExecutionQueue is the dependency-aware ready set over a plan's nodes.
//
// The five node states partition the plan; pending → inProgress →
// completed/failed, pending → skipped. The queue is owned by the single
// orchestration goroutine and is not safe for concurrent mutation.
type ExecutionQueue struct {
	plan   *plan.Plan
	status map[string]models.NodeStatus

	// routes records SelectedRoute signals: only edges through the selected
	// source port stay live.
	routes map[string]string

	// terminals records IsTerminal signals: the node's outgoing edges go
	// dead, stopping its branch.
	terminals map[string]bool
}

// NewExecutionQueue creates a queue with every plan node pending.
func NewExecutionQueue(p *plan.Plan) *ExecutionQueue {
	q := &ExecutionQueue{
		plan:      p,
		status:    make(map[string]models.NodeStatus, len(p.Nodes)),
		routes:    make(map[string]string),
		terminals: make(map[string]bool),
	}
	for id := range p.Nodes {
		q.status[id] = models.NodeStatusPending
	}
	return q
}

// HasWork reports whether any node is still pending.
func (q *ExecutionQueue) HasWork() bool {
	for _, st := range q.status {
		if st == models.NodeStatusPending {
			return true
		}
	}
	return false
}

// IsComplete reports whether every node reached a terminal state.
func (q *ExecutionQueue) IsComplete() bool {
	for _, st := range q.status {
		if !st.IsTerminal() {
			return false
		}
	}
	return true
}

// IsSuccessful reports whether the queue is complete with no failures.
func (q *ExecutionQueue) IsSuccessful() bool {
	if !q.IsComplete() {
		return false
	}
	for _, st := range q.status {
		if st == models.NodeStatusFailed {
			return false
		}
	}
	return true
}

// Progress returns completion percentage in [0,100].
func (q *ExecutionQueue) Progress() int {
	if len(q.status) == 0 {
		return 100
	}
	done := 0
	for _, st := range q.status {
		if st.IsTerminal() {
			done++
		}
	}
	return done * 100 / len(q.status)
}

// Status returns the state of a node.
func (q *ExecutionQueue) Status(id string) models.NodeStatus {
	return q.status[id]
}

// NextBatch returns the next set of runnable node ids in plan level order
// with lexicographic ties. Skip propagation runs to a fixed point first:
// pending nodes whose every live path is gone are moved to skipped.
func (q *ExecutionQueue) NextBatch() []string {
	for q.propagateSkips() {
	}

	var batch []string
	for _, level := range q.plan.Levels {
		for _, id := range level {
			if q.status[id] != models.NodeStatusPending {
				continue
			}
			n := q.plan.Nodes[id]
			if !n.Reachable {
				continue
			}
			if ready, _ := q.evaluate(n); ready {
				batch = append(batch, id)
			}
		}
	}
	return batch
}

// propagateSkips performs one skip-marking pass; returns true if anything
// changed.
func (q *ExecutionQueue) propagateSkips() bool {
	changed := false
	for _, level := range q.plan.Levels {
		for _, id := range level {
			if q.status[id] != models.NodeStatusPending {
				continue
			}
			n := q.plan.Nodes[id]
			if !n.Reachable {
				continue
			}
			if _, skip := q.evaluate(n); skip {
				q.status[id] = models.NodeStatusSkipped
				changed = true
			}
		}
	}
	return changed
}

// evaluate decides whether a pending node is ready to run or must be
// skipped. A node is ready when every dependency is resolved (or absent
// from the plan) and at least one incoming edge is live; it is skipped when
// all dependencies resolved but no live path remains.
func (q *ExecutionQueue) evaluate(n *plan.ExecutableNode) (ready, skip bool) {
	for _, dep := range n.Dependencies {
		if !q.plan.Has(dep) {
			continue
		}
		if !q.status[dep].IsTerminal() {
			return false, false
		}
	}

	if len(n.Dependencies) == 0 {
		return true, false
	}

	for _, e := range q.plan.EdgesByTarget[n.ID] {
		if e.Kind == plan.EdgeKindLoopBack {
			continue
		}
		if q.edgeLive(e) {
			return true, false
		}
	}
	return false, true
}

// edgeLive reports whether a resolved edge can still carry execution.
func (q *ExecutionQueue) edgeLive(e *plan.Edge) bool {
	source := q.plan.Nodes[e.From]
	if source == nil {
		return false
	}

	switch q.status[e.From] {
	case models.NodeStatusCompleted:
		if q.terminals[e.From] {
			return false
		}
		if e.Kind == plan.EdgeKindError {
			return false
		}
		if route, routed := q.routes[e.From]; routed && e.SourcePort != "" && e.SourcePort != route {
			return false
		}
		return true

	case models.NodeStatusFailed:
		return e.Kind == plan.EdgeKindError && source.HasErrorPort

	default:
		return false
	}
}

// MarkInProgress moves pending nodes into in-progress.
func (q *ExecutionQueue) MarkInProgress(ids []string) {
	for _, id := range ids {
		if q.status[id] == models.NodeStatusPending {
			q.status[id] = models.NodeStatusInProgress
		}
	}
}

// MarkCompleted marks a node completed.
func (q *ExecutionQueue) MarkCompleted(id string) {
	q.status[id] = models.NodeStatusCompleted
}

// MarkFailed marks a node failed.
func (q *ExecutionQueue) MarkFailed(id string) {
	q.status[id] = models.NodeStatusFailed
}

// MarkSkipped marks a node skipped.
func (q *ExecutionQueue) MarkSkipped(id string) {
	q.status[id] = models.NodeStatusSkipped
}

// SetRoute records a routing decision for a completed node.
func (q *ExecutionQueue) SetRoute(id, route string) {
	q.routes[id] = route
}

// SetTerminal records a hard branch stop for a node.
func (q *ExecutionQueue) SetTerminal(id string) {
	q.terminals[id] = true
}

// ResetRegion returns terminal-state nodes to pending so a loop boundary can
// re-execute. In-progress nodes are left alone.
func (q *ExecutionQueue) ResetRegion(ids []string) {
	for _, id := range ids {
		if st, ok := q.status[id]; ok && st.IsTerminal() {
			q.status[id] = models.NodeStatusPending
		}
		delete(q.routes, id)
		delete(q.terminals, id)
	}
}

// SkipPending marks every remaining pending node skipped and returns their
// ids, sorted. Used for cancellation and blocked executions.
func (q *ExecutionQueue) SkipPending() []string {
	var skippedNow []string
	for id, st := range q.status {
		if st == models.NodeStatusPending {
			q.status[id] = models.NodeStatusSkipped
			skippedNow = append(skippedNow, id)
		}
	}
	sort.Strings(skippedNow)
	return skippedNow
}

// HasBlockedReachable reports whether a reachable node is still pending.
// True when the queue stalls with real work isolated behind a skip chain.
func (q *ExecutionQueue) HasBlockedReachable() bool {
	for id, st := range q.status {
		if st == models.NodeStatusPending && q.plan.Nodes[id].Reachable {
			return true
		}
	}
	return false
}

// CompletedNodes returns sorted completed node ids.
func (q *ExecutionQueue) CompletedNodes() []string { return q.nodesIn(models.NodeStatusCompleted) }

// FailedNodes returns sorted failed node ids.
func (q *ExecutionQueue) FailedNodes() []string { return q.nodesIn(models.NodeStatusFailed) }

// SkippedNodes returns sorted skipped node ids.
func (q *ExecutionQueue) SkippedNodes() []string { return q.nodesIn(models.NodeStatusSkipped) }

func (q *ExecutionQueue) nodesIn(status models.NodeStatus) []string {
	var ids []string
	for id, st := range q.status {
		if st == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
