package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/smilemakc/flowgraph/pkg/executor"
	"github.com/smilemakc/flowgraph/pkg/models"
	"github.com/smilemakc/flowgraph/pkg/plan"
	"github.com/smilemakc/flowgraph/pkg/template"
)

// Executor runs compiled plans. It owns the per-execution queue and context
// exclusively; handlers only ever receive immutable snapshots. A single
// Executor may drive many executions, each with its own state; paused runs
// are kept until resumed.
type Executor struct {
	opts *Options

	mu     sync.Mutex
	paused map[string]*pausedRun
}

type pausedRun struct {
	st          *runState
	nodeID      string
	waitpointID string
}

// runState bundles the per-execution state owned by the orchestration
// goroutine.
type runState struct {
	executionID string
	plan        *plan.Plan
	queue       *ExecutionQueue
	cctx        *ContextManager
	inputs      map[string]interface{}
	loops       map[string]*loopRuntime
	records     map[string]*nodeRecord
	batchIndex  int
	startedAt   time.Time
}

// loopRuntime tracks one active loop boundary.
type loopRuntime struct {
	items         []interface{}
	total         int
	maxIterations int
	index         int
	results       []interface{}
}

func (rt *loopRuntime) itemAt(i int) interface{} {
	if i >= 0 && i < len(rt.items) {
		return rt.items[i]
	}
	return nil
}

type pauseRequest struct {
	nodeID string
	signal *executor.PauseSignal
}

// New creates an executor. The options must carry a registry.
func New(opts *Options) (*Executor, error) {
	if opts == nil || opts.Registry == nil {
		return nil, fmt.Errorf("engine: options must include a handler registry")
	}
	return &Executor{
		opts:   opts.withDefaults(),
		paused: make(map[string]*pausedRun),
	}, nil
}

// Run executes a plan to completion, pause or failure.
func (e *Executor) Run(ctx context.Context, p *plan.Plan, inputs map[string]interface{}) (*Outcome, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: plan is required")
	}
	if inputs == nil {
		inputs = map[string]interface{}{}
	}

	cctx := NewContextManager(inputs, e.opts.MaxOutputSize)
	for name, value := range mergeVariables(p.Variables, e.opts.Variables) {
		cctx.SetVariable(name, value)
	}

	st := &runState{
		executionID: uuid.New().String(),
		plan:        p,
		queue:       NewExecutionQueue(p),
		cctx:        cctx,
		inputs:      inputs,
		loops:       make(map[string]*loopRuntime),
		records:     make(map[string]*nodeRecord),
		startedAt:   time.Now(),
	}

	e.notify(ctx, ExecutionEvent{
		Type:        EventTypeExecutionStarted,
		ExecutionID: st.executionID,
		WorkflowID:  p.WorkflowID,
		Status:      models.ExecutionStatusRunning,
		Timestamp:   st.startedAt,
	})
	e.publishProgress(ctx, st, models.ExecutionStatusRunning, nil)

	return e.runLoop(ctx, st)
}

// Resume re-enters a paused execution, satisfying its waitpoint with user
// input. The paused node's output gains a userInput key (or the timeout
// sentinel when the waitpoint expired) and the node is marked completed
// before the loop continues.
func (e *Executor) Resume(ctx context.Context, executionID, waitpointID string, userInput map[string]interface{}) (*Outcome, error) {
	e.mu.Lock()
	pr, ok := e.paused[executionID]
	if ok && pr.waitpointID != waitpointID {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", models.ErrWaitpointNotFound, waitpointID)
	}
	if ok {
		delete(e.paused, executionID)
	}
	e.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrExecutionNotPaused, executionID)
	}

	st := pr.st

	injected := map[string]interface{}{"userInput": userInput}
	if e.opts.Waitpoints != nil {
		err := e.opts.Waitpoints.Complete(ctx, waitpointID, userInput)
		switch {
		case err == nil, errors.Is(err, models.ErrWaitpointNotFound):
		case errors.Is(err, models.ErrWaitpointTimeout):
			injected = map[string]interface{}{
				"waitpointTimedOut": true,
				"waitpointError":    err.Error(),
			}
		default:
			return nil, fmt.Errorf("completing waitpoint %s: %w", waitpointID, err)
		}
	}

	output, _ := st.cctx.GetNodeOutput(pr.nodeID)
	merged := copyMap(output)
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for k, v := range injected {
		merged[k] = v
	}
	st.cctx.SetNodeOutput(pr.nodeID, merged)
	st.queue.MarkCompleted(pr.nodeID)
	if rec := st.records[pr.nodeID]; rec != nil {
		rec.status = models.NodeStatusCompleted
		rec.output = merged
		rec.endedAt = time.Now()
	}

	e.notify(ctx, ExecutionEvent{
		Type:        EventTypeExecutionResumed,
		ExecutionID: st.executionID,
		WorkflowID:  st.plan.WorkflowID,
		NodeID:      pr.nodeID,
		Status:      models.ExecutionStatusRunning,
		Timestamp:   time.Now(),
	})
	e.publishProgress(ctx, st, models.ExecutionStatusRunning, nil)

	return e.runLoop(ctx, st)
}

// runLoop drives the queue until completion, a pause or a stall.
func (e *Executor) runLoop(ctx context.Context, st *runState) (*Outcome, error) {
	for st.queue.HasWork() {
		if ctx.Err() != nil {
			return e.finalize(ctx, st, true), nil
		}

		batch := st.queue.NextBatch()
		if len(batch) == 0 {
			break
		}

		st.queue.MarkInProgress(batch)
		snap := st.cctx.Snapshot()

		e.notify(ctx, ExecutionEvent{
			Type:        EventTypeBatchStarted,
			ExecutionID: st.executionID,
			WorkflowID:  st.plan.WorkflowID,
			BatchIndex:  st.batchIndex,
			NodeCount:   len(batch),
			Status:      models.ExecutionStatusRunning,
			Timestamp:   time.Now(),
		})
		batchStart := time.Now()

		results, records := e.dispatchBatch(ctx, st, batch, snap)

		// Results apply sequentially in batch (plan) order so variable
		// writes and skip decisions are deterministic.
		var pause *pauseRequest
		for i, nodeID := range batch {
			res := results[i]
			rec := records[i]
			if rec == nil {
				rec = &nodeRecord{
					nodeID:    nodeID,
					nodeName:  st.plan.Nodes[nodeID].Name,
					nodeType:  st.plan.Nodes[nodeID].Type,
					startedAt: batchStart,
				}
			}
			if res == nil {
				res = executor.Fail(&executor.NodeError{Message: "execution canceled", Code: "canceled"})
			}
			st.records[nodeID] = rec

			if p := e.applyResult(ctx, st, nodeID, res, rec); p != nil && pause == nil {
				pause = p
			}
		}

		e.notify(ctx, ExecutionEvent{
			Type:        EventTypeBatchCompleted,
			ExecutionID: st.executionID,
			WorkflowID:  st.plan.WorkflowID,
			BatchIndex:  st.batchIndex,
			NodeCount:   len(batch),
			Status:      models.ExecutionStatusRunning,
			DurationMs:  time.Since(batchStart).Milliseconds(),
			Timestamp:   time.Now(),
		})
		st.batchIndex++

		if pause != nil {
			return e.registerPause(ctx, st, pause)
		}

		e.pruneOutputs(st)
		e.publishProgress(ctx, st, models.ExecutionStatusRunning, batch)
	}

	return e.finalize(ctx, st, ctx.Err() != nil), nil
}

// dispatchBatch fans the batch out to handler goroutines and waits for all
// of them (fan-out/fan-in barrier). On cancellation it waits at most the
// grace period; missing results come back nil.
func (e *Executor) dispatchBatch(ctx context.Context, st *runState, batch []string, snap *executor.Snapshot) ([]*executor.Result, []*nodeRecord) {
	type batchItem struct {
		idx int
		res *executor.Result
		rec *nodeRecord
	}

	resCh := make(chan batchItem, len(batch))
	sem := make(chan struct{}, e.opts.MaxConcurrency)

	for i, nodeID := range batch {
		go func(idx int, id string) {
			sem <- struct{}{}
			defer func() { <-sem }()
			res, rec := e.invokeNode(ctx, st, id, snap)
			resCh <- batchItem{idx: idx, res: res, rec: rec}
		}(i, nodeID)
	}

	results := make([]*executor.Result, len(batch))
	records := make([]*nodeRecord, len(batch))

	done := ctx.Done()
	var grace <-chan time.Time
	received := 0
	for received < len(batch) {
		select {
		case item := <-resCh:
			results[item.idx] = item.res
			records[item.idx] = item.rec
			received++
		case <-done:
			done = nil
			grace = time.After(e.opts.CancelGracePeriod)
		case <-grace:
			return results, records
		}
	}

	return results, records
}

// invokeNode resolves templates, builds the invocation and dispatches it.
// Runs on a handler goroutine.
func (e *Executor) invokeNode(ctx context.Context, st *runState, nodeID string, snap *executor.Snapshot) (*executor.Result, *nodeRecord) {
	n := st.plan.Nodes[nodeID]
	rec := &nodeRecord{
		nodeID:    nodeID,
		nodeName:  n.Name,
		nodeType:  n.Type,
		config:    n.Config,
		startedAt: time.Now(),
	}

	e.notify(ctx, ExecutionEvent{
		Type:        EventTypeNodeStarted,
		ExecutionID: st.executionID,
		WorkflowID:  st.plan.WorkflowID,
		NodeID:      nodeID,
		NodeName:    n.Name,
		NodeType:    n.Type,
		Status:      models.ExecutionStatusRunning,
		Timestamp:   rec.startedAt,
	})

	nodeCtx := ctx
	var deadline time.Time
	timeout := nodeTimeout(n, e.opts.NodeTimeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		deadline, _ = nodeCtx.Deadline()
	}

	tmplEngine := template.NewEngine(&template.Context{
		Inputs:      snap.Inputs,
		Variables:   snap.Variables,
		NodeOutputs: snap.NodeOutputs,
		Loop:        loopScopeMap(snap.Loop),
		Parallel:    parallelScopeMap(snap.Parallel),
	}, template.Options{Strict: e.opts.StrictTemplates})

	resolved, err := tmplEngine.ResolveConfig(n.Config)
	if err != nil {
		rec.endedAt = time.Now()
		return executor.Fail(&executor.NodeError{
			Message: fmt.Sprintf("template resolution failed: %v", err),
			Code:    "template_error",
		}), rec
	}
	rec.resolvedConfig = resolved
	rec.input = prepareInput(n, snap)

	inv := &executor.Invocation{
		ExecutionID:  st.executionID,
		WorkflowID:   st.plan.WorkflowID,
		NodeID:       nodeID,
		NodeType:     n.Type,
		NodeName:     n.Name,
		Config:       resolved,
		Input:        rec.input,
		Dependencies: n.Dependencies,
		Snapshot:     snap,
		Deadline:     deadline,
		UserID:       e.opts.UserID,
		ConnectionID: e.opts.ConnectionID,
	}

	if e.opts.Tracer != nil {
		var span trace.Span
		nodeCtx, span = e.opts.Tracer.Start(nodeCtx, "flowgraph.node",
			trace.WithAttributes(
				attribute.String("flowgraph.execution_id", st.executionID),
				attribute.String("flowgraph.node_id", nodeID),
				attribute.String("flowgraph.node_type", n.Type),
			))
		defer span.End()
	}

	res := e.opts.Registry.Dispatch(nodeCtx, inv)

	// A deadline expiry is non-retryable unless the handler says otherwise.
	if !res.Success && res.Error != nil && res.Error.Code == "" && errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
		res.Error.Code = "deadline_exceeded"
	}

	rec.endedAt = time.Now()
	return res, rec
}

// applyResult folds one node result into queue and context state. Returns a
// pause request when the node signaled a pause.
func (e *Executor) applyResult(ctx context.Context, st *runState, nodeID string, res *executor.Result, rec *nodeRecord) *pauseRequest {
	n := st.plan.Nodes[nodeID]

	data := res.Data
	if data == nil {
		data = map[string]interface{}{}
	}

	failed := !res.Success || (res.Signals != nil && res.Signals.ActivateErrorPort)
	if failed {
		ne := res.Error
		if ne == nil {
			ne = &executor.NodeError{Message: "error port activated"}
		}
		data["__error"] = map[string]interface{}{
			"message":   ne.Message,
			"code":      ne.Code,
			"retryable": ne.Retryable,
		}
		rec.errMsg = ne.Message
	}

	st.cctx.SetNodeOutput(nodeID, data)
	rec.output = data

	if res.Signals != nil {
		for name, value := range res.Signals.SetVariables {
			if value == nil {
				st.cctx.DeleteVariable(name)
			} else {
				st.cctx.SetVariable(name, value)
			}
		}
		if res.Signals.SelectedRoute != "" {
			st.queue.SetRoute(nodeID, res.Signals.SelectedRoute)
		}
		if res.Signals.IsTerminal {
			st.queue.SetTerminal(nodeID)
		}

		if res.Signals.Pause != nil && !failed {
			if e.opts.Waitpoints == nil {
				failed = true
				data["__error"] = map[string]interface{}{
					"message":   "pause signal without a waitpoint store",
					"code":      "no_waitpoint_store",
					"retryable": false,
				}
				st.cctx.SetNodeOutput(nodeID, data)
				rec.errMsg = "pause signal without a waitpoint store"
			} else {
				rec.status = models.NodeStatusInProgress
				return &pauseRequest{nodeID: nodeID, signal: res.Signals.Pause}
			}
		}
	}

	if failed {
		st.queue.MarkFailed(nodeID)
		rec.status = models.NodeStatusFailed
		e.notify(ctx, ExecutionEvent{
			Type:        EventTypeNodeFailed,
			ExecutionID: st.executionID,
			WorkflowID:  st.plan.WorkflowID,
			NodeID:      nodeID,
			NodeName:    n.Name,
			NodeType:    n.Type,
			Status:      models.ExecutionStatusRunning,
			Error:       res.Error,
			DurationMs:  rec.endedAt.Sub(rec.startedAt).Milliseconds(),
			Timestamp:   time.Now(),
		})
		return nil
	}

	st.queue.MarkCompleted(nodeID)
	rec.status = models.NodeStatusCompleted
	e.notify(ctx, ExecutionEvent{
		Type:        EventTypeNodeCompleted,
		ExecutionID: st.executionID,
		WorkflowID:  st.plan.WorkflowID,
		NodeID:      nodeID,
		NodeName:    n.Name,
		NodeType:    n.Type,
		Status:      models.ExecutionStatusRunning,
		Output:      data,
		DurationMs:  rec.endedAt.Sub(rec.startedAt).Milliseconds(),
		Timestamp:   time.Now(),
	})

	switch n.Type {
	case plan.NodeTypeLoop:
		e.startLoop(st, n, data)
	case plan.NodeTypeLoopEnd:
		e.finishLoopIteration(ctx, st, n, res, data)
	case plan.NodeTypeParallel:
		st.cctx.EnterParallel(n.ID, 0)
	case plan.NodeTypeParallelEnd:
		st.cctx.ExitParallel()
	}

	return nil
}

// startLoop initializes the loop runtime from the loop-start node's output
// and pushes the loop scope.
func (e *Executor) startLoop(st *runState, n *plan.ExecutableNode, data map[string]interface{}) {
	rt := &loopRuntime{}
	if items, ok := data["items"].([]interface{}); ok {
		rt.items = items
		rt.total = len(items)
	} else if total, ok := asInt(data["total"]); ok {
		rt.total = total
	}
	if maxIter, ok := asInt(n.Config["max_iterations"]); ok {
		rt.maxIterations = maxIter
	}

	st.loops[n.ID] = rt
	st.cctx.EnterLoop(n.ID, 0, rt.itemAt(0), rt.total)
}

// finishLoopIteration decides between another iteration and loop exit when
// a loop-end node completes. Another iteration resets the loop region
// (queue states and stored outputs) back to pending; exit pops the scope
// and aggregates iteration results onto the loop-end output.
func (e *Executor) finishLoopIteration(ctx context.Context, st *runState, n *plan.ExecutableNode, res *executor.Result, data map[string]interface{}) {
	loopID := n.LoopBoundary
	rt := st.loops[loopID]
	if loopID == "" || rt == nil {
		return
	}

	rt.results = append(rt.results, copyValue(data))

	next := rt.index + 1
	again := next < rt.total
	if rt.maxIterations > 0 && next >= rt.maxIterations {
		again = false
	}
	if res.Signals != nil && res.Signals.LoopControl == executor.LoopControlBreak {
		again = false
	}

	if !again {
		st.cctx.ExitLoop()
		delete(st.loops, loopID)

		aggregated := copyMap(data)
		aggregated["iterations"] = rt.index + 1
		aggregated["results"] = rt.results
		st.cctx.SetNodeOutput(n.ID, aggregated)
		return
	}

	rt.index = next
	st.cctx.UpdateLoopIteration(next, rt.itemAt(next))

	region := st.plan.BoundaryNodes(loopID)
	st.queue.ResetRegion(region)
	for _, id := range region {
		st.cctx.ClearNodeOutput(id)
	}

	e.notify(ctx, ExecutionEvent{
		Type:        EventTypeLoopIteration,
		ExecutionID: st.executionID,
		WorkflowID:  st.plan.WorkflowID,
		NodeID:      loopID,
		Status:      models.ExecutionStatusRunning,
		Message:     fmt.Sprintf("loop %s iteration %d/%d", loopID, next+1, rt.total),
		Timestamp:   time.Now(),
	})
}

// registerPause creates the waitpoint, parks the run state and returns the
// paused outcome.
func (e *Executor) registerPause(ctx context.Context, st *runState, pr *pauseRequest) (*Outcome, error) {
	token := pr.signal.WaitpointID
	if token == "" {
		token = uuid.New().String()
	}

	tags := map[string]string{
		"execution_id": st.executionID,
		"node_id":      pr.nodeID,
	}
	if pr.signal.Reason != "" {
		tags["reason"] = pr.signal.Reason
	}
	if err := e.opts.Waitpoints.Create(ctx, token, pr.signal.Timeout, tags); err != nil {
		return nil, fmt.Errorf("creating waitpoint %s: %w", token, err)
	}

	e.mu.Lock()
	e.paused[st.executionID] = &pausedRun{st: st, nodeID: pr.nodeID, waitpointID: token}
	e.mu.Unlock()

	e.notify(ctx, ExecutionEvent{
		Type:        EventTypeExecutionPaused,
		ExecutionID: st.executionID,
		WorkflowID:  st.plan.WorkflowID,
		NodeID:      pr.nodeID,
		Status:      models.ExecutionStatusPaused,
		Message:     pr.signal.Reason,
		Timestamp:   time.Now(),
	})
	e.publishProgress(ctx, st, models.ExecutionStatusPaused, nil)

	return &Outcome{
		ExecutionID:    st.executionID,
		WorkflowID:     st.plan.WorkflowID,
		Status:         models.ExecutionStatusPaused,
		WaitpointID:    token,
		PartialOutputs: st.cctx.FinalOutputs(st.queue.CompletedNodes()),
		CompletedNodes: st.queue.CompletedNodes(),
		FailedNodes:    st.queue.FailedNodes(),
		SkippedNodes:   st.queue.SkippedNodes(),
		Warnings:       st.plan.Warnings,
		StartedAt:      st.startedAt,
		DurationMs:     time.Since(st.startedAt).Milliseconds(),
	}, nil
}

// pruneOutputs drops stored outputs no remaining pending node depends on.
// Terminal and leaf outputs survive; they feed the final output map.
func (e *Executor) pruneOutputs(st *runState) {
	still := make(map[string]bool)
	for id, n := range st.plan.Nodes {
		if st.queue.Status(id) == models.NodeStatusPending {
			for _, dep := range n.Dependencies {
				still[dep] = true
			}
		}
		if n.IsTerminal || len(n.Dependents) == 0 {
			still[id] = true
		}
	}
	st.cctx.PruneUnusedOutputs(still)
}

// finalize classifies the run, marks leftover pending nodes skipped and
// builds the outcome.
func (e *Executor) finalize(ctx context.Context, st *runState, canceled bool) *Outcome {
	blocked := !canceled && st.queue.HasBlockedReachable()

	for _, id := range st.queue.SkipPending() {
		n := st.plan.Nodes[id]
		if st.records[id] == nil {
			st.records[id] = &nodeRecord{
				nodeID:   id,
				nodeName: n.Name,
				nodeType: n.Type,
				status:   models.NodeStatusSkipped,
			}
		}
		e.notify(ctx, ExecutionEvent{
			Type:        EventTypeNodeSkipped,
			ExecutionID: st.executionID,
			WorkflowID:  st.plan.WorkflowID,
			NodeID:      id,
			NodeName:    n.Name,
			NodeType:    n.Type,
			Status:      models.ExecutionStatusRunning,
			Message:     "no live path remained",
			Timestamp:   time.Now(),
		})
	}

	completed := st.queue.CompletedNodes()
	failedNodes := st.queue.FailedNodes()

	outcome := &Outcome{
		ExecutionID:    st.executionID,
		WorkflowID:     st.plan.WorkflowID,
		CompletedNodes: completed,
		FailedNodes:    failedNodes,
		SkippedNodes:   st.queue.SkippedNodes(),
		Warnings:       st.plan.Warnings,
		StartedAt:      st.startedAt,
		DurationMs:     time.Since(st.startedAt).Milliseconds(),
	}

	switch {
	case canceled:
		outcome.Status = models.ExecutionStatusCanceled
		outcome.Error = "canceled"
	case len(failedNodes) > 0:
		outcome.Status = models.ExecutionStatusCompletedWithErrors
		if rec := st.records[failedNodes[0]]; rec != nil && rec.errMsg != "" {
			outcome.Error = fmt.Sprintf("node %s failed: %s", failedNodes[0], rec.errMsg)
		} else {
			outcome.Error = fmt.Sprintf("node %s failed", failedNodes[0])
		}
	case blocked:
		outcome.Status = models.ExecutionStatusFailed
		outcome.Error = models.ErrExecutionBlocked.Error()
	default:
		outcome.Status = models.ExecutionStatusCompleted
		outcome.Success = true
	}

	terminalCompleted := make([]string, 0)
	for _, id := range st.plan.TerminalNodes() {
		if st.queue.Status(id) == models.NodeStatusCompleted {
			terminalCompleted = append(terminalCompleted, id)
		}
	}
	if len(terminalCompleted) > 0 {
		outcome.Outputs = st.cctx.FinalOutputs(terminalCompleted)
	} else {
		outcome.Outputs = st.cctx.FinalOutputs(completed)
	}

	eventType := EventTypeExecutionCompleted
	if canceled {
		eventType = EventTypeExecutionCanceled
	} else if !outcome.Success {
		eventType = EventTypeExecutionFailed
	}
	e.notify(ctx, ExecutionEvent{
		Type:        eventType,
		ExecutionID: st.executionID,
		WorkflowID:  st.plan.WorkflowID,
		Status:      outcome.Status,
		DurationMs:  outcome.DurationMs,
		Timestamp:   time.Now(),
	})
	e.publishProgress(ctx, st, outcome.Status, nil)

	outcome.records = sortedRecords(st)
	outcome.inputs = st.inputs
	return outcome
}

// notify emits a diagnostic event with panic isolation; a broken notifier
// must not take the execution down.
func (e *Executor) notify(ctx context.Context, event ExecutionEvent) {
	if e.opts.Notifier == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	e.opts.Notifier.Notify(ctx, event)
}

// publishProgress pushes a progress update to the sink, if any.
func (e *Executor) publishProgress(ctx context.Context, st *runState, status models.ExecutionStatus, batch []string) {
	if e.opts.Progress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	e.opts.Progress.Publish(ctx, ProgressUpdate{
		ExecutionID:  st.executionID,
		Status:       status,
		Progress:     st.queue.Progress(),
		Completed:    st.queue.CompletedNodes(),
		Failed:       st.queue.FailedNodes(),
		CurrentBatch: batch,
	})
}

// nodeTimeout picks the node deadline: config timeout (ms) wins over the
// engine default.
func nodeTimeout(n *plan.ExecutableNode, fallback time.Duration) time.Duration {
	if n.Config != nil {
		if ms, ok := asInt(n.Config[ConfigTimeoutMs]); ok && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

// asInt converts JSON-shaped numbers to int.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func sortedRecords(st *runState) []*nodeRecord {
	ids := st.plan.NodeIDs()
	out := make([]*nodeRecord, 0, len(ids))
	for _, id := range ids {
		if rec := st.records[id]; rec != nil {
			out = append(out, rec)
		}
	}
	return out
}
