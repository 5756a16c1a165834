package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestContext_SetAndGetNodeOutput(t *testing.T) {
	t.Parallel()

	c := NewContextManager(map[string]interface{}{"x": 1}, 0)

	c.SetNodeOutput("a", map[string]interface{}{"result": 42})

	out, ok := c.GetNodeOutput("a")
	if !ok {
		t.Fatal("expected output for a")
	}
	if out["result"] != 42 {
		t.Fatalf("expected 42, got %v", out["result"])
	}
	if !c.HasNodeOutput("a") || c.HasNodeOutput("b") {
		t.Fatal("HasNodeOutput mismatch")
	}
}

func TestContext_NilOutputStoredAsEmpty(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)
	c.SetNodeOutput("a", nil)

	out, ok := c.GetNodeOutput("a")
	if !ok || len(out) != 0 {
		t.Fatalf("expected empty output, got %v (present=%v)", out, ok)
	}
}

func TestContext_TruncationSentinel(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 200)

	big := map[string]interface{}{"blob": strings.Repeat("x", 500)}
	c.SetNodeOutput("a", big)

	out, _ := c.GetNodeOutput("a")
	if out["truncated"] != true {
		t.Fatalf("expected truncation sentinel, got %v", out)
	}

	data, _ := json.Marshal(big)
	if out["originalSize"] != len(data) {
		t.Fatalf("expected originalSize %d, got %v", len(data), out["originalSize"])
	}

	preview, ok := out["preview"].(string)
	if !ok || len(preview) == 0 || len(preview) > TruncationPreviewSize {
		t.Fatalf("bad preview: %q", preview)
	}
}

func TestContext_SmallOutputPreservedExactly(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)
	small := map[string]interface{}{"k": "v", "n": 7}
	c.SetNodeOutput("a", small)

	out, _ := c.GetNodeOutput("a")
	if out["k"] != "v" || out["n"] != 7 {
		t.Fatalf("output altered: %v", out)
	}
	if _, hasSentinel := out["truncated"]; hasSentinel {
		t.Fatal("unexpected truncation sentinel")
	}
}

func TestContext_Variables(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)

	if _, ok := c.GetVariable("v"); ok {
		t.Fatal("expected no variable yet")
	}

	c.SetVariable("v", "hello")
	got, ok := c.GetVariable("v")
	if !ok || got != "hello" {
		t.Fatalf("expected hello, got %v", got)
	}

	c.DeleteVariable("v")
	if _, ok := c.GetVariable("v"); ok {
		t.Fatal("expected variable gone after delete")
	}
}

func TestContext_SnapshotImmutability(t *testing.T) {
	t.Parallel()

	c := NewContextManager(map[string]interface{}{"x": 1}, 0)
	c.SetNodeOutput("a", map[string]interface{}{"nested": map[string]interface{}{"k": "v"}})
	c.SetVariable("v", []interface{}{1, 2})

	snap := c.Snapshot()

	// Mutate everything reachable from the snapshot.
	snap.Inputs["x"] = 999
	snap.Variables["v"] = "corrupted"
	snap.NodeOutputs["a"]["nested"].(map[string]interface{})["k"] = "corrupted"
	snap.NodeOutputs["new"] = map[string]interface{}{}

	later := c.Snapshot()
	if later.Inputs["x"] != 1 {
		t.Fatal("input leaked through snapshot")
	}
	if v, _ := later.Variables["v"].([]interface{}); len(v) != 2 {
		t.Fatal("variable leaked through snapshot")
	}
	if later.NodeOutputs["a"]["nested"].(map[string]interface{})["k"] != "v" {
		t.Fatal("node output leaked through snapshot")
	}
	if _, ok := later.NodeOutputs["new"]; ok {
		t.Fatal("snapshot addition leaked into context")
	}
}

func TestContext_LoopScopes(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)

	if snap := c.Snapshot(); snap.Loop != nil {
		t.Fatal("expected no loop scope")
	}

	c.EnterLoop("l1", 0, "first", 3)
	snap := c.Snapshot()
	if snap.Loop == nil || snap.Loop.LoopID != "l1" || snap.Loop.Item != "first" || snap.Loop.Total != 3 {
		t.Fatalf("bad loop scope: %+v", snap.Loop)
	}

	c.UpdateLoopIteration(1, "second")
	snap = c.Snapshot()
	if snap.Loop.Index != 1 || snap.Loop.Item != "second" {
		t.Fatalf("bad updated loop scope: %+v", snap.Loop)
	}

	// Nested loop: the snapshot sees the innermost scope.
	c.EnterLoop("l2", 0, "inner", 1)
	if snap := c.Snapshot(); snap.Loop.LoopID != "l2" {
		t.Fatalf("expected innermost scope, got %+v", snap.Loop)
	}

	c.ExitLoop()
	if snap := c.Snapshot(); snap.Loop.LoopID != "l1" {
		t.Fatalf("expected outer scope restored, got %+v", snap.Loop)
	}

	c.ExitLoop()
	if snap := c.Snapshot(); snap.Loop != nil {
		t.Fatal("expected loop stack empty")
	}
}

func TestContext_ParallelScopes(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)
	c.EnterParallel("p1", 2)

	snap := c.Snapshot()
	if snap.Parallel == nil || snap.Parallel.ParallelID != "p1" || snap.Parallel.BranchIndex != 2 {
		t.Fatalf("bad parallel scope: %+v", snap.Parallel)
	}

	c.ExitParallel()
	if snap := c.Snapshot(); snap.Parallel != nil {
		t.Fatal("expected parallel stack empty")
	}
}

func TestContext_PruneUnusedOutputs(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)
	c.SetNodeOutput("a", map[string]interface{}{"v": 1})
	c.SetNodeOutput("b", map[string]interface{}{"v": 2})
	c.SetNodeOutput("c", map[string]interface{}{"v": 3})

	c.PruneUnusedOutputs(map[string]bool{"b": true})

	if c.HasNodeOutput("a") || c.HasNodeOutput("c") {
		t.Fatal("expected a and c pruned")
	}
	if !c.HasNodeOutput("b") {
		t.Fatal("expected b kept")
	}
}

func TestContext_FinalOutputs(t *testing.T) {
	t.Parallel()

	c := NewContextManager(nil, 0)
	c.SetNodeOutput("out", map[string]interface{}{"result": 6})
	c.SetNodeOutput("other", map[string]interface{}{"result": 1})

	outputs := c.FinalOutputs([]string{"out", "missing"})
	if len(outputs) != 1 {
		t.Fatalf("expected only out, got %v", outputs)
	}

	c.SetVariable("v", true)
	outputs = c.FinalOutputs([]string{"out"})
	vars, ok := outputs["__variables"].(map[string]interface{})
	if !ok || vars["v"] != true {
		t.Fatalf("expected __variables, got %v", outputs)
	}
}
