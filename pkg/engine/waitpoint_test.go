package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smilemakc/flowgraph/pkg/models"
)

func TestMemoryWaitpointStore_CompleteRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewMemoryWaitpointStore()
	ctx := context.Background()

	if err := s.Create(ctx, "w1", 0, map[string]string{"execution_id": "e1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan *WaitResult, 1)
	go func() {
		res, err := s.Wait(ctx, "w1")
		if err != nil {
			t.Errorf("wait: %v", err)
			return
		}
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Complete(ctx, "w1", map[string]interface{}{"answer": 42}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	select {
	case res := <-done:
		if !res.OK || res.Output["answer"] != 42 {
			t.Fatalf("bad wait result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not resolve")
	}
}

func TestMemoryWaitpointStore_CompleteUnknownToken(t *testing.T) {
	t.Parallel()

	s := NewMemoryWaitpointStore()
	err := s.Complete(context.Background(), "nope", nil)
	if !errors.Is(err, models.ErrWaitpointNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryWaitpointStore_Timeout(t *testing.T) {
	t.Parallel()

	s := NewMemoryWaitpointStore()
	ctx := context.Background()

	if err := s.Create(ctx, "w1", 30*time.Millisecond, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	err := s.Complete(ctx, "w1", map[string]interface{}{"late": true})
	if !errors.Is(err, models.ErrWaitpointTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestMemoryWaitpointStore_DoubleCreate(t *testing.T) {
	t.Parallel()

	s := NewMemoryWaitpointStore()
	ctx := context.Background()

	if err := s.Create(ctx, "w1", 0, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, "w1", 0, nil); !errors.Is(err, models.ErrWaitpointClosed) {
		t.Fatalf("expected closed error on double create, got %v", err)
	}
}

func TestMemoryWaitpointStore_Fail(t *testing.T) {
	t.Parallel()

	s := NewMemoryWaitpointStore()
	ctx := context.Background()

	if err := s.Create(ctx, "w1", 0, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan *WaitResult, 1)
	go func() {
		res, _ := s.Wait(ctx, "w1")
		done <- res
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Fail(ctx, "w1", errors.New("operator rejected")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	select {
	case res := <-done:
		if res.OK || res.Err == nil {
			t.Fatalf("expected failed result, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not resolve")
	}
}
