package engine

import (
	"context"
	"sync"
	"time"

	"github.com/smilemakc/flowgraph/pkg/models"
)

// WaitResult is the terminal state of a waitpoint.
type WaitResult struct {
	OK     bool
	Output map[string]interface{}
	Err    error
}

// WaitpointStore holds pause tokens for suspended executions. The executor
// registers a token when a pause signal fires and consumes its result on
// resume; an external API satisfies the wait via Complete.
type WaitpointStore interface {
	// Create registers a token. Timeout <= 0 means no deadline.
	Create(ctx context.Context, token string, timeout time.Duration, tags map[string]string) error

	// Wait blocks until the token completes, fails or times out.
	Wait(ctx context.Context, token string) (*WaitResult, error)

	// Complete satisfies the token with user input. Returns
	// models.ErrWaitpointTimeout if the deadline already passed and
	// models.ErrWaitpointNotFound for unknown tokens.
	Complete(ctx context.Context, token string, input map[string]interface{}) error

	// Fail terminates the token with an error.
	Fail(ctx context.Context, token string, reason error) error
}

// MemoryWaitpointStore is the in-process WaitpointStore.
type MemoryWaitpointStore struct {
	mu     sync.Mutex
	points map[string]*memoryWaitpoint
}

type memoryWaitpoint struct {
	deadline time.Time
	done     chan struct{}
	result   *WaitResult
	tags     map[string]string
}

// NewMemoryWaitpointStore creates an empty in-memory store.
func NewMemoryWaitpointStore() *MemoryWaitpointStore {
	return &MemoryWaitpointStore{points: make(map[string]*memoryWaitpoint)}
}

// Create registers a waitpoint token.
func (s *MemoryWaitpointStore) Create(_ context.Context, token string, timeout time.Duration, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.points[token]; exists {
		return models.ErrWaitpointClosed
	}

	wp := &memoryWaitpoint{
		done: make(chan struct{}),
		tags: tags,
	}
	if timeout > 0 {
		wp.deadline = time.Now().Add(timeout)
	}
	s.points[token] = wp
	return nil
}

// Wait blocks until the token resolves, the deadline passes or ctx ends.
func (s *MemoryWaitpointStore) Wait(ctx context.Context, token string) (*WaitResult, error) {
	s.mu.Lock()
	wp, ok := s.points[token]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrWaitpointNotFound
	}

	var timeoutCh <-chan time.Time
	if !wp.deadline.IsZero() {
		timer := time.NewTimer(time.Until(wp.deadline))
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-wp.done:
		return wp.result, nil
	case <-timeoutCh:
		return &WaitResult{OK: false, Err: models.ErrWaitpointTimeout}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Complete satisfies a waitpoint with user input.
func (s *MemoryWaitpointStore) Complete(_ context.Context, token string, input map[string]interface{}) error {
	return s.resolve(token, &WaitResult{OK: true, Output: input})
}

// Fail terminates a waitpoint with an error.
func (s *MemoryWaitpointStore) Fail(_ context.Context, token string, reason error) error {
	return s.resolve(token, &WaitResult{OK: false, Err: reason})
}

func (s *MemoryWaitpointStore) resolve(token string, result *WaitResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wp, ok := s.points[token]
	if !ok {
		return models.ErrWaitpointNotFound
	}

	select {
	case <-wp.done:
		return models.ErrWaitpointClosed
	default:
	}

	if !wp.deadline.IsZero() && time.Now().After(wp.deadline) {
		wp.result = &WaitResult{OK: false, Err: models.ErrWaitpointTimeout}
		close(wp.done)
		return models.ErrWaitpointTimeout
	}

	wp.result = result
	close(wp.done)
	return nil
}
