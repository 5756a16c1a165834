package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/flowgraph/internal/infrastructure/storage/models"
	"github.com/smilemakc/flowgraph/pkg/engine"
	domain "github.com/smilemakc/flowgraph/pkg/models"
)

// WaitpointStore implements engine.WaitpointStore on Postgres so paused
// executions can be resumed by another process. Wait polls; the expected
// caller is an API layer that already received the resume request.
type WaitpointStore struct {
	db           *bun.DB
	pollInterval time.Duration
}

var _ engine.WaitpointStore = (*WaitpointStore)(nil)

// NewWaitpointStore creates a database-backed waitpoint store.
func NewWaitpointStore(db *bun.DB) *WaitpointStore {
	return &WaitpointStore{db: db, pollInterval: time.Second}
}

// Create registers a token.
func (s *WaitpointStore) Create(ctx context.Context, token string, timeout time.Duration, tags map[string]string) error {
	model := &models.WaitpointModel{
		Token:       token,
		ExecutionID: tags["execution_id"],
		NodeID:      tags["node_id"],
		Reason:      tags["reason"],
		Status:      models.WaitpointStatusWaiting,
		CreatedAt:   time.Now(),
	}
	if timeout > 0 {
		deadline := time.Now().Add(timeout)
		model.Deadline = &deadline
	}

	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create waitpoint: %w", err)
	}
	return nil
}

// Wait polls the token until it resolves, the deadline passes or ctx ends.
func (s *WaitpointStore) Wait(ctx context.Context, token string) (*engine.WaitResult, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		wp, err := s.get(ctx, token)
		if err != nil {
			return nil, err
		}

		switch wp.Status {
		case models.WaitpointStatusCompleted:
			return &engine.WaitResult{OK: true, Output: map[string]interface{}(wp.Output)}, nil
		case models.WaitpointStatusFailed:
			return &engine.WaitResult{OK: false, Err: errors.New(wp.Error)}, nil
		case models.WaitpointStatusTimedOut:
			return &engine.WaitResult{OK: false, Err: domain.ErrWaitpointTimeout}, nil
		}

		if wp.Deadline != nil && time.Now().After(*wp.Deadline) {
			if err := s.markTimedOut(ctx, token); err != nil {
				return nil, err
			}
			return &engine.WaitResult{OK: false, Err: domain.ErrWaitpointTimeout}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Complete satisfies a waiting token with user input.
func (s *WaitpointStore) Complete(ctx context.Context, token string, input map[string]interface{}) error {
	wp, err := s.get(ctx, token)
	if err != nil {
		return err
	}

	if wp.Status != models.WaitpointStatusWaiting {
		if wp.Status == models.WaitpointStatusTimedOut {
			return domain.ErrWaitpointTimeout
		}
		return domain.ErrWaitpointClosed
	}

	if wp.Deadline != nil && time.Now().After(*wp.Deadline) {
		if err := s.markTimedOut(ctx, token); err != nil {
			return err
		}
		return domain.ErrWaitpointTimeout
	}

	now := time.Now()
	_, err = s.db.NewUpdate().
		Model((*models.WaitpointModel)(nil)).
		Set("status = ?", models.WaitpointStatusCompleted).
		Set("output = ?", models.JSONBMap(input)).
		Set("resolved_at = ?", now).
		Where("token = ? AND status = ?", token, models.WaitpointStatusWaiting).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete waitpoint: %w", err)
	}
	return nil
}

// Fail terminates a waiting token with an error.
func (s *WaitpointStore) Fail(ctx context.Context, token string, reason error) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*models.WaitpointModel)(nil)).
		Set("status = ?", models.WaitpointStatusFailed).
		Set("error = ?", reason.Error()).
		Set("resolved_at = ?", now).
		Where("token = ? AND status = ?", token, models.WaitpointStatusWaiting).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to fail waitpoint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWaitpointNotFound
	}
	return nil
}

func (s *WaitpointStore) get(ctx context.Context, token string) (*models.WaitpointModel, error) {
	wp := new(models.WaitpointModel)
	err := s.db.NewSelect().Model(wp).Where("token = ?", token).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWaitpointNotFound
		}
		return nil, fmt.Errorf("failed to load waitpoint: %w", err)
	}
	return wp, nil
}

func (s *WaitpointStore) markTimedOut(ctx context.Context, token string) error {
	now := time.Now()
	_, err := s.db.NewUpdate().
		Model((*models.WaitpointModel)(nil)).
		Set("status = ?", models.WaitpointStatusTimedOut).
		Set("resolved_at = ?", now).
		Where("token = ? AND status = ?", token, models.WaitpointStatusWaiting).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to time out waitpoint: %w", err)
	}
	return nil
}
