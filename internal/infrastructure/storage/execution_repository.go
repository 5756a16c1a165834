package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/flowgraph/internal/infrastructure/storage/models"
	domain "github.com/smilemakc/flowgraph/pkg/models"
)

// ExecutionRepository persists execution records using Bun.
type ExecutionRepository struct {
	db *bun.DB
}

// NewExecutionRepository creates a new ExecutionRepository.
func NewExecutionRepository(db *bun.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Save upserts an execution and replaces its node executions.
func (r *ExecutionRepository) Save(ctx context.Context, exec *domain.Execution) error {
	model := models.FromExecution(exec)
	now := time.Now()
	model.UpdatedAt = now
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(model).
			On("CONFLICT (id) DO UPDATE").
			Set("status = EXCLUDED.status").
			Set("output_data = EXCLUDED.output_data").
			Set("error = EXCLUDED.error").
			Set("waitpoint_id = EXCLUDED.waitpoint_id").
			Set("completed_at = EXCLUDED.completed_at").
			Set("duration_ms = EXCLUDED.duration_ms").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save execution: %w", err)
		}

		_, err = tx.NewDelete().
			Model((*models.NodeExecutionModel)(nil)).
			Where("execution_id = ?", model.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete old node executions: %w", err)
		}

		if len(model.NodeExecutions) > 0 {
			_, err = tx.NewInsert().
				Model(&model.NodeExecutions).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to insert node executions: %w", err)
			}
		}

		return nil
	})
}

// Get loads an execution with its node executions.
func (r *ExecutionRepository) Get(ctx context.Context, id string) (*domain.Execution, error) {
	model := new(models.ExecutionModel)
	err := r.db.NewSelect().
		Model(model).
		Relation("NodeExecutions").
		Where("ex.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return model.ToExecution(), nil
}

// ListByWorkflow returns executions for a workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []*models.ExecutionModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", workflowID).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	out := make([]*domain.Execution, len(rows))
	for i, row := range rows {
		out[i] = row.ToExecution()
	}
	return out, nil
}

// Delete removes an execution and its node executions.
func (r *ExecutionRepository) Delete(ctx context.Context, id string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.NodeExecutionModel)(nil)).
			Where("execution_id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete node executions: %w", err)
		}

		res, err := tx.NewDelete().
			Model((*models.ExecutionModel)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete execution: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrExecutionNotFound
		}
		return nil
	})
}
