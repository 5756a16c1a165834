package storage

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/smilemakc/flowgraph/internal/infrastructure/storage/models"
)

// CreateTables creates the persistence schema if it does not exist.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.ExecutionModel)(nil),
		(*models.NodeExecutionModel)(nil),
		(*models.WaitpointModel)(nil),
	}

	for _, table := range tables {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", table, err)
		}
	}
	return nil
}
