// Package storage implements the persistence collaborators (execution
// records, waitpoints) on Postgres via Bun.
package storage

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/smilemakc/flowgraph/internal/config"
)

// Connect opens a Bun database handle for the configured Postgres DSN.
func Connect(cfg config.DatabaseConfig) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if cfg.MaxConnections > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxConnections)
	}
	return bun.NewDB(sqldb, pgdialect.New())
}
