package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"flowboard/internal/domain"
)

var postgresDialect = &dialect{
	driverName: "postgres",
	numbered:   true,
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS boards (
			board_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			node_count INTEGER NOT NULL DEFAULT 0,
			edge_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_name ON boards(name)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_created_at ON boards(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_updated_at ON boards(updated_at)`,
	},
	upsert: `INSERT INTO boards (` + boardColumns + `, body) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (board_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			node_count = EXCLUDED.node_count,
			edge_count = EXCLUDED.edge_count,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			body = EXCLUDED.body`,
	usage: func(ctx context.Context, db *sql.DB) (*domain.Usage, error) {
		var used int64
		if err := db.QueryRowContext(ctx, `SELECT pg_total_relation_size('boards')`).Scan(&used); err != nil {
			return nil, fmt.Errorf("relation size: %w", err)
		}
		return &domain.Usage{Used: used}, nil
	},
	configure: func(db *sql.DB) {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	},
}

// NewPostgresStore creates a store on a lib/pq connection string.
func NewPostgresStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return newSQLStore(postgresDialect, dsn, logger), nil
}
