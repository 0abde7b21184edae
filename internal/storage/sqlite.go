package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"flowboard/internal/domain"
)

var sqliteDialect = &dialect{
	driverName: "sqlite",
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
		ON CONFLICT(board_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			body = excluded.body`,
	usage: sqliteUsage,
	configure: func(db *sql.DB) {
		// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	},
}

// NewSQLiteStore creates a store backed by the SQLite file at path, creating
// the parent directory if needed. The file is opened lazily by Init.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, domain.Unavailable("create db directory", err)
		}
	}
	return newSQLStore(sqliteDialect, sqliteDSN(path), logger), nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func sqliteUsage(ctx context.Context, db *sql.DB) (*domain.Usage, error) {
	var pageCount, pageSize, maxPages int64
	if err := db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("page_count: %w", err)
	}
	if err := db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("page_size: %w", err)
	}
	if err := db.QueryRowContext(ctx, `PRAGMA max_page_count`).Scan(&maxPages); err != nil {
		return nil, fmt.Errorf("max_page_count: %w", err)
	}
	return &domain.Usage{Used: pageCount * pageSize, Quota: maxPages * pageSize}, nil
}
