package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"flowboard/internal/domain"
)

var mysqlDialect = &dialect{
	driverName: "mysql",
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS boards (
			board_id VARCHAR(191) NOT NULL PRIMARY KEY,
			name VARCHAR(512) NOT NULL,
			description TEXT NOT NULL,
			node_count INT NOT NULL DEFAULT 0,
			edge_count INT NOT NULL DEFAULT 0,
			created_at VARCHAR(32) NOT NULL,
			updated_at VARCHAR(32) NOT NULL,
			body LONGTEXT NOT NULL
		) CHARACTER SET utf8mb4`,
		`CREATE INDEX idx_boards_name ON boards(name)`,
		`CREATE INDEX idx_boards_created_at ON boards(created_at)`,
		`CREATE INDEX idx_boards_updated_at ON boards(updated_at)`,
		// board ids are case-sensitive everywhere else
		`ALTER TABLE boards MODIFY board_id VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
	},
	upsert: `INSERT INTO boards (` + boardColumns + `, body) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			description = VALUES(description),
			node_count = VALUES(node_count),
			edge_count = VALUES(edge_count),
			created_at = VALUES(created_at),
			updated_at = VALUES(updated_at),
			body = VALUES(body)`,
	usage: func(ctx context.Context, db *sql.DB) (*domain.Usage, error) {
		var used int64
		err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(data_length + index_length), 0)
			FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name = 'boards'`).Scan(&used)
		if err != nil {
			return nil, fmt.Errorf("table size: %w", err)
		}
		return &domain.Usage{Used: used}, nil
	},
	configure: func(db *sql.DB) {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	},
}

// NewMySQLStore creates a store on a MySQL DSN
// (user:password@tcp(host:port)/dbname?parseTime=true&charset=utf8mb4).
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	return newSQLStore(mysqlDialect, dsn, logger), nil
}
