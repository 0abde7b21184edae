package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"flowboard/internal/domain"
)

const boardColumns = `board_id, name, description, node_count, edge_count, created_at, updated_at`

// dialect captures what differs between the SQL backends.
type dialect struct {
	driverName string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered   bool
	migrations []string
	upsert     string
	usage      func(ctx context.Context, db *sql.DB) (*domain.Usage, error)
	// configure runs once after the pool is opened.
	configure func(db *sql.DB)
}

// bind rewrites ? placeholders for dialects that number them.
func (d *dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements domain.DocumentStore on database/sql. One table,
// `boards`, holds the summary columns and the JSON body.
type SQLStore struct {
	dialect *dialect
	dsn     string
	logger  *zap.Logger

	mu   sync.Mutex
	conn *sql.DB
}

func newSQLStore(d *dialect, dsn string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{dialect: d, dsn: dsn, logger: logger.With(zap.String("store", d.driverName))}
}

// Init opens the pool, verifies it and applies pending migrations.
// Calling it again is a no-op.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db(ctx)
	return err
}

func (s *SQLStore) db(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	conn, err := sql.Open(s.dialect.driverName, s.dsn)
	if err != nil {
		return nil, domain.Unavailable("open "+s.dialect.driverName, err)
	}
	if s.dialect.configure != nil {
		s.dialect.configure(conn)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, domain.Unavailable("ping "+s.dialect.driverName, err)
	}
	if err := s.migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, domain.Unavailable("migrate "+s.dialect.driverName, err)
	}

	s.conn = conn
	return conn, nil
}

func (s *SQLStore) migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at VARCHAR(32) NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, m := range s.dialect.migrations {
		version := i + 1
		if version <= current {
			continue
		}
		if _, err := conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
		if _, err := conn.ExecContext(ctx,
			s.dialect.bind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
			version, domain.FormatTimestamp(time.Now()),
		); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		s.logger.Info("applied migration", zap.Int("version", version))
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, doc *domain.Document) error {
	conn, err := s.db(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, s.dialect.bind(s.dialect.upsert),
		doc.BoardID, doc.Name, doc.Description, doc.NodeCount, doc.EdgeCount,
		doc.CreatedAt, doc.UpdatedAt, string(doc.Body),
	)
	if err != nil {
		return domain.TxFailed("put board "+doc.BoardID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	conn, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	row := conn.QueryRowContext(ctx,
		s.dialect.bind(`SELECT `+boardColumns+`, body FROM boards WHERE board_id = ?`), id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.TxFailed("get board "+id, err)
	}
	return doc, nil
}

func (s *SQLStore) GetAll(ctx context.Context) ([]domain.Document, error) {
	conn, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+boardColumns+`, body FROM boards ORDER BY updated_at DESC`)
	if err != nil {
		return nil, domain.TxFailed("list boards", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, domain.TxFailed("list boards", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.TxFailed("list boards", err)
	}
	return docs, nil
}

func (s *SQLStore) Summaries(ctx context.Context) ([]domain.BoardListItem, error) {
	conn, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY updated_at DESC`)
	if err != nil {
		return nil, domain.TxFailed("list board summaries", err)
	}
	defer rows.Close()

	var items []domain.BoardListItem
	for rows.Next() {
		var it domain.BoardListItem
		if err := rows.Scan(&it.BoardID, &it.Name, &it.Description, &it.NodeCount, &it.EdgeCount, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, domain.TxFailed("list board summaries", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.TxFailed("list board summaries", err)
	}
	return items, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	conn, err := s.db(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, s.dialect.bind(`DELETE FROM boards WHERE board_id = ?`), id); err != nil {
		return domain.TxFailed("delete board "+id, err)
	}
	return nil
}

func (s *SQLStore) EstimateUsage(ctx context.Context) (*domain.Usage, error) {
	if s.dialect.usage == nil {
		return nil, nil
	}
	conn, err := s.db(ctx)
	if err != nil {
		s.logger.Warn("usage estimate unavailable", zap.Error(err))
		return nil, nil
	}
	u, err := s.dialect.usage(ctx, conn)
	if err != nil {
		s.logger.Warn("usage estimate failed", zap.Error(err))
		return nil, nil
	}
	return u, nil
}

// Close releases the pool. The store may be re-initialized afterwards.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		d    domain.Document
		body string
	)
	if err := row.Scan(&d.BoardID, &d.Name, &d.Description, &d.NodeCount, &d.EdgeCount, &d.CreatedAt, &d.UpdatedAt, &body); err != nil {
		return nil, err
	}
	d.Body = []byte(body)
	return &d, nil
}
