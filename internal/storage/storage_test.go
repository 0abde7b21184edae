package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flowboard/internal/config"
	"flowboard/internal/domain"
)

func sampleDoc(id, updatedAt string) *domain.Document {
	return &domain.Document{
		BoardID:     id,
		Name:        "Board " + id,
		Description: "about " + id,
		NodeCount:   2,
		EdgeCount:   1,
		CreatedAt:   "2025-01-01T00:00:00.000Z",
		UpdatedAt:   updatedAt,
		Body:        []byte(fmt.Sprintf(`{"boardId":%q,"nodes":[],"edges":[]}`, id)),
	}
}

func newSQLiteTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "boards.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// exerciseStore runs the DocumentStore contract against any backend.
func exerciseStore(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	got, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got, "absent board is nil, nil")

	require.NoError(t, s.Put(ctx, sampleDoc("a", "2025-01-02T00:00:00.000Z")))
	require.NoError(t, s.Put(ctx, sampleDoc("b", "2025-01-03T00:00:00.000Z")))

	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleDoc("a", "2025-01-02T00:00:00.000Z"), got)

	// Put replaces
	updated := sampleDoc("a", "2025-01-04T00:00:00.000Z")
	updated.Name = "Renamed"
	require.NoError(t, s.Put(ctx, updated))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].BoardID, "most recently updated first")

	sums, err := s.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, domain.BoardListItem{
		BoardID: "a", Name: "Renamed", Description: "about a", NodeCount: 2, EdgeCount: 1,
		CreatedAt: "2025-01-01T00:00:00.000Z", UpdatedAt: "2025-01-04T00:00:00.000Z",
	}, sums[0])

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"), "delete is idempotent")
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err = s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// ids differing only in case are distinct boards
	require.NoError(t, s.Put(ctx, sampleDoc("B", "2025-01-05T00:00:00.000Z")))
	got, err = s.Get(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Board b", got.Name)
	require.NoError(t, s.Delete(ctx, "B"))
	got, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.NotNil(t, got, "deleting B leaves b alone")
}

func TestSQLiteStore_Contract(t *testing.T) {
	exerciseStore(t, newSQLiteTestStore(t))
}

func TestRedisStore_Contract(t *testing.T) {
	s, _ := newRedisTestStore(t)
	exerciseStore(t, s)
}

func TestSQLiteStore_InitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Put(ctx, sampleDoc("kept", "2025-01-02T00:00:00.000Z")))
	require.NoError(t, s.Close())

	// reopening runs no migration twice and keeps data
	s2, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s2.Init(ctx))
	defer s2.Close()

	got, err := s2.Get(ctx, "kept")
	require.NoError(t, err)
	require.NotNil(t, got)

	var version int
	conn, err := s2.db(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, len(sqliteDialect.migrations), version)
}

func TestSQLiteStore_EstimateUsage(t *testing.T) {
	s := newSQLiteTestStore(t)
	u, err := s.EstimateUsage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Positive(t, u.Used)
	assert.GreaterOrEqual(t, u.Quota, u.Used)
}

func TestRedisStore_Keys(t *testing.T) {
	s, mr := newRedisTestStore(t)
	require.NoError(t, s.Put(context.Background(), sampleDoc("x", "2025-01-02T00:00:00.000Z")))

	assert.True(t, mr.Exists("flowboard:test:board:x"))
	members, err := mr.Members("flowboard:test:boards")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, members)
}

func TestRedisStore_SkipsDanglingIndexEntries(t *testing.T) {
	s, mr := newRedisTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleDoc("x", "2025-01-02T00:00:00.000Z")))
	_, err := mr.SAdd(BoardIndexKey("test"), "ghost")
	require.NoError(t, err)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "x", all[0].BoardID)
}

func TestRedisStore_UnavailableOnInit(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	s, err := NewRedisStore(&redis.Options{Addr: addr, MaxRetries: -1}, "test", nil)
	require.NoError(t, err)
	defer s.Close()

	err = s.Init(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
}

func TestNewRedisStore_EmptyNamespace(t *testing.T) {
	_, err := NewRedisStore(&redis.Options{Addr: "localhost:6379"}, "", nil)
	assert.Error(t, err)
}

func TestPostgresBind(t *testing.T) {
	assert.Equal(t,
		"DELETE FROM boards WHERE board_id = $1 AND name = $2",
		postgresDialect.bind("DELETE FROM boards WHERE board_id = ? AND name = ?"))
	assert.Equal(t, "SELECT ?", mysqlDialect.bind("SELECT ?"))
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StorageConfig{Driver: domain.StoreDriverSQLite, Path: filepath.Join(t.TempDir(), "b.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)

	s, err = Open(config.StorageConfig{Driver: domain.StoreDriverRedis, DSN: "localhost:6379", Namespace: "n"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	s, err = Open(config.StorageConfig{Driver: domain.StoreDriverMongoDB, DSN: "mongodb://localhost:27017"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MongoStore{}, s)

	_, err = Open(config.StorageConfig{Driver: domain.StoreDriverMySQL}, nil)
	assert.Error(t, err, "mysql needs a dsn")

	_, err = Open(config.StorageConfig{Driver: "cassandra"}, nil)
	assert.Error(t, err)
}
