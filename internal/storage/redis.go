package storage

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flowboard/internal/domain"
)

// BoardKey returns the hash key holding one board.
// Pattern: flowboard:{namespace}:board:{id}
func BoardKey(namespace, id string) string {
	return fmt.Sprintf("flowboard:%s:board:%s", namespace, id)
}

// BoardIndexKey returns the set of all board ids in a namespace.
// Pattern: flowboard:{namespace}:boards
func BoardIndexKey(namespace string) string {
	return fmt.Sprintf("flowboard:%s:boards", namespace)
}

// RedisStore keeps each board as a hash plus an id index set. All keys are
// scoped to a namespace so several workspaces can share one server.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewRedisStore returns an error if namespace is empty.
func NewRedisStore(opts *redis.Options, namespace string, logger *zap.Logger) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("redis namespace cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		rdb:       redis.NewClient(opts),
		namespace: namespace,
		logger:    logger.With(zap.String("store", "redis"), zap.String("namespace", namespace)),
	}, nil
}

func (r *RedisStore) Init(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return domain.Unavailable("ping redis", err)
	}
	return nil
}

func (r *RedisStore) Put(ctx context.Context, doc *domain.Document) error {
	key := BoardKey(r.namespace, doc.BoardID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, documentToHash(doc))
		pipe.SAdd(ctx, BoardIndexKey(r.namespace), doc.BoardID)
		return nil
	})
	if err != nil {
		return domain.TxFailed("put board "+doc.BoardID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	hash, err := r.rdb.HGetAll(ctx, BoardKey(r.namespace, id)).Result()
	if err != nil {
		return nil, domain.TxFailed("get board "+id, err)
	}
	// HGetAll returns an empty map for missing keys
	if len(hash) == 0 {
		return nil, nil
	}
	doc, err := hashToDocument(hash)
	if err != nil {
		return nil, domain.TxFailed("get board "+id, err)
	}
	return doc, nil
}

func (r *RedisStore) GetAll(ctx context.Context) ([]domain.Document, error) {
	ids, err := r.rdb.SMembers(ctx, BoardIndexKey(r.namespace)).Result()
	if err != nil {
		return nil, domain.TxFailed("list boards", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, BoardKey(r.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, domain.TxFailed("list boards", err)
	}

	docs := make([]domain.Document, 0, len(ids))
	for i, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			// index entry without a hash; skip it rather than fail the listing
			r.logger.Warn("dangling board index entry", zap.String("board_id", ids[i]))
			continue
		}
		doc, err := hashToDocument(hash)
		if err != nil {
			return nil, domain.TxFailed("list boards", err)
		}
		docs = append(docs, *doc)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UpdatedAt > docs[j].UpdatedAt })
	return docs, nil
}

func (r *RedisStore) Summaries(ctx context.Context) ([]domain.BoardListItem, error) {
	docs, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]domain.BoardListItem, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].Summary())
	}
	return items, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BoardKey(r.namespace, id))
		pipe.SRem(ctx, BoardIndexKey(r.namespace), id)
		return nil
	})
	if err != nil {
		return domain.TxFailed("delete board "+id, err)
	}
	return nil
}

// EstimateUsage reads used_memory and maxmemory from INFO memory. The
// figures are server wide, not per namespace.
func (r *RedisStore) EstimateUsage(ctx context.Context) (*domain.Usage, error) {
	info, err := r.rdb.Info(ctx, "memory").Result()
	if err != nil {
		r.logger.Warn("usage estimate failed", zap.Error(err))
		return nil, nil
	}
	fields := parseInfo(info)
	used, ok := fields["used_memory"]
	if !ok {
		return nil, nil
	}
	return &domain.Usage{Used: used, Quota: fields["maxmemory"]}, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func parseInfo(info string) map[string]int64 {
	out := make(map[string]int64)
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[k] = n
		}
	}
	return out
}

func documentToHash(d *domain.Document) map[string]any {
	return map[string]any{
		"boardId":     d.BoardID,
		"name":        d.Name,
		"description": d.Description,
		"nodeCount":   d.NodeCount,
		"edgeCount":   d.EdgeCount,
		"createdAt":   d.CreatedAt,
		"updatedAt":   d.UpdatedAt,
		"body":        string(d.Body),
	}
}

func hashToDocument(h map[string]string) (*domain.Document, error) {
	nodeCount, err := strconv.Atoi(h["nodeCount"])
	if err != nil {
		return nil, fmt.Errorf("invalid nodeCount %q: %w", h["nodeCount"], err)
	}
	edgeCount, err := strconv.Atoi(h["edgeCount"])
	if err != nil {
		return nil, fmt.Errorf("invalid edgeCount %q: %w", h["edgeCount"], err)
	}
	return &domain.Document{
		BoardID:     h["boardId"],
		Name:        h["name"],
		Description: h["description"],
		NodeCount:   nodeCount,
		EdgeCount:   edgeCount,
		CreatedAt:   h["createdAt"],
		UpdatedAt:   h["updatedAt"],
		Body:        []byte(h["body"]),
	}, nil
}
