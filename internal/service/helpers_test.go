package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowboard/internal/domain"
	"flowboard/internal/service"
)

// ─────────────────────────────────────────────────────────────
// memStore: in-memory DocumentStore with failure injection
// ─────────────────────────────────────────────────────────────

type memStore struct {
	mu    sync.Mutex
	docs  map[string]domain.Document
	calls int

	putErr error
	getErr error
	// deleteErrAfter fails every Delete once this many have succeeded (-1: never).
	deleteErrAfter int
	deletes        int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]domain.Document), deleteErrAfter: -1}
}

func (m *memStore) Init(context.Context) error { return nil }

func (m *memStore) Put(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.putErr != nil {
		return m.putErr
	}
	d := *doc
	d.Body = append([]byte(nil), doc.Body...)
	m.docs[doc.BoardID] = d
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memStore) GetAll(context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (m *memStore) Summaries(ctx context.Context) ([]domain.BoardListItem, error) {
	docs, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]domain.BoardListItem, len(docs))
	for i := range docs {
		items[i] = docs[i].Summary()
	}
	return items, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.deleteErrAfter >= 0 && m.deletes >= m.deleteErrAfter {
		return domain.TxFailed("delete board "+id, fmt.Errorf("disk full"))
	}
	m.deletes++
	delete(m.docs, id)
	return nil
}

func (m *memStore) EstimateUsage(context.Context) (*domain.Usage, error) {
	return &domain.Usage{Used: 1024, Quota: 4096}, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) putRaw(id string, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = domain.Document{
		BoardID: id, Name: id,
		CreatedAt: "2025-01-01T00:00:00.000Z", UpdatedAt: "2025-01-01T00:00:00.000Z",
		Body: []byte(body),
	}
}

// ─────────────────────────────────────────────────────────────
// clock and fixtures
// ─────────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("board-%d", n), nil
	}
}

type fixture struct {
	svc     *service.BoardService
	store   *memStore
	clock   *fakeClock
	emitter *service.MockEmitter
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), clock: newClock(epoch), emitter: &service.MockEmitter{}}
	base := []service.Option{
		service.WithClock(f.clock.Now),
		service.WithIDGenerator(sequentialIDs()),
		service.WithStatusRevert(time.Hour),
	}
	f.svc = service.NewBoardService(f.store, f.emitter, append(base, opts...)...)
	require.NoError(t, f.svc.Init(context.Background()))
	t.Cleanup(f.svc.Close)
	return f
}

func nodesFromJSON(t *testing.T, text string) []domain.Node {
	t.Helper()
	var nodes []domain.Node
	require.NoError(t, json.Unmarshal([]byte(text), &nodes))
	return nodes
}

func edgesFromJSON(t *testing.T, text string) []domain.Edge {
	t.Helper()
	var edges []domain.Edge
	require.NoError(t, json.Unmarshal([]byte(text), &edges))
	return edges
}

const demoNodes = `[{"id":"n1","type":"text","position":{"x":0,"y":0},"size":{"width":100,"height":50},"data":{}}]`

func demoRequest(t *testing.T) service.SaveRequest {
	return service.SaveRequest{Name: "Demo", Nodes: nodesFromJSON(t, demoNodes), Edges: []domain.Edge{}}
}
