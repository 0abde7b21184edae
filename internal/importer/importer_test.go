package importer_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowboard/internal/domain"
	"flowboard/internal/importer"
)

const validDoc = `{
  "version": "1.0.0",
  "timestamp": "2025-01-01T00:00:00.000Z",
  "nodes": [
    {"id": "n1", "type": "text", "position": {"x": 0, "y": 0}, "size": {"width": 100, "height": 50}, "data": {}}
  ],
  "edges": [{"id": "e1", "source": "n1", "target": "n1", "sourceHandle": "r"}],
  "metadata": {"nodeCount": 1, "edgeCount": 1, "exportedBy": "Flow-Flat"}
}`

func TestParse_Valid(t *testing.T) {
	doc, err := importer.Parse([]byte(validDoc))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", doc.Version)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "n1", doc.Nodes[0].ID)
	assert.Equal(t, 100.0, doc.Nodes[0].Size.Width)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "r", doc.Edges[0].Extra["sourceHandle"])
	assert.Equal(t, "Flow-Flat", doc.Metadata.ExportedBy)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := importer.Parse([]byte("{not json"))
	require.ErrorIs(t, err, domain.ErrSchema)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestValidate_MissingEdgesIsEmpty(t *testing.T) {
	doc, err := importer.Parse([]byte(`{"version":"1","nodes":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Edges)
	assert.Empty(t, doc.Edges)

	doc, err = importer.Parse([]byte(`{"version":"1","nodes":[],"edges":null}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Edges)
}

func TestValidate_NamesFirstOffendingField(t *testing.T) {
	node := func(body string) string {
		return fmt.Sprintf(`{"version":"1","nodes":[{"id":"ok","type":"t","position":{"x":0,"y":0},"size":{"width":1,"height":1},"data":{}},%s]}`, body)
	}

	cases := []struct {
		name  string
		doc   string
		field string
	}{
		{"not an object", `[]`, ""},
		{"missing version", `{"nodes":[]}`, "version"},
		{"empty version", `{"version":"","nodes":[]}`, "version"},
		{"numeric version", `{"version":1,"nodes":[]}`, "version"},
		{"nodes missing", `{"version":"1"}`, "nodes"},
		{"nodes not array", `{"version":"1","nodes":{}}`, "nodes"},
		{"edges not array", `{"version":"1","nodes":[],"edges":"x"}`, "edges"},
		{"edge not object", `{"version":"1","nodes":[],"edges":[1]}`, "edges[0]"},
		{"node not object", node(`3`), "nodes[1]"},
		{"id empty", node(`{"id":"","type":"t","position":{"x":0,"y":0},"size":{"width":1,"height":1},"data":{}}`), "nodes[1].id"},
		{"id not string", node(`{"id":1,"type":"t","position":{"x":0,"y":0},"size":{"width":1,"height":1},"data":{}}`), "nodes[1].id"},
		{"type missing", node(`{"id":"b","position":{"x":0,"y":0},"size":{"width":1,"height":1},"data":{}}`), "nodes[1].type"},
		{"position missing", node(`{"id":"b","type":"t","size":{"width":1,"height":1},"data":{}}`), "nodes[1].position"},
		{"x not number", node(`{"id":"b","type":"t","position":{"x":"0","y":0},"size":{"width":1,"height":1},"data":{}}`), "nodes[1].position.x"},
		{"height missing", node(`{"id":"b","type":"t","position":{"x":0,"y":0},"size":{"width":1},"data":{}}`), "nodes[1].size.height"},
		{"data null", node(`{"id":"b","type":"t","position":{"x":0,"y":0},"size":{"width":1,"height":1},"data":null}`), "nodes[1].data"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := importer.Parse([]byte(tc.doc))
			require.Error(t, err)
			var se *domain.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.field, se.Field)
		})
	}
}

func TestRequireUniqueIDs(t *testing.T) {
	nodes := []domain.Node{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	err := importer.RequireUniqueIDs(nodes)
	var se *domain.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "nodes[2].id", se.Field)
	assert.Contains(t, se.Reason, `nodes[0].id "a"`)

	assert.NoError(t, importer.RequireUniqueIDs(nodes[:2]))
	assert.NoError(t, importer.RequireUniqueIDs(nil))
}

func TestValidateBoard_RejectsCorruptRecord(t *testing.T) {
	_, err := importer.ValidateBoard([]byte(`{"boardId":"b","version":"","nodes":[]}`))
	require.ErrorIs(t, err, domain.ErrSchema)

	b, err := importer.ValidateBoard([]byte(`{"boardId":"b","name":"x","version":"1.0.0","nodes":[],"edges":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "b", b.BoardID)
}

func clockAt(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestResolveIDConflicts_RenamesCollision(t *testing.T) {
	r := importer.NewResolver(clockAt(1700000000000))
	existing := map[string]domain.Node{"n1": {ID: "n1"}}

	out := r.ResolveIDConflicts([]domain.Node{{ID: "n1", Type: "text"}, {ID: "n2"}}, existing)

	require.Len(t, out, 2)
	assert.Equal(t, "n1_imported_1700000000000", out[0].ID)
	assert.Equal(t, "text", out[0].Type)
	assert.Equal(t, "n2", out[1].ID)
}

func TestResolveIDConflicts_SuffixWhenRenameAlsoCollides(t *testing.T) {
	r := importer.NewResolver(clockAt(5))
	existing := map[string]domain.Node{
		"a":              {ID: "a"},
		"a_imported_5":   {ID: "a_imported_5"},
		"a_imported_5_1": {ID: "a_imported_5_1"},
	}

	out := r.ResolveIDConflicts([]domain.Node{{ID: "a"}, {ID: "a"}}, existing)

	assert.Equal(t, "a_imported_5_2", out[0].ID)
	assert.Equal(t, "a_imported_5_3", out[1].ID)
}

func TestResolveIDConflicts_DuplicatesInsideBatch(t *testing.T) {
	r := importer.NewResolver(clockAt(9))
	out := r.ResolveIDConflicts([]domain.Node{{ID: "x"}, {ID: "x"}, {ID: "x"}}, nil)

	assert.Equal(t, "x", out[0].ID)
	assert.Equal(t, "x_imported_9", out[1].ID)
	assert.Equal(t, "x_imported_9_1", out[2].ID)
}

func TestResolveIDConflicts_PropertyNoCollisions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := importer.NewResolver(clockAt(1))
	pick := func() string {
		ids := []string{"a", "b", "c", "a_imported_1", "b_imported_1_1", "d"}
		return ids[rng.Intn(len(ids))]
	}

	for round := 0; round < 200; round++ {
		existing := map[string]domain.Node{}
		for i := rng.Intn(5); i > 0; i-- {
			id := pick()
			existing[id] = domain.Node{ID: id}
		}
		var imported []domain.Node
		for i := rng.Intn(8); i > 0; i-- {
			imported = append(imported, domain.Node{ID: pick()})
		}

		out := r.ResolveIDConflicts(imported, existing)

		require.Len(t, out, len(imported))
		seen := map[string]bool{}
		for _, n := range out {
			assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
			_, clash := existing[n.ID]
			assert.False(t, clash, "id %s collides with existing", n.ID)
			seen[n.ID] = true
		}
	}
}

func TestMerge_RemapsEdges(t *testing.T) {
	r := importer.NewResolver(clockAt(7))
	doc := &domain.ExportDocument{
		Nodes: []domain.Node{{ID: "a"}, {ID: "b"}},
		Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	g := r.Merge(doc, map[string]domain.Node{"a": {ID: "a"}})

	assert.Equal(t, "a_imported_7", g.Nodes[0].ID)
	assert.Equal(t, "b", g.Nodes[1].ID)
	assert.Equal(t, domain.Edge{ID: "e1", Source: "a_imported_7", Target: "b"}, g.Edges[0])
	assert.Equal(t, "a", doc.Edges[0].Source, "input edges untouched")
}
