package codec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowboard/internal/codec"
	"flowboard/internal/domain"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func sampleNodes() []domain.Node {
	return []domain.Node{
		{ID: "n1", Type: "text", Position: domain.Position{X: 0, Y: 0}, Size: domain.Size{Width: 100, Height: 50}, Data: map[string]any{}},
		{ID: "n2", Type: "code", Position: domain.Position{X: 10, Y: 20}, Size: domain.Size{Width: 300, Height: 200}, Data: map[string]any{"lang": "go"}},
	}
}

func TestCanonicalize_Metadata(t *testing.T) {
	c := codec.New(codec.WithClock(fixedClock(time.Date(2025, 1, 2, 3, 4, 5, 6e6, time.UTC))))
	edges := []domain.Edge{{ID: "e1", Source: "n1", Target: "n2"}}

	doc := c.Canonicalize(sampleNodes(), edges)

	assert.Equal(t, "1.0.0", doc.Version)
	assert.Equal(t, "2025-01-02T03:04:05.006Z", doc.Timestamp)
	assert.Equal(t, domain.Metadata{NodeCount: 2, EdgeCount: 1, ExportedBy: codec.DefaultExportedBy}, doc.Metadata)
	assert.Equal(t, sampleNodes(), doc.Nodes)
	assert.Equal(t, edges, doc.Edges)
}

func TestCanonicalize_DeterministicApartFromTimestamp(t *testing.T) {
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := codec.New(codec.WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}), codec.WithExportedBy("tests"))

	a := c.Canonicalize(sampleNodes(), nil)
	b := c.Canonicalize(sampleNodes(), nil)

	assert.NotEqual(t, a.Timestamp, b.Timestamp)
	assert.Equal(t, a.Nodes, b.Nodes)
	assert.Equal(t, a.Edges, b.Edges)
	assert.Equal(t, a.Metadata, b.Metadata)
	assert.Equal(t, "tests", a.Metadata.ExportedBy)
	assert.NotNil(t, a.Edges)
	assert.Empty(t, a.Edges)
}

func TestCanonicalize_CopiesInput(t *testing.T) {
	nodes := sampleNodes()
	doc := codec.New().Canonicalize(nodes, nil)
	nodes[0].ID = "changed"
	assert.Equal(t, "n1", doc.Nodes[0].ID)
}

func TestEncode_CanonicalKeyOrder(t *testing.T) {
	c := codec.New(codec.WithClock(fixedClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))))
	out, err := codec.Encode(c.Canonicalize(sampleNodes()[:1], nil))
	require.NoError(t, err)

	text := string(out)
	order := []string{`"version"`, `"timestamp"`, `"nodes"`, `"edges"`, `"metadata"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}
	assert.Contains(t, text, "\n  \"version\": \"1.0.0\"")
	assert.Contains(t, text, `"edges": []`)
}

func TestEncode_NilSlicesBecomeEmptyArrays(t *testing.T) {
	out, err := codec.Encode(domain.ExportDocument{Version: "1.0.0"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"nodes": []`)
	assert.Contains(t, string(out), `"edges": []`)
}
