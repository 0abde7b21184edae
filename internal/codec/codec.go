// Package codec canonicalizes in-memory graphs into the versioned export
// schema and renders it as pretty-printed JSON.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"flowboard/internal/domain"
)

// DefaultExportedBy is written into metadata.exportedBy unless overridden.
const DefaultExportedBy = "flowboard"

type Option func(*Codec)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithExportedBy sets metadata.exportedBy.
func WithExportedBy(name string) Option {
	return func(c *Codec) {
		if name != "" {
			c.exportedBy = name
		}
	}
}

// Codec is stateless apart from its clock and producer name.
type Codec struct {
	now        func() time.Time
	exportedBy string
}

func New(opts ...Option) *Codec {
	c := &Codec{now: time.Now, exportedBy: DefaultExportedBy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Canonicalize builds the export document for nodes and edges. Output other
// than Timestamp depends only on the input. Slices are copied; nil becomes empty.
func (c *Codec) Canonicalize(nodes []domain.Node, edges []domain.Edge) domain.ExportDocument {
	n := make([]domain.Node, len(nodes))
	copy(n, nodes)
	e := make([]domain.Edge, len(edges))
	copy(e, edges)

	return domain.ExportDocument{
		Version:   domain.SchemaVersion,
		Timestamp: domain.FormatTimestamp(c.now()),
		Nodes:     n,
		Edges:     e,
		Metadata: domain.Metadata{
			NodeCount:  len(n),
			EdgeCount:  len(e),
			ExportedBy: c.exportedBy,
		},
	}
}

// Encode renders doc as two-space indented JSON in canonical key order.
func Encode(doc domain.ExportDocument) ([]byte, error) {
	if doc.Nodes == nil {
		doc.Nodes = []domain.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []domain.Edge{}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export document: %w", err)
	}
	return out, nil
}

// EncodeBoard renders the persisted form of a board.
func EncodeBoard(b *domain.Board) ([]byte, error) {
	out, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode board %s: %w", b.BoardID, err)
	}
	return out, nil
}
