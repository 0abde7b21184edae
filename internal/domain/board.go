package domain

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the version stamped on every canonical export document.
const SchemaVersion = "1.0.0"

// TimestampLayout is the ISO-8601 layout used for every persisted timestamp.
// Fixed millisecond precision keeps lexicographic and chronological order equal.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses any RFC 3339 timestamp, including the fixed-precision
// form written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a positioned, typed element of a board.
// Extra holds top-level keys this package does not model; they are written
// back inline after the known keys.
type Node struct {
	ID       string         `json:"id" validate:"required"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Size     Size           `json:"size"`
	Data     map[string]any `json:"data"`
	Extra    map[string]any `json:"-"`
}

type nodeFields struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Size     Size           `json:"size"`
	Data     map[string]any `json:"data"`
}

var nodeKeys = []string{"id", "type", "position", "size", "data"}

func (n Node) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(nodeFields{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Size:     n.Size,
		Data:     n.Data,
	}, n.Extra)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var f nodeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := unmarshalExtra(data, nodeKeys)
	if err != nil {
		return err
	}
	*n = Node{ID: f.ID, Type: f.Type, Position: f.Position, Size: f.Size, Data: f.Data, Extra: extra}
	return nil
}

// Edge is a directed connection between two node ids. Handle metadata
// (sourceHandle, targetHandle, label, style, ...) lives in Extra.
type Edge struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Extra  map[string]any `json:"-"`
}

type edgeFields struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

var edgeKeys = []string{"id", "source", "target"}

func (e Edge) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(edgeFields{ID: e.ID, Source: e.Source, Target: e.Target}, e.Extra)
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	var f edgeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := unmarshalExtra(data, edgeKeys)
	if err != nil {
		return err
	}
	*e = Edge{ID: f.ID, Source: f.Source, Target: f.Target, Extra: extra}
	return nil
}

type Metadata struct {
	NodeCount  int    `json:"nodeCount"`
	EdgeCount  int    `json:"edgeCount"`
	ExportedBy string `json:"exportedBy"`
}

// ExportDocument is the canonical export schema. Field order is the wire order.
type ExportDocument struct {
	Version   string   `json:"version"`
	Timestamp string   `json:"timestamp"`
	Nodes     []Node   `json:"nodes"`
	Edges     []Edge   `json:"edges"`
	Metadata  Metadata `json:"metadata"`
}

// Board is a persisted node-graph document: the export schema plus identity
// and lifecycle fields.
type Board struct {
	BoardID     string   `json:"boardId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version"`
	Timestamp   string   `json:"timestamp"`
	Nodes       []Node   `json:"nodes"`
	Edges       []Edge   `json:"edges"`
	Metadata    Metadata `json:"metadata"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Export returns the export-schema view of the board.
func (b *Board) Export() ExportDocument {
	return ExportDocument{
		Version:   b.Version,
		Timestamp: b.Timestamp,
		Nodes:     b.Nodes,
		Edges:     b.Edges,
		Metadata:  b.Metadata,
	}
}

// Summary projects the board down to its list item.
func (b *Board) Summary() BoardListItem {
	return BoardListItem{
		BoardID:     b.BoardID,
		Name:        b.Name,
		Description: b.Description,
		NodeCount:   b.Metadata.NodeCount,
		EdgeCount:   b.Metadata.EdgeCount,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// BoardListItem is the summary used for listing without loading payloads.
type BoardListItem struct {
	BoardID     string `json:"boardId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	NodeCount   int    `json:"nodeCount"`
	EdgeCount   int    `json:"edgeCount"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Graph is the nodes/edges pair returned by a load.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
