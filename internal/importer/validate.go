// Package importer parses and structurally validates externally supplied
// board documents and resolves node-id collisions against a target graph.
package importer

import (
	"encoding/json"
	"fmt"

	"flowboard/internal/domain"
)

// Parse decodes text and validates it. Undecodable input fails with a
// SchemaError whose reason is "invalid format".
func Parse(data []byte) (*domain.ExportDocument, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.SchemaError{Reason: "invalid format"}
	}
	return Validate(raw)
}

// Validate checks a generically decoded document against the export schema
// and converts it. A single malformed node invalidates the whole document.
func Validate(raw any) (*domain.ExportDocument, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &domain.SchemaError{Reason: "document must be an object"}
	}

	version, ok := obj["version"].(string)
	if !ok || version == "" {
		return nil, &domain.SchemaError{Field: "version", Reason: "must be a non-empty string"}
	}

	rawNodes, ok := obj["nodes"].([]any)
	if !ok {
		return nil, &domain.SchemaError{Field: "nodes", Reason: "must be an array"}
	}
	for i, n := range rawNodes {
		if err := checkNode(fmt.Sprintf("nodes[%d]", i), n); err != nil {
			return nil, err
		}
	}

	var rawEdges []any
	if v, present := obj["edges"]; present && v != nil {
		rawEdges, ok = v.([]any)
		if !ok {
			return nil, &domain.SchemaError{Field: "edges", Reason: "must be an array"}
		}
		for i, e := range rawEdges {
			if err := checkEdge(fmt.Sprintf("edges[%d]", i), e); err != nil {
				return nil, err
			}
		}
	}

	doc := &domain.ExportDocument{Version: version}
	if ts, ok := obj["timestamp"].(string); ok {
		doc.Timestamp = ts
	}
	if err := convert(rawNodes, &doc.Nodes); err != nil {
		return nil, &domain.SchemaError{Field: "nodes", Reason: err.Error()}
	}
	doc.Edges = []domain.Edge{}
	if len(rawEdges) > 0 {
		if err := convert(rawEdges, &doc.Edges); err != nil {
			return nil, &domain.SchemaError{Field: "edges", Reason: err.Error()}
		}
	}
	// metadata is informational; it is recomputed on save
	if m, ok := obj["metadata"].(map[string]any); ok {
		_ = convert(m, &doc.Metadata)
	}
	return doc, nil
}

// RequireUniqueIDs fails with a SchemaError naming the first node whose id
// repeats an earlier one. Documents imported as a board of their own must
// pass it; merges resolve duplicates instead.
func RequireUniqueIDs(nodes []domain.Node) error {
	seen := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if first, dup := seen[n.ID]; dup {
			return &domain.SchemaError{
				Field:  fmt.Sprintf("nodes[%d].id", i),
				Reason: fmt.Sprintf("duplicates nodes[%d].id %q", first, n.ID),
			}
		}
		seen[n.ID] = i
	}
	return nil
}

// ValidateBoard re-checks a stored board body against the export schema.
func ValidateBoard(body []byte) (*domain.Board, error) {
	if _, err := Parse(body); err != nil {
		return nil, err
	}
	var b domain.Board
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, &domain.SchemaError{Reason: "invalid format"}
	}
	return &b, nil
}

func checkNode(path string, v any) error {
	node, ok := v.(map[string]any)
	if !ok {
		return &domain.SchemaError{Field: path, Reason: "must be an object"}
	}
	if id, ok := node["id"].(string); !ok || id == "" {
		return &domain.SchemaError{Field: path + ".id", Reason: "must be a non-empty string"}
	}
	if _, ok := node["type"].(string); !ok {
		return &domain.SchemaError{Field: path + ".type", Reason: "must be a string"}
	}
	if err := checkNumbers(path+".position", node["position"], "x", "y"); err != nil {
		return err
	}
	if err := checkNumbers(path+".size", node["size"], "width", "height"); err != nil {
		return err
	}
	if _, ok := node["data"].(map[string]any); !ok {
		return &domain.SchemaError{Field: path + ".data", Reason: "must be an object"}
	}
	return nil
}

func checkNumbers(path string, v any, keys ...string) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return &domain.SchemaError{Field: path, Reason: "must be an object"}
	}
	for _, k := range keys {
		if _, ok := obj[k].(float64); !ok {
			return &domain.SchemaError{Field: path + "." + k, Reason: "must be a number"}
		}
	}
	return nil
}

func checkEdge(path string, v any) error {
	edge, ok := v.(map[string]any)
	if !ok {
		return &domain.SchemaError{Field: path, Reason: "must be an object"}
	}
	for _, k := range []string{"id", "source", "target"} {
		if val, present := edge[k]; present {
			if _, ok := val.(string); !ok {
				return &domain.SchemaError{Field: path + "." + k, Reason: "must be a string"}
			}
		}
	}
	return nil
}

func convert(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
