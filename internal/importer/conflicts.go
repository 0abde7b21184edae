package importer

import (
	"fmt"
	"time"

	"flowboard/internal/domain"
)

// Resolver renames imported nodes whose ids collide with a target graph.
// The clock only feeds the rename suffix.
type Resolver struct {
	now func() time.Time
}

func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// ResolveIDConflicts returns imported with every id unique among the result
// and absent from existing. Colliding ids become "<id>_imported_<unixMillis>",
// then "<id>_imported_<unixMillis>_<n>" until free.
func (r *Resolver) ResolveIDConflicts(imported []domain.Node, existing map[string]domain.Node) []domain.Node {
	nodes, _ := r.resolve(imported, existing)
	return nodes
}

// Merge resolves node ids and rewrites the document's edges to follow renamed
// nodes, returning the graph ready to be added to the target.
func (r *Resolver) Merge(doc *domain.ExportDocument, existing map[string]domain.Node) domain.Graph {
	nodes, renames := r.resolve(doc.Nodes, existing)
	return domain.Graph{Nodes: nodes, Edges: RemapEdges(doc.Edges, renames)}
}

// resolve also reports, per original id, the id its first occurrence in the
// batch ended up with, when that differs.
func (r *Resolver) resolve(imported []domain.Node, existing map[string]domain.Node) ([]domain.Node, map[string]string) {
	inUse := make(map[string]struct{}, len(existing)+len(imported))
	for id := range existing {
		inUse[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(imported))
	renames := make(map[string]string)
	stamp := r.now().UnixMilli()

	out := make([]domain.Node, 0, len(imported))
	for _, node := range imported {
		original := node.ID
		if _, taken := inUse[node.ID]; taken {
			candidate := fmt.Sprintf("%s_imported_%d", node.ID, stamp)
			for counter := 1; ; counter++ {
				if _, taken := inUse[candidate]; !taken {
					break
				}
				candidate = fmt.Sprintf("%s_imported_%d_%d", node.ID, stamp, counter)
			}
			node.ID = candidate
			if _, dup := seen[original]; !dup {
				renames[original] = candidate
			}
		}
		seen[original] = struct{}{}
		inUse[node.ID] = struct{}{}
		out = append(out, node)
	}
	return out, renames
}

// RemapEdges returns a copy of edges with endpoints rewritten through renames.
func RemapEdges(edges []domain.Edge, renames map[string]string) []domain.Edge {
	out := make([]domain.Edge, len(edges))
	for i, e := range edges {
		if id, ok := renames[e.Source]; ok {
			e.Source = id
		}
		if id, ok := renames[e.Target]; ok {
			e.Target = id
		}
		out[i] = e
	}
	return out
}
