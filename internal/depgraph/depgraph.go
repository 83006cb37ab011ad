// Package depgraph builds a directed predicate dependency graph from an
// enriched program model. Each vertex is a predicate signature; an edge
// A -> B means some statement defining A depends on B.
package depgraph

import (
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/lplens/lplens/internal/enrich"
)

// Predicate is a graph vertex: one predicate signature with the
// documentation attached to any of its occurrences.
type Predicate struct {
	Signature   string `json:"signature"`
	Description string `json:"description,omitempty"`
}

// Graph is a read-only dependency graph over one model. Queries use
// reverse indexes for O(1) neighbor lookups; the underlying graph is
// kept for export.
type Graph struct {
	g graph.Graph[string, *Predicate]

	// Reverse indexes for O(1) lookups
	dependencies map[string][]string // signature -> [what it depends on]
	dependents   map[string][]string // signature -> [what depends on it]

	signatures []string
}

// Build constructs the graph from a model. External statements are
// included: an included file's rules contribute edges the same way
// local ones do.
func Build(m *enrich.Model) (*Graph, error) {
	dg := &Graph{
		g:            graph.New(func(p *Predicate) string { return p.Signature }, graph.Directed()),
		dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
	}

	addVertex := func(sym *enrich.Symbol) error {
		sig := sym.Signature()
		vertex := &Predicate{Signature: sig}
		if sym.Directive != nil {
			vertex.Description = sym.Directive.Description()
		}
		err := dg.g.AddVertex(vertex)
		if err != nil && err != graph.ErrVertexAlreadyExists {
			return fmt.Errorf("failed to add vertex %s: %w", sig, err)
		}
		if err == nil {
			dg.signatures = append(dg.signatures, sig)
		}
		// A later occurrence may carry the directive the first one lacked.
		if err == graph.ErrVertexAlreadyExists && vertex.Description != "" {
			if existing, verr := dg.g.Vertex(sig); verr == nil && existing.Description == "" {
				existing.Description = vertex.Description
			}
		}
		return nil
	}

	seenEdges := make(map[[2]string]bool)
	for _, stmt := range m.StatementsByKind("", true) {
		for _, sym := range stmt.Defines {
			if err := addVertex(sym); err != nil {
				return nil, err
			}
		}
		for _, sym := range stmt.Dependencies {
			if err := addVertex(sym); err != nil {
				return nil, err
			}
		}
		for _, def := range stmt.Defines {
			for _, dep := range stmt.Dependencies {
				key := [2]string{def.Signature(), dep.Signature()}
				if seenEdges[key] {
					continue
				}
				seenEdges[key] = true
				if err := dg.g.AddEdge(key[0], key[1]); err != nil && err != graph.ErrEdgeAlreadyExists {
					return nil, fmt.Errorf("failed to add edge %s -> %s: %w", key[0], key[1], err)
				}
				dg.dependencies[key[0]] = append(dg.dependencies[key[0]], key[1])
				dg.dependents[key[1]] = append(dg.dependents[key[1]], key[0])
			}
		}
	}

	sort.Strings(dg.signatures)
	return dg, nil
}

// Signatures returns every vertex signature in sorted order.
func (dg *Graph) Signatures() []string {
	out := make([]string, len(dg.signatures))
	copy(out, dg.signatures)
	return out
}

// Vertex returns the predicate for a signature.
func (dg *Graph) Vertex(signature string) (*Predicate, error) {
	p, err := dg.g.Vertex(signature)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", signature, err)
	}
	return p, nil
}

// Dependencies returns the signatures the given predicate depends on,
// up to the given traversal depth. Depth 1 is the direct neighbors.
func (dg *Graph) Dependencies(signature string, depth int) []string {
	return dg.traverse(signature, depth, dg.dependencies)
}

// Dependents returns the signatures that depend on the given predicate,
// up to the given traversal depth.
func (dg *Graph) Dependents(signature string, depth int) []string {
	return dg.traverse(signature, depth, dg.dependents)
}

func (dg *Graph) traverse(start string, depth int, index map[string][]string) []string {
	if depth <= 0 {
		depth = 1
	}

	var results []string
	visited := map[string]bool{start: true}

	frontier := []string{start}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range index[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				results = append(results, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	sort.Strings(results)
	return results
}

// DOT writes the graph in Graphviz DOT format.
func (dg *Graph) DOT(w io.Writer) error {
	if err := draw.DOT(dg.g, w); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}
