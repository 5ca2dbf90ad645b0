package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidEdge is returned when an incoming edge lacks an endpoint.
var ErrInvalidEdge = errors.New("edge must name both source and target")

// MergeNodes appends incoming nodes whose id is not already present.
// Order is existing first, then incoming in input order.
func MergeNodes(existing, incoming []Node) []Node {
	out := make([]Node, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, n := range existing {
		out = append(out, n)
		seen[n.ID] = struct{}{}
	}
	for _, n := range incoming {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

// MergeEdges appends incoming edges keyed by their derived id. The id of
// every incoming edge is recomputed from its endpoints.
func MergeEdges(existing, incoming []Edge) ([]Edge, error) {
	out := make([]Edge, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, e := range existing {
		out = append(out, e)
		seen[EdgeID(e.Source, e.Target)] = struct{}{}
	}
	for _, e := range incoming {
		if e.Source == "" || e.Target == "" {
			return nil, fmt.Errorf("%w: %q -> %q", ErrInvalidEdge, e.Source, e.Target)
		}
		id := EdgeID(e.Source, e.Target)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Edge{ID: id, Source: e.Source, Target: e.Target, Label: e.Label})
	}
	return out, nil
}

// DanglingEdges lists edges whose endpoints are not nodes of g.
func (g *Graph) DanglingEdges() []Edge {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	var out []Edge
	for _, e := range g.Edges {
		_, okSrc := ids[e.Source]
		_, okDst := ids[e.Target]
		if !okSrc || !okDst {
			out = append(out, e)
		}
	}
	return out
}
