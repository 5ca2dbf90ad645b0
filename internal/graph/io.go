package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a graph document. Missing collections decode as empty.
func Decode(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = make([]Node, 0)
	}
	if g.Edges == nil {
		g.Edges = make([]Edge, 0)
	}
	for i, e := range g.Edges {
		if e.ID == "" {
			g.Edges[i].ID = EdgeID(e.Source, e.Target)
		}
	}
	return &g, nil
}

func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

func (g *Graph) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

func (g *Graph) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.Encode(f)
}
