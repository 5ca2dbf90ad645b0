// Package blueprint serves the catalog of ready-made architectures.
package blueprint

import (
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jfowler-cloud/scaffold-ai/internal/config"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// ErrNotFound is returned by Get for an unknown blueprint id.
var ErrNotFound = errors.New("blueprint not found")

type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	NodeCount   int    `json:"nodeCount"`
}

// Blueprint is a catalog entry with positioned nodes and derived edge ids.
type Blueprint struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Graph       *graph.Graph `json:"graph"`
}

type entry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Nodes       []struct {
		ID    string             `yaml:"id"`
		Type  graph.ResourceType `yaml:"type"`
		Label string             `yaml:"label"`
	} `yaml:"nodes"`
	Edges []struct {
		Source string `yaml:"source"`
		Target string `yaml:"target"`
		Label  string `yaml:"label"`
	} `yaml:"edges"`
}

// Catalog holds the parsed blueprint file in declaration order.
type Catalog struct {
	entries []entry
}

// Parse reads a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Blueprints []entry `yaml:"blueprints"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse blueprints: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Blueprints))
	for _, e := range doc.Blueprints {
		if e.ID == "" {
			return nil, fmt.Errorf("blueprint %q has no id", e.Name)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("duplicate blueprint id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return &Catalog{entries: doc.Blueprints}, nil
}

// Load reads the catalog from path, ./config/blueprints.yaml or the
// embedded default.
func Load(path string) (*Catalog, error) {
	data, err := config.ReadFile(path, "blueprints.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprints: %w", err)
	}
	return Parse(data)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load("")
	})
	return defaultCatalog, defaultErr
}

func (c *Catalog) List() []Summary {
	out := make([]Summary, len(c.entries))
	for i, e := range c.entries {
		out[i] = Summary{ID: e.ID, Name: e.Name, Description: e.Description, NodeCount: len(e.Nodes)}
	}
	return out
}

// Get builds a fresh graph for the blueprint. Callers may modify the result.
func (c *Catalog) Get(id string) (*Blueprint, error) {
	for _, e := range c.entries {
		if e.ID != id {
			continue
		}
		nodes := make([]graph.Node, len(e.Nodes))
		for i, n := range e.Nodes {
			nodes[i] = graph.Node{ID: n.ID, Type: n.Type, Label: n.Label}
		}
		g := graph.New()
		g.Nodes = graph.AssignPositions(nodes, nil)
		for _, ed := range e.Edges {
			g.AddEdge(ed.Source, ed.Target, ed.Label)
		}
		return &Blueprint{Name: e.Name, Description: e.Description, Graph: g}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
}
