// Package codegen renders an architecture graph into infrastructure code.
//
// Every dialect registers a Renderer under its name. Single-file dialects
// also implement Generator so they can be called without a graph value.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// ErrUnknownDialect is returned when no renderer is registered under a name.
var ErrUnknownDialect = errors.New("unknown dialect")

// Dialect names.
const (
	DialectCDK            = "cdk"
	DialectCDKNested      = "cdk-nested"
	DialectCloudFormation = "cloudformation"
	DialectTerraform      = "terraform"
	DialectPythonCDK      = "python-cdk"
	DialectFrontend       = "frontend"
)

const (
	infraDir  = "packages/generated/infrastructure"
	pythonDir = "packages/generated/infrastructure-python"
	webDir    = "packages/generated/web"
)

// File is one generated artifact.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Generator renders nodes and edges into a single document.
type Generator interface {
	Generate(nodes []graph.Node, edges []graph.Edge) (string, error)
}

// Renderer turns a whole graph into zero or more files.
type Renderer interface {
	Name() string
	Render(ctx context.Context, g *graph.Graph) ([]File, error)
}

// Registry maps dialect names to renderers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

func NewRegistry(rs ...Renderer) *Registry {
	reg := &Registry{renderers: make(map[string]Renderer, len(rs))}
	for _, r := range rs {
		reg.Register(r)
	}
	return reg
}

// Register adds r, replacing any renderer with the same name.
func (reg *Registry) Register(r Renderer) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.renderers[strings.ToLower(r.Name())] = r
}

// Get looks a renderer up by name.
func (reg *Registry) Get(name string) (Renderer, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.renderers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return r, nil
}

// List returns the registered dialect names, sorted.
func (reg *Registry) List() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.renderers))
	for name := range reg.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of reg with rs registered over it. reg is unchanged.
func (reg *Registry) With(rs ...Renderer) *Registry {
	reg.mu.RLock()
	out := &Registry{renderers: make(map[string]Renderer, len(reg.renderers)+len(rs))}
	for name, r := range reg.renderers {
		out.renderers[name] = r
	}
	reg.mu.RUnlock()
	for _, r := range rs {
		out.Register(r)
	}
	return out
}

var defaultRegistry = NewRegistry(
	CDK{},
	NestedCDK{},
	CloudFormation{},
	Terraform{},
	PythonCDK{},
	Frontend{},
)

// Default is the registry holding every built-in dialect.
func Default() *Registry { return defaultRegistry }

func Register(r Renderer) { defaultRegistry.Register(r) }

func Get(name string) (Renderer, error) { return defaultRegistry.Get(name) }

func List() []string { return defaultRegistry.List() }

// single adapts a Generator into a one-file Renderer.
func single(gen Generator, path string, g *graph.Graph) ([]File, error) {
	if g == nil {
		g = graph.New()
	}
	content, err := gen.Generate(g.Nodes, g.Edges)
	if err != nil {
		return nil, err
	}
	return []File{{Path: path, Content: content}}, nil
}
