// Package splitter partitions large architectures into per-layer stacks.
package splitter

import "github.com/jfowler-cloud/scaffold-ai/internal/graph"

// Threshold is the node count above which an architecture is split.
const Threshold = 15

const (
	LayerNetwork  = "network"
	LayerData     = "data"
	LayerCompute  = "compute"
	LayerFrontend = "frontend"
)

// layerOrder fixes iteration order; compute is also the fallback layer.
var layerOrder = []string{LayerNetwork, LayerData, LayerCompute, LayerFrontend}

var layerRules = []struct {
	layer string
	types []graph.ResourceType
}{
	{LayerNetwork, []graph.ResourceType{graph.TypeVPC, graph.TypeSubnet, graph.TypeSecurityGroup}},
	{LayerData, []graph.ResourceType{graph.TypeDatabase, graph.TypeStorage, graph.TypeCache}},
	{LayerCompute, []graph.ResourceType{graph.TypeLambda, graph.TypeECS, graph.TypeBatch}},
	{LayerFrontend, []graph.ResourceType{graph.TypeFrontend, graph.TypeCDN, graph.TypeAPI, graph.TypeAuth}},
}

type Layer struct {
	Name  string       `json:"name"`
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// Layers is the ordered result of SplitByLayer.
type Layers []Layer

// Get returns the named layer, if present.
func (ls Layers) Get(name string) (Layer, bool) {
	for _, l := range ls {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

func (ls Layers) Names() []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Name
	}
	return out
}

func ShouldSplit(nodes []graph.Node) bool {
	return len(nodes) > Threshold
}

// LayerOf returns the layer a node belongs to; first matching rule wins.
func LayerOf(n graph.Node) string {
	t := graph.ResolveType(n)
	for _, r := range layerRules {
		for _, want := range r.types {
			if t == want {
				return r.layer
			}
		}
	}
	return LayerCompute
}

// SplitByLayer assigns every node to exactly one layer. An edge is copied
// into each layer that owns one of its endpoints, so cross-layer edges
// appear twice. Layers without nodes are dropped.
func SplitByLayer(nodes []graph.Node, edges []graph.Edge) Layers {
	byName := make(map[string]*Layer, len(layerOrder))
	owner := make(map[string]string, len(nodes))
	for _, name := range layerOrder {
		byName[name] = &Layer{Name: name, Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	}

	for _, n := range nodes {
		layer := LayerOf(n)
		byName[layer].Nodes = append(byName[layer].Nodes, n)
		owner[n.ID] = layer
	}

	for _, e := range edges {
		src, hasSrc := owner[e.Source]
		dst, hasDst := owner[e.Target]
		if hasSrc {
			byName[src].Edges = append(byName[src].Edges, e)
		}
		if hasDst && (!hasSrc || dst != src) {
			byName[dst].Edges = append(byName[dst].Edges, e)
		}
	}

	out := make(Layers, 0, len(layerOrder))
	for _, name := range layerOrder {
		if l := byName[name]; len(l.Nodes) > 0 {
			out = append(out, *l)
		}
	}
	return out
}
