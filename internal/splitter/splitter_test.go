package splitter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

func nodes(n int) []graph.Node {
	out := make([]graph.Node, n)
	for i := range out {
		out[i] = graph.Node{ID: fmt.Sprintf("fn-%d", i), Type: graph.TypeLambda}
	}
	return out
}

func TestShouldSplit(t *testing.T) {
	assert.False(t, ShouldSplit(nil))
	assert.False(t, ShouldSplit(nodes(15)))
	assert.True(t, ShouldSplit(nodes(16)))
}

func TestSplitByLayer(t *testing.T) {
	ns := []graph.Node{
		{ID: "vpc-1", Type: graph.TypeVPC},
		{ID: "api-1", Type: graph.TypeAPI},
		{ID: "fn-1", Type: graph.TypeLambda},
		{ID: "db-1", Type: graph.TypeDatabase},
		{ID: "mystery", Type: "mainframe"},
	}
	es := []graph.Edge{
		graph.NewEdge("api-1", "fn-1", ""),
		graph.NewEdge("fn-1", "db-1", ""),
		graph.NewEdge("fn-1", "mystery", ""),
	}

	layers := SplitByLayer(ns, es)
	assert.Equal(t, []string{LayerNetwork, LayerData, LayerCompute, LayerFrontend}, layers.Names())

	compute, ok := layers.Get(LayerCompute)
	require.True(t, ok)
	assert.Len(t, compute.Nodes, 2, "unknown types fall into compute")
	// api->fn and fn->db cross layers; fn->mystery is internal and counted once
	assert.Len(t, compute.Edges, 3)

	frontend, _ := layers.Get(LayerFrontend)
	data, _ := layers.Get(LayerData)
	assert.Equal(t, []graph.Edge{es[0]}, frontend.Edges)
	assert.Equal(t, []graph.Edge{es[1]}, data.Edges)

	network, _ := layers.Get(LayerNetwork)
	assert.Empty(t, network.Edges)
}

func TestSplitByLayerOmitsEmptyLayers(t *testing.T) {
	layers := SplitByLayer([]graph.Node{{ID: "b", Type: "s3"}}, nil)
	require.Len(t, layers, 1)
	assert.Equal(t, LayerData, layers[0].Name)

	_, ok := layers.Get(LayerNetwork)
	assert.False(t, ok)
}

func TestEveryNodeInExactlyOneLayer(t *testing.T) {
	ns := append(nodes(10), graph.Node{ID: "web", Type: graph.TypeFrontend}, graph.Node{ID: "cache", Type: graph.TypeCache})
	total := 0
	for _, l := range SplitByLayer(ns, nil) {
		total += len(l.Nodes)
	}
	assert.Equal(t, len(ns), total)
}
