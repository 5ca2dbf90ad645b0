package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, t ResourceType) Node {
	return Node{ID: id, Type: t, Label: strings.ToUpper(id[:1]) + id[1:]}
}

func TestMergeNodes(t *testing.T) {
	existing := []Node{{ID: "existing-1", Type: TypeLambda, Label: "Existing", Config: map[string]any{"a": 1}}}

	t.Run("keeps existing instance on duplicate id", func(t *testing.T) {
		incoming := []Node{{ID: "existing-1", Type: TypeDatabase, Label: "Replacement"}}
		out := MergeNodes(existing, incoming)
		require.Len(t, out, 1)
		assert.Equal(t, "Existing", out[0].Label)
		assert.Equal(t, 1, out[0].Config["a"])
	})

	t.Run("appends new ids in order", func(t *testing.T) {
		incoming := []Node{node("new-1", TypeAPI), node("new-2", TypeAuth), node("new-1", TypeQueue)}
		out := MergeNodes(existing, incoming)
		require.Len(t, out, 3)
		assert.Equal(t, []string{"existing-1", "new-1", "new-2"}, ids(out))
		assert.Equal(t, TypeAPI, out[1].Type)
	})

	t.Run("empty merges return existing", func(t *testing.T) {
		assert.Equal(t, existing, MergeNodes(existing, nil))
		assert.Empty(t, MergeNodes(nil, nil))
	})

	t.Run("idempotent", func(t *testing.T) {
		delta := []Node{node("a", TypeAPI), node("existing-1", TypeAuth), node("b", TypeLambda)}
		once := MergeNodes(existing, delta)
		twice := MergeNodes(once, delta)
		assert.Equal(t, once, twice)
	})
}

func TestMergeEdges(t *testing.T) {
	existing := []Edge{NewEdge("api-1", "lambda-1", "invokes")}

	out, err := MergeEdges(existing, []Edge{
		{Source: "api-1", Target: "lambda-1", Label: "duplicate"},
		{Source: "lambda-1", Target: "db-1"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "invokes", out[0].Label)
	assert.Equal(t, "e-lambda-1-db-1", out[1].ID)

	_, err = MergeEdges(existing, []Edge{{Source: "api-1"}})
	assert.True(t, errors.Is(err, ErrInvalidEdge))

	again, err := MergeEdges(out, []Edge{{Source: "lambda-1", Target: "db-1"}})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestDanglingEdges(t *testing.T) {
	g := &Graph{
		Nodes: []Node{node("a", TypeAPI)},
		Edges: []Edge{NewEdge("a", "missing", "")},
	}
	require.Len(t, g.DanglingEdges(), 1)
}

func TestAddNodeNoop(t *testing.T) {
	g := New()
	assert.True(t, g.AddNode(Node{ID: "n1", Label: "first"}))
	assert.False(t, g.AddNode(Node{ID: "n1", Label: "second"}))
	n, ok := g.Node("n1")
	require.True(t, ok)
	assert.Equal(t, "first", n.Label)

	assert.True(t, g.AddEdge("n1", "n2", ""))
	assert.False(t, g.AddEdge("n1", "n2", "again"))
}

func TestAssignPositions(t *testing.T) {
	t.Run("lane formula", func(t *testing.T) {
		out := AssignPositions([]Node{node("fe", TypeFrontend), node("db", TypeDatabase), node("x", "mystery")}, nil)
		assert.Equal(t, Position{X: 50, Y: 50}, out[0].Position)
		assert.Equal(t, Position{X: 50 + 6*320, Y: 50}, out[1].Position)
		assert.Equal(t, Position{X: 50 + 2*320, Y: 50}, out[2].Position)
	})

	t.Run("same lane never overlaps", func(t *testing.T) {
		nodes := []Node{node("l1", TypeLambda), node("l2", TypeLambda), node("wf", TypeWorkflow)}
		out := AssignPositions(nodes, nil)
		seen := map[Position]bool{}
		for _, n := range out {
			assert.False(t, seen[n.Position], "overlap at %+v", n.Position)
			seen[n.Position] = true
		}
		assert.Equal(t, out[0].Position.X, out[1].Position.X)
		assert.Equal(t, 450, out[2].Position.Y)
	})

	t.Run("existing nodes offset rows", func(t *testing.T) {
		existing := []Node{{ID: "old", Type: "dynamodb", Position: Position{X: 0, Y: 0}}}
		out := AssignPositions([]Node{node("new", TypeStorage)}, existing)
		assert.Equal(t, 250, out[0].Position.Y)
	})

	t.Run("input untouched", func(t *testing.T) {
		in := []Node{node("a", TypeAPI)}
		_ = AssignPositions(in, nil)
		assert.Equal(t, Position{}, in[0].Position)
	})
}

func TestResolveType(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want ResourceType
	}{
		{"explicit canonical", Node{ID: "x", Type: TypeQueue}, TypeQueue},
		{"legacy synonym", Node{ID: "x", Type: "DynamoDB"}, TypeDatabase},
		{"lambda beats dlq", Node{ID: "dlq-processor-lambda"}, TypeLambda},
		{"plain dlq", Node{ID: "orders-dlq"}, TypeQueue},
		{"worker", Node{ID: "order-worker"}, TypeLambda},
		{"processor beats queue", Node{ID: "n2", Label: "Queue Processor"}, TypeLambda},
		{"label keyword", Node{ID: "n9", Label: "Uploads Bucket"}, TypeStorage},
		{"glue catalog", Node{ID: "glue-catalog"}, TypeCatalog},
		{"kinesis", Node{ID: "clicks", Label: "Kinesis"}, TypeStream},
		{"raw fallback", Node{ID: "n1", Type: "mainframe"}, "mainframe"},
		{"unknown sentinel", Node{ID: "n1"}, TypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveType(tc.node))
		})
	}
}

func TestNodeUnmarshalCanvasShape(t *testing.T) {
	doc := `{"nodes":[{"id":"db-1","type":"database","position":{"x":250,"y":100},
	"data":{"label":"PostgreSQL","type":"database","config":{"encryption":true}}}],
	"edges":[{"source":"db-1","target":"api-1"}]}`

	g, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "PostgreSQL", g.Nodes[0].Label)
	assert.Equal(t, Position{X: 250, Y: 100}, g.Nodes[0].Position)
	assert.True(t, g.Nodes[0].Flag("encryption"))
	assert.Equal(t, "e-db-1-api-1", g.Edges[0].ID)
}

func TestFlag(t *testing.T) {
	n := Node{Config: map[string]any{
		"on": true, "off": false, "one": float64(1), "zero": float64(0), "intZero": 0,
		"yes": "true", "False": "False", "zeroString": "0", "blank": "", "enabled": "ENABLED",
	}}
	for _, key := range []string{"on", "one", "yes", "enabled"} {
		assert.True(t, n.Flag(key), key)
	}
	for _, key := range []string{"off", "zero", "intZero", "False", "zeroString", "blank", "missing"} {
		assert.False(t, n.Flag(key), key)
	}

	var decoded Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","config":{"blockPublicAccess":0}}`), &decoded))
	assert.False(t, decoded.Flag("blockPublicAccess"))
}

func TestCloneIsDeep(t *testing.T) {
	g := &Graph{Nodes: []Node{{ID: "s1", Type: TypeStorage, Config: map[string]any{"versioning": false}}}}
	c := g.Clone()
	c.Nodes[0].Config["versioning"] = true
	assert.Equal(t, false, g.Nodes[0].Config["versioning"])
}

func TestExportDOT(t *testing.T) {
	g := &Graph{
		Nodes: []Node{node("api-1", TypeAPI), {ID: "fn", Type: TypeLambda, Label: "say \"hi\""}},
		Edges: []Edge{NewEdge("api-1", "fn", "invokes")},
	}
	var buf bytes.Buffer
	require.NoError(t, g.ExportDOT(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph Architecture {"))
	assert.Contains(t, out, `"api-1" -> "fn" [label="invokes"];`)
	assert.Contains(t, out, `say \"hi\"`)
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
