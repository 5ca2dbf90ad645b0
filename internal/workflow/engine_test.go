package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jfowler-cloud/scaffold-ai/internal/ai"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

type fakeCollaborator struct {
	intent    ai.Intent
	intentErr error
	draft     string
	draftErr  error
	block     bool
}

func (f *fakeCollaborator) ClassifyIntent(ctx context.Context, _, _ string) (ai.Intent, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.intent, f.intentErr
}

func (f *fakeCollaborator) DraftArchitecture(ctx context.Context, _, _ string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.draft, f.draftErr
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	return New(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func graphOf(types ...graph.ResourceType) *graph.Graph {
	g := graph.New()
	for i, typ := range types {
		g.AddNode(graph.Node{ID: fmt.Sprintf("%s-%d", typ, i), Type: typ, Label: string(typ)})
	}
	return g
}

func paths(files []codegen.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestRunRejectsEmptyMessage(t *testing.T) {
	_, err := newEngine(t).Run(context.Background(), Request{})
	assert.Error(t, err)
}

func TestGateBlocksGeneration(t *testing.T) {
	g := graphOf(graph.TypeAPI, graph.TypeAPI, graph.TypeAPI, graph.TypeAPI, graph.TypeLambda)

	st, err := newEngine(t).Run(context.Background(), Request{Message: "generate the code", Graph: g})
	require.NoError(t, err)

	assert.Equal(t, ai.IntentGenerateCode, st.Intent)
	assert.Equal(t, []Step{StepInterpret, StepArchitect, StepSecurityReview, StepDone}, st.Trace)
	require.NotNil(t, st.Review)
	assert.False(t, st.Review.Passed)
	assert.Len(t, st.Review.Warnings, 4)
	assert.Empty(t, st.Files)
	assert.Contains(t, st.Response, "Security review failed")
}

func TestSkipSecurityGenerates(t *testing.T) {
	g := graphOf(graph.TypeAPI, graph.TypeAPI, graph.TypeAPI, graph.TypeAPI, graph.TypeLambda)

	st, err := newEngine(t).Run(context.Background(), Request{Message: "generate the code", Graph: g, SkipSecurity: true})
	require.NoError(t, err)
	assert.Equal(t, StepCodeGen, st.Trace[len(st.Trace)-2])
	assert.Contains(t, paths(st.Files), codegen.CDKStackPath)
}

func TestGenerateWithFrontend(t *testing.T) {
	g := graphOf(graph.TypeFrontend, graph.TypeAuth, graph.TypeAPI, graph.TypeLambda, graph.TypeDatabase)
	g.AddEdge("api-2", "lambda-3", "")
	g.AddEdge("lambda-3", "database-4", "")

	st, err := newEngine(t).Run(context.Background(), Request{Message: "build it", Graph: g, Dialect: codegen.DialectTerraform})
	require.NoError(t, err)
	assert.True(t, st.Review.Passed)
	assert.Empty(t, st.Failures)

	ps := paths(st.Files)
	assert.Contains(t, ps, codegen.TerraformPath)
	assert.Contains(t, ps, "packages/generated/web/app/page.tsx")
	assert.NotContains(t, ps, codegen.CDKStackPath)
	assert.Len(t, g.Nodes, 5, "input graph is not modified")
}

func TestCodeGenUsesGivenRenderers(t *testing.T) {
	reg := codegen.Default().With(codegen.Terraform{Region: "ap-south-1"})
	st, err := newEngine(t, WithRenderers(reg)).Run(context.Background(),
		Request{Message: "generate", Graph: graphOf(graph.TypeLambda), Dialect: codegen.DialectTerraform})
	require.NoError(t, err)
	require.NotEmpty(t, st.Files)
	assert.Equal(t, codegen.TerraformPath, st.Files[0].Path)
	assert.Contains(t, st.Files[0].Content, `"ap-south-1"`)
}

func TestLargeGraphUsesNestedStacks(t *testing.T) {
	types := make([]graph.ResourceType, 16)
	for i := range types {
		types[i] = graph.TypeLambda
	}
	st, err := newEngine(t).Run(context.Background(), Request{Message: "generate", Graph: graphOf(types...)})
	require.NoError(t, err)
	assert.Contains(t, paths(st.Files), "packages/generated/infrastructure/lib/main-stack.ts")
}

func TestUnknownDialectFallsBackToCDK(t *testing.T) {
	st, err := newEngine(t).Run(context.Background(), Request{Message: "generate", Graph: graphOf(graph.TypeLambda), Dialect: "pulumi"})
	require.NoError(t, err)
	require.Len(t, st.Failures, 1)
	assert.Equal(t, "pulumi", st.Failures[0].Dialect)
	assert.Equal(t, []string{codegen.CDKStackPath}, paths(st.Files))
}

func TestExplainEmptyGraph(t *testing.T) {
	st, err := newEngine(t).Run(context.Background(), Request{Message: "what is this?"})
	require.NoError(t, err)
	assert.Equal(t, ai.IntentExplain, st.Intent)
	assert.Contains(t, st.Response, "empty")
	assert.Equal(t, []Step{StepInterpret, StepArchitect, StepDone}, st.Trace)
}

func TestArchitectMergesDraft(t *testing.T) {
	existing := graphOf(graph.TypeAPI)
	collab := &fakeCollaborator{
		intent: ai.IntentNewFeature,
		draft: "```json\n" + `{
  "explanation": "Added a handler and a table.",
  "nodes": [
    {"id": "api-0", "type": "api", "label": "Duplicate"},
    {"id": "fn", "data": {"type": "lambda", "label": "Handler"}},
    {"id": "table", "type": "database", "label": "Items"}
  ],
  "edges": [
    {"source": "api-0", "target": "fn"},
    {"source": "api-0", "target": "fn"},
    {"source": "fn", "target": "table", "label": "reads"}
  ]
}` + "\n```",
	}

	st, err := newEngine(t, WithCollaborator(collab)).Run(context.Background(), Request{Message: "add storage", Graph: existing})
	require.NoError(t, err)
	assert.Equal(t, "Added a handler and a table.", st.Response)

	require.Len(t, st.Graph.Nodes, 3)
	assert.Equal(t, "api", st.Graph.Nodes[0].Label, "existing node wins")
	fn, ok := st.Graph.Node("fn")
	require.True(t, ok)
	assert.Equal(t, graph.Position{X: 50 + 3*320, Y: 50}, fn.Position)

	require.Len(t, st.Graph.Edges, 2)
	assert.Equal(t, "e-api-0-fn", st.Graph.Edges[0].ID)
	assert.Equal(t, "reads", st.Graph.Edges[1].Label)
}

func TestArchitectSoftFailures(t *testing.T) {
	cases := []struct {
		name   string
		collab *fakeCollaborator
		want   string
	}{
		{"malformed json", &fakeCollaborator{intent: ai.IntentNewFeature, draft: "```json\n{oops\n```"}, "trouble generating"},
		{"edge without target", &fakeCollaborator{intent: ai.IntentNewFeature, draft: `{"nodes":[],"edges":[{"source":"a"}]}`}, "trouble generating"},
		{"collaborator error", &fakeCollaborator{intent: ai.IntentModifyGraph, draftErr: errors.New("throttled")}, "encountered an error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := graphOf(graph.TypeLambda)
			st, err := newEngine(t, WithCollaborator(tc.collab)).Run(context.Background(), Request{Message: "add a queue", Graph: g})
			require.NoError(t, err)
			assert.Contains(t, st.Response, tc.want)
			assert.Equal(t, g, st.Graph, "graph unchanged")
		})
	}
}

func TestClassifierFailureFallsBackToKeywords(t *testing.T) {
	collab := &fakeCollaborator{intentErr: errors.New("unavailable")}
	st, err := newEngine(t, WithCollaborator(collab)).Run(context.Background(), Request{Message: "explain the flow"})
	require.NoError(t, err)
	assert.Equal(t, ai.IntentExplain, st.Intent)
}

func TestCollaboratorTimeout(t *testing.T) {
	collab := &fakeCollaborator{block: true}
	e := newEngine(t, WithCollaborator(collab), WithTimeout(20*time.Millisecond))

	st, err := e.Run(context.Background(), Request{Message: "add a bucket", Graph: graphOf(graph.TypeLambda)})
	require.NoError(t, err)
	assert.Equal(t, ai.IntentNewFeature, st.Intent)
	assert.Contains(t, st.Response, "encountered an error")
	assert.Len(t, st.Graph.Nodes, 1)
}

func TestNoCollaboratorLeavesGraph(t *testing.T) {
	st, err := newEngine(t).Run(context.Background(), Request{Message: "add a bucket", Graph: graphOf(graph.TypeLambda)})
	require.NoError(t, err)
	assert.Contains(t, st.Response, "left unchanged")
	assert.Len(t, st.Graph.Nodes, 1)
	assert.NotEmpty(t, st.RunID)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t).Run(ctx, Request{Message: "generate"})
	assert.ErrorIs(t, err, context.Canceled)
}
