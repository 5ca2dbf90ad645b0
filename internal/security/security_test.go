package security

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

func graphOf(types ...graph.ResourceType) *graph.Graph {
	g := graph.New()
	for i, t := range types {
		g.AddNode(graph.Node{ID: string(t) + "-" + string(rune('a'+i)), Type: t, Label: string(t)})
	}
	return g
}

func TestReviewEmptyGraph(t *testing.T) {
	r := ReviewGraph(graph.New())
	assert.True(t, r.Passed)
	assert.Equal(t, 100, r.Score)
	assert.Empty(t, r.CriticalIssues)
	assert.Empty(t, r.Warnings)
	assert.Empty(t, r.Recommendations)
}

func TestReviewStorageScenario(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{{ID: "s1", Type: graph.TypeStorage}}}
	r := ReviewGraph(g)

	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "S3", r.Warnings[0].Service)
	assert.Equal(t, "s1", r.Warnings[0].NodeID)
	assert.Equal(t, SeverityMedium, r.Warnings[0].Severity)
	assert.Equal(t, 95, r.Score)
	assert.True(t, r.Passed)

	require.Len(t, r.ConfigChanges, 1)
	assert.Equal(t, "s1", r.ConfigChanges[0].NodeID)
	assert.Equal(t, "S3_MANAGED", r.ConfigChanges[0].Changes["encryption"])
}

func TestReviewScoring(t *testing.T) {
	cases := []struct {
		name   string
		graph  *graph.Graph
		score  int
		passed bool
	}{
		{"one unauthenticated api", graphOf(graph.TypeAPI), 85, true},
		{"three unauthenticated apis", graphOf(graph.TypeAPI, graph.TypeAPI, graph.TypeAPI), 55, true},
		{"four unauthenticated apis", graphOf(graph.TypeAPI, graph.TypeAPI, graph.TypeAPI, graph.TypeAPI), 40, false},
		{"api with auth", graphOf(graph.TypeAPI, graph.TypeAuth), 100, true},
		{"queue", graphOf(graph.TypeQueue), 95, true},
		{"database and lambda carry no penalty", graphOf(graph.TypeDatabase, graph.TypeLambda), 100, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ReviewGraph(tc.graph)
			assert.Equal(t, tc.score, r.Score)
			assert.Equal(t, tc.passed, r.Passed)
		})
	}
}

func TestReviewScoreClampsAtZero(t *testing.T) {
	types := make([]graph.ResourceType, 25)
	for i := range types {
		types[i] = graph.TypeStorage
	}
	r := ReviewGraph(graphOf(types...))
	assert.Equal(t, 0, r.Score)
	assert.True(t, r.Passed)
}

func TestReviewRecommendations(t *testing.T) {
	r := ReviewGraph(graphOf(graph.TypeLambda, graph.TypeDatabase, graph.TypeAuth))

	byService := map[string]int{}
	for _, rec := range r.Recommendations {
		byService[rec.Service]++
	}
	assert.Equal(t, 2, byService["Lambda"])
	assert.Equal(t, 1, byService["DynamoDB"])
	assert.Equal(t, 1, byService["Cognito"])
	assert.Empty(t, r.Warnings)
	assert.ElementsMatch(t, []string{"Lambda", "DynamoDB", "Cognito"}, r.CompliantServices)
}

func TestReviewUsesResolvedTypes(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{
		{ID: "orders", Type: "sqs", Label: "Orders"},
		{ID: "dlq-processor-lambda"},
	}}
	r := ReviewGraph(g)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "SQS", r.Warnings[0].Service)
	assert.Len(t, r.Recommendations, 2)
}

func TestGate(t *testing.T) {
	var missing *Review
	assert.False(t, missing.Gate())
	assert.False(t, (&Review{}).Gate())
	assert.True(t, ReviewGraph(graph.New()).Gate())
}

func TestAnalyzeAndFixSynthesizesAuth(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{{ID: "api-1", Type: graph.TypeAPI, Label: "REST API"}}}

	fixed, changes := AnalyzeAndFix(g)
	require.Len(t, fixed.Nodes, 2)
	require.Len(t, fixed.Edges, 1)

	auth := fixed.Nodes[1]
	assert.Equal(t, graph.TypeAuth, auth.Type)
	assert.Equal(t, graph.Position{X: 50, Y: 50}, auth.Position)
	assert.Equal(t, "auth-2", auth.ID)

	edge := fixed.Edges[0]
	assert.Equal(t, "e-auth-2-api-1", edge.ID)
	assert.Equal(t, "api-1", edge.Target)
	assert.Equal(t, "authenticates", edge.Label)
	assert.NotEmpty(t, changes)

	// the input graph is left alone
	assert.Len(t, g.Nodes, 1)
	assert.Nil(t, g.Nodes[0].Config)
}

func TestAnalyzeAndFixAvoidsIDCollision(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{
		{ID: "api-1", Type: graph.TypeAPI},
		{ID: "auth-3", Type: graph.TypeLambda, Label: "Token refresher"},
	}}
	fixed, _ := AnalyzeAndFix(g)
	require.Len(t, fixed.Nodes, 3)
	assert.Equal(t, "auth-4", fixed.Nodes[2].ID)
}

func TestAnalyzeAndFixIdempotent(t *testing.T) {
	g := graphOf(
		graph.TypeStorage, graph.TypeDatabase, graph.TypeLambda, graph.TypeAPI,
		graph.TypeQueue, graph.TypeNotification, graph.TypeCDN, graph.TypeCatalog,
		graph.TypeEvents,
	)
	g.Nodes[3].Config = map[string]any{"cors": "ALL_ORIGINS"}

	once, changes := AnalyzeAndFix(g)
	assert.NotEmpty(t, changes)
	assert.Equal(t, corsPlaceholder, once.Nodes[3].Config["cors"])

	twice, changes2 := AnalyzeAndFix(once)
	assert.Empty(t, changes2)
	assert.Equal(t, once, twice)
}

func TestAnalyzeAndFixHardensAuth(t *testing.T) {
	g := &graph.Graph{Nodes: []graph.Node{{ID: "pool", Type: graph.TypeAuth, Label: "Users", Config: map[string]any{"mfa": "OPTIONAL"}}}}
	fixed, changes := AnalyzeAndFix(g)
	assert.Equal(t, "REQUIRED", fixed.Nodes[0].Config["mfa"])
	assert.Equal(t, "ENFORCED", fixed.Nodes[0].Config["advancedSecurity"])
	assert.Len(t, changes, 2)
}

func TestAnalyzeAndFixEmpty(t *testing.T) {
	fixed, changes := AnalyzeAndFix(graph.New())
	assert.Empty(t, fixed.Nodes)
	assert.Empty(t, changes)
}

func TestSecurityScore(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		assert.Equal(t, Score{}, SecurityScore(graph.New()))
	})

	t.Run("api without auth", func(t *testing.T) {
		s := SecurityScore(graphOf(graph.TypeAPI))
		assert.Equal(t, Score{Score: 70, MaxScore: 100, Percentage: 70}, s)
	})

	t.Run("bare storage", func(t *testing.T) {
		s := SecurityScore(graphOf(graph.TypeStorage))
		assert.Equal(t, 65, s.Score)
	})

	t.Run("half of the lambdas in a vpc", func(t *testing.T) {
		g := graphOf(graph.TypeLambda, graph.TypeLambda)
		g.Nodes[0].Config = map[string]any{"vpcEnabled": true}
		assert.Equal(t, 92, SecurityScore(g).Score)
	})

	t.Run("autofix reaches full marks", func(t *testing.T) {
		g := graphOf(graph.TypeAPI, graph.TypeLambda, graph.TypeDatabase, graph.TypeStorage, graph.TypeQueue)
		fixed, _ := AnalyzeAndFix(g)
		assert.Equal(t, 100, SecurityScore(fixed).Percentage)
	})
}

func TestReviewFindings(t *testing.T) {
	r := ReviewGraph(graphOf(graph.TypeAPI, graph.TypeLambda))
	findings := r.Findings()
	require.Len(t, findings, 3)
	assert.Equal(t, "high", findings[0].Level)
	assert.Equal(t, "API Gateway", findings[0].Source)
	assert.Equal(t, "api-a", findings[0].Reference)
	assert.Equal(t, "lambda-b", findings[1].Reference)
	assert.Equal(t, "info", findings[1].Level)
	assert.Contains(t, findings[1].Advice, "X-Ray")

	var missing *Review
	assert.Nil(t, missing.Findings())
}

func TestExplicitlyDisabledFlagsAreHardened(t *testing.T) {
	for _, off := range []any{float64(0), 0, "False", "0", "off"} {
		t.Run(fmt.Sprintf("%T %v", off, off), func(t *testing.T) {
			g := &graph.Graph{Nodes: []graph.Node{{
				ID: "uploads", Type: graph.TypeStorage, Label: "Uploads",
				Config: map[string]any{
					"encryption":        "KMS",
					"keyRotation":       true,
					"blockPublicAccess": off,
					"versioning":        true,
					"enforceHTTPS":      true,
				},
			}}}

			assert.Equal(t, 85, SecurityScore(g).Score)

			fixed, changes := AnalyzeAndFix(g)
			require.Len(t, changes, 1)
			assert.Contains(t, changes[0], "Blocked public access")
			assert.True(t, fixed.Nodes[0].Flag("blockPublicAccess"))
			assert.Equal(t, 100, SecurityScore(fixed).Score)
		})
	}
}
