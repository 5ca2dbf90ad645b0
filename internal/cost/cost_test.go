package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

func graphOf(types ...graph.ResourceType) *graph.Graph {
	g := graph.New()
	for i, t := range types {
		g.AddNode(graph.Node{ID: string(t) + string(rune('a'+i)), Type: t})
	}
	return g
}

func TestEstimateEmpty(t *testing.T) {
	est := EstimateGraph(graph.New())
	assert.Zero(t, est.TotalMonthly)
	assert.Empty(t, est.Breakdown)
	assert.Equal(t, "No services to estimate", est.Disclaimer)
}

func TestEstimateSingleService(t *testing.T) {
	est := EstimateGraph(graphOf(graph.TypeLambda, graph.TypeLambda))
	require.Len(t, est.Breakdown, 1)
	assert.Equal(t, Line{Service: "AWS Lambda", Count: 2, MonthlyCost: 10, Details: "2 function(s) with typical invocation patterns"}, est.Breakdown[0])
	assert.Equal(t, 10.0, est.TotalMonthly)
	assert.Equal(t, Assumptions, est.Assumptions)
}

func TestEstimateAddsDataTransfer(t *testing.T) {
	est := EstimateGraph(graphOf(graph.TypeAPI, graph.TypeLambda, graph.TypeDatabase, graph.TypeStorage))
	require.Len(t, est.Breakdown, 5)
	assert.Equal(t, "API Gateway", est.Breakdown[0].Service)
	assert.Equal(t, "Data Transfer", est.Breakdown[4].Service)
	assert.Equal(t, 40.0, est.TotalMonthly)
}

func TestEstimateSkipsUnpricedTypes(t *testing.T) {
	g := graphOf(graph.TypeVPC, graph.TypeCatalog)
	g.AddNode(graph.Node{ID: "orders", Type: "sqs"})
	est := EstimateGraph(g)
	require.Len(t, est.Breakdown, 1)
	assert.Equal(t, "SQS", est.Breakdown[0].Service)
	assert.Equal(t, 2.0, est.TotalMonthly)
}

func TestTips(t *testing.T) {
	assert.Empty(t, Tips(graph.New()))
	assert.Empty(t, Tips(nil))

	tips := Tips(graphOf(graph.TypeAPI))
	assert.Equal(t, []string{"Enable API Gateway caching to reduce backend calls"}, tips)

	big := graphOf(graph.TypeLambda, graph.TypeDatabase, graph.TypeStorage, graph.TypeQueue, graph.TypeQueue, graph.TypeQueue)
	tips = Tips(big)
	assert.Len(t, tips, 8)
	assert.Contains(t, tips, "Set up AWS Budgets alerts for cost monitoring")
}
