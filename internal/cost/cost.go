// Package cost gives rough monthly cost estimates for an architecture.
package cost

import (
	"fmt"
	"math"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

const (
	dataTransferMonthly  = 5.00
	dataTransferMinNodes = 4
	tipsLargeGraph       = 5
)

const Disclaimer = "These are estimates only. Actual AWS costs may vary significantly based on usage patterns, data volume, and region. Always use the AWS Pricing Calculator for detailed estimates."

var Assumptions = []string{
	"Estimates based on typical small-to-medium application usage",
	"Actual costs vary based on traffic, data volume, and usage patterns",
	"Free tier benefits not included",
	"Costs are approximate and for planning purposes only",
}

type price struct {
	service string
	monthly float64
	details string // %d is the instance count
}

var prices = map[graph.ResourceType]price{
	graph.TypeLambda:       {"AWS Lambda", 5, "%d function(s) with typical invocation patterns"},
	graph.TypeAPI:          {"API Gateway", 10, "%d API(s) with ~100K requests/month each"},
	graph.TypeDatabase:     {"DynamoDB", 15, "%d table(s) with on-demand billing"},
	graph.TypeStorage:      {"S3", 5, "%d bucket(s) with ~100GB storage each"},
	graph.TypeAuth:         {"Cognito", 10, "%d user pool(s) with ~1800 MAU each"},
	graph.TypeQueue:        {"SQS", 2, "%d queue(s) with typical message volume"},
	graph.TypeNotification: {"SNS", 2, "%d topic(s) with typical notification volume"},
	graph.TypeEvents:       {"EventBridge", 3, "%d event bus(es) with typical event volume"},
	graph.TypeWorkflow:     {"Step Functions", 10, "%d state machine(s) with typical executions"},
	graph.TypeStream:       {"Kinesis", 11, "%d stream(s) with 1 shard each"},
	graph.TypeCDN:          {"CloudFront", 15, "%d distribution(s) with typical traffic"},
	graph.TypeFrontend:     {"S3 + CloudFront", 5, "%d frontend(s) with static hosting"},
}

type Line struct {
	Service     string  `json:"service"`
	Count       int     `json:"count"`
	MonthlyCost float64 `json:"monthlyCost"`
	Details     string  `json:"details"`
}

type Estimate struct {
	TotalMonthly float64  `json:"totalMonthly"`
	Breakdown    []Line   `json:"breakdown"`
	Assumptions  []string `json:"assumptions"`
	Disclaimer   string   `json:"disclaimer"`
}

// EstimateGraph prices every priced resource type at its typical monthly cost.
// Lines follow the order in which types first appear. Unpriced types are
// ignored. Graphs with more than three nodes carry a data transfer line.
func EstimateGraph(g *graph.Graph) Estimate {
	if g == nil || len(g.Nodes) == 0 {
		return Estimate{Breakdown: []Line{}, Assumptions: []string{}, Disclaimer: "No services to estimate"}
	}

	counts := map[graph.ResourceType]int{}
	var order []graph.ResourceType
	for _, n := range g.Nodes {
		t := graph.ResolveType(n)
		if _, ok := prices[t]; !ok {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	est := Estimate{Breakdown: []Line{}, Assumptions: Assumptions, Disclaimer: Disclaimer}
	total := 0.0
	for _, t := range order {
		p := prices[t]
		line := Line{
			Service:     p.service,
			Count:       counts[t],
			MonthlyCost: p.monthly * float64(counts[t]),
			Details:     fmt.Sprintf(p.details, counts[t]),
		}
		est.Breakdown = append(est.Breakdown, line)
		total += line.MonthlyCost
	}

	if len(g.Nodes) >= dataTransferMinNodes {
		est.Breakdown = append(est.Breakdown, Line{
			Service:     "Data Transfer",
			Count:       1,
			MonthlyCost: dataTransferMonthly,
			Details:     "Inter-service data transfer (estimated)",
		})
		total += dataTransferMonthly
	}
	est.TotalMonthly = math.Round(total*100) / 100
	return est
}

var tipsByType = []struct {
	t    graph.ResourceType
	tips []string
}{
	{graph.TypeLambda, []string{
		"Use Lambda reserved concurrency to control costs",
		"Tune Lambda memory settings for cost/performance balance",
	}},
	{graph.TypeDatabase, []string{
		"Consider DynamoDB reserved capacity for predictable workloads",
		"Use DynamoDB TTL to delete old data automatically",
	}},
	{graph.TypeStorage, []string{
		"Use S3 Intelligent-Tiering for automatic cost optimization",
		"Set lifecycle policies to move old data to cheaper storage classes",
	}},
	{graph.TypeAPI, []string{"Enable API Gateway caching to reduce backend calls"}},
	{graph.TypeStream, []string{"Right-size Kinesis shards based on actual throughput"}},
}

// Tips returns cost optimisation advice for the services present in g.
func Tips(g *graph.Graph) []string {
	tips := []string{}
	if g == nil {
		return tips
	}
	for _, group := range tipsByType {
		if g.HasType(group.t) {
			tips = append(tips, group.tips...)
		}
	}
	if len(g.Nodes) > tipsLargeGraph {
		tips = append(tips,
			"Use AWS Cost Explorer to track actual spending",
			"Set up AWS Budgets alerts for cost monitoring",
		)
	}
	return tips
}
