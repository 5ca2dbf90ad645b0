// Package security implements the deterministic architecture review gate,
// the idempotent auto-fix pass and the weighted compliance score.
package security

import (
	"fmt"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Issue is a finding that counts toward the score.
type Issue struct {
	NodeID         string   `json:"nodeId,omitempty"`
	Service        string   `json:"service"`
	Issue          string   `json:"issue"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// Recommendation is advice with no score impact.
type Recommendation struct {
	NodeID         string `json:"nodeId,omitempty"`
	Service        string `json:"service"`
	Recommendation string `json:"recommendation"`
}

type ConfigChange struct {
	NodeID  string         `json:"nodeId"`
	Changes map[string]any `json:"changes"`
}

type Review struct {
	Score             int              `json:"score"`
	Passed            bool             `json:"passed"`
	CriticalIssues    []Issue          `json:"criticalIssues"`
	Warnings          []Issue          `json:"warnings"`
	Recommendations   []Recommendation `json:"recommendations"`
	CompliantServices []string         `json:"compliantServices"`
	ConfigChanges     []ConfigChange   `json:"configChanges"`
}

const (
	penaltyCritical = 30
	penaltyHigh     = 15
	penaltyMedium   = 5
	maxHighAllowed  = 3
)

// Counts tallies issues by severity across critical issues and warnings.
func (r *Review) Counts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, i := range r.CriticalIssues {
		counts[i.Severity]++
	}
	for _, w := range r.Warnings {
		counts[w.Severity]++
	}
	return counts
}

// Gate reports whether code generation may proceed. A missing review never passes.
func (r *Review) Gate() bool {
	return r != nil && r.Passed
}

// Issues returns critical issues followed by warnings.
func (r *Review) Issues() []Issue {
	out := make([]Issue, 0, len(r.CriticalIssues)+len(r.Warnings))
	out = append(out, r.CriticalIssues...)
	return append(out, r.Warnings...)
}

type reviewer struct {
	hasAuth bool
	review  *Review
	flagged map[string]bool
}

type reviewRule func(rv *reviewer, n graph.Node)

var reviewRules = map[graph.ResourceType]reviewRule{
	graph.TypeStorage:  reviewStorage,
	graph.TypeDatabase: reviewDatabase,
	graph.TypeAPI:      reviewAPI,
	graph.TypeLambda:   reviewLambda,
	graph.TypeQueue:    reviewQueue,
	graph.TypeAuth:     reviewAuth,
}

// ReviewGraph reviews the graph. An empty graph passes with a perfect score.
func ReviewGraph(g *graph.Graph) *Review {
	review := &Review{
		Score:             100,
		Passed:            true,
		CriticalIssues:    []Issue{},
		Warnings:          []Issue{},
		Recommendations:   []Recommendation{},
		CompliantServices: []string{},
		ConfigChanges:     []ConfigChange{},
	}
	if g == nil || len(g.Nodes) == 0 {
		return review
	}

	rv := &reviewer{
		hasAuth: g.HasType(graph.TypeAuth),
		review:  review,
		flagged: make(map[string]bool),
	}

	var services []string
	for _, n := range g.Nodes {
		t := graph.ResolveType(n)
		rule, ok := reviewRules[t]
		if !ok {
			continue
		}
		rule(rv, n)
		services = appendUnique(services, graph.ServiceName(t))
	}
	for _, s := range services {
		if !rv.flagged[s] {
			review.CompliantServices = append(review.CompliantServices, s)
		}
	}

	counts := review.Counts()
	score := 100 -
		penaltyCritical*counts[SeverityCritical] -
		penaltyHigh*counts[SeverityHigh] -
		penaltyMedium*counts[SeverityMedium]
	review.Score = clamp(score, 0, 100)
	review.Passed = counts[SeverityCritical] == 0 && counts[SeverityHigh] <= maxHighAllowed
	return review
}

func (rv *reviewer) warn(n graph.Node, service string, sev Severity, issue, rec string) {
	i := Issue{NodeID: n.ID, Service: service, Issue: issue, Severity: sev, Recommendation: rec}
	if sev == SeverityCritical {
		rv.review.CriticalIssues = append(rv.review.CriticalIssues, i)
	} else {
		rv.review.Warnings = append(rv.review.Warnings, i)
	}
	rv.flagged[service] = true
}

func (rv *reviewer) recommend(n graph.Node, service, rec string) {
	rv.review.Recommendations = append(rv.review.Recommendations, Recommendation{NodeID: n.ID, Service: service, Recommendation: rec})
}

func (rv *reviewer) change(nodeID string, changes map[string]any) {
	rv.review.ConfigChanges = append(rv.review.ConfigChanges, ConfigChange{NodeID: nodeID, Changes: changes})
}

func reviewStorage(rv *reviewer, n graph.Node) {
	rv.warn(n, "S3", SeverityMedium,
		fmt.Sprintf("Bucket '%s' should have encryption, versioning, and block public access enabled", n.Label),
		"Add blockPublicAccess: BLOCK_ALL, encryption: S3_MANAGED, versioned: true")
	rv.change(n.ID, map[string]any{
		"blockPublicAccess": true,
		"encryption":        "S3_MANAGED",
		"versioning":        true,
	})
}

func reviewDatabase(rv *reviewer, n graph.Node) {
	rv.recommend(n, "DynamoDB", fmt.Sprintf("Enable point-in-time recovery for '%s' table for data protection", n.Label))
	rv.change(n.ID, map[string]any{"pointInTimeRecovery": true})
}

func reviewAPI(rv *reviewer, n graph.Node) {
	if rv.hasAuth {
		return
	}
	rv.warn(n, "API Gateway", SeverityHigh,
		fmt.Sprintf("API '%s' has no authentication configured", n.Label),
		"Add Cognito, IAM, or Lambda authorizer for authentication")
}

func reviewLambda(rv *reviewer, n graph.Node) {
	rv.recommend(n, "Lambda", fmt.Sprintf("Enable X-Ray tracing on '%s' for debugging and monitoring", n.Label))
	rv.recommend(n, "Lambda", fmt.Sprintf("Use least-privilege IAM grants (grantRead vs grantReadWrite) for '%s'", n.Label))
}

func reviewQueue(rv *reviewer, n graph.Node) {
	rv.warn(n, "SQS", SeverityMedium,
		fmt.Sprintf("Queue '%s' should have encryption enabled for sensitive data", n.Label),
		"Add encryption: sqs.QueueEncryption.KMS")
	rv.change(n.ID, map[string]any{
		"encryption":      "KMS",
		"deadLetterQueue": true,
	})
}

func reviewAuth(rv *reviewer, n graph.Node) {
	rv.recommend(n, "Cognito", fmt.Sprintf("Consider enabling MFA for '%s' user pool for enhanced security", n.Label))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
