package security

import (
	"math"
	"strings"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// Score is the weighted compliance rubric. It is informational only; the
// generation gate uses Review.Passed.
type Score struct {
	Score      int `json:"score"`
	MaxScore   int `json:"maxScore"`
	Percentage int `json:"percentage"`
}

type category struct {
	points  int
	applies func(t graph.ResourceType) bool
	ok      func(n graph.Node) bool
}

func ofType(types ...graph.ResourceType) func(graph.ResourceType) bool {
	return func(t graph.ResourceType) bool {
		for _, want := range types {
			if t == want {
				return true
			}
		}
		return false
	}
}

func flag(key string) func(graph.Node) bool {
	return func(n graph.Node) bool { return n.Flag(key) }
}

func kmsEncrypted(n graph.Node) bool {
	return strings.EqualFold(n.Setting("encryption"), encryptionKMS)
}

var categories = []category{
	{20, ofType(graph.TypeStorage, graph.TypeDatabase), kmsEncrypted},
	{15, ofType(graph.TypeStorage), flag("blockPublicAccess")},
	{15, ofType(graph.TypeLambda), flag("vpcEnabled")},
	{10, ofType(graph.TypeQueue), flag("deadLetterQueue")},
	{10, ofType(graph.TypeAPI), flag("waf")},
	{10, ofType(graph.TypeDatabase), flag("pointInTimeRecovery")},
}

const authPoints = 20

// SecurityScore awards up to 100 points. A category with no applicable
// nodes earns full credit. An empty graph scores {0, 0, 0}.
func SecurityScore(g *graph.Graph) Score {
	if g == nil || len(g.Nodes) == 0 {
		return Score{}
	}

	maxScore := authPoints
	score := 0
	if !g.HasType(graph.TypeAPI) || g.HasType(graph.TypeAuth) {
		score += authPoints
	}

	for _, c := range categories {
		maxScore += c.points
		total, ok := 0, 0
		for _, n := range g.Nodes {
			if !c.applies(graph.ResolveType(n)) {
				continue
			}
			total++
			if c.ok(n) {
				ok++
			}
		}
		if total == 0 {
			score += c.points
			continue
		}
		score += c.points * ok / total
	}

	return Score{
		Score:      score,
		MaxScore:   maxScore,
		Percentage: int(math.Round(100 * float64(score) / float64(maxScore))),
	}
}
