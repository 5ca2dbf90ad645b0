package security

import (
	"fmt"
	"strings"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

const (
	encryptionKMS     = "KMS"
	corsPlaceholder   = "TODO: Configure allowed origins"
	authEdgeLabel     = "authenticates"
	synthesizedLabel  = "Cognito Auth"
	mfaRequired       = "REQUIRED"
	advancedEnforced  = "ENFORCED"
	privateSubnetType = "PRIVATE"
	tracingActive     = "ACTIVE"
)

// fixer mutates one node's config and records a line per flipped setting.
type fixer struct {
	node    *graph.Node
	changes *[]string
}

func (f fixer) set(key string, value any, format string) {
	if f.node.Config == nil {
		f.node.Config = make(map[string]any)
	}
	f.node.Config[key] = value
	*f.changes = append(*f.changes, fmt.Sprintf(format, f.node.Label))
}

// enable turns on a boolean flag unless it is already set.
func (f fixer) enable(key, format string) {
	if f.node.Flag(key) {
		return
	}
	f.set(key, true, format)
}

// ensure sets key to want unless it already holds it (case-insensitive).
func (f fixer) ensure(key, want, format string) {
	if strings.EqualFold(f.node.Setting(key), want) {
		return
	}
	f.set(key, want, format)
}

type fixRule func(f fixer)

var fixRules = map[graph.ResourceType]fixRule{
	graph.TypeStorage: func(f fixer) {
		f.ensure("encryption", encryptionKMS, "Upgraded encryption to KMS for S3 bucket '%s'")
		f.enable("keyRotation", "Enabled KMS key rotation for S3 bucket '%s'")
		f.enable("blockPublicAccess", "Blocked public access for S3 bucket '%s'")
		f.enable("versioning", "Enabled versioning for S3 bucket '%s'")
		f.enable("enforceHTTPS", "Enforced HTTPS-only access for S3 bucket '%s'")
	},
	graph.TypeDatabase: func(f fixer) {
		f.ensure("encryption", encryptionKMS, "Enabled KMS encryption for DynamoDB table '%s'")
		f.enable("pointInTimeRecovery", "Enabled point-in-time recovery for DynamoDB table '%s'")
	},
	graph.TypeLambda: func(f fixer) {
		if !f.node.Flag("vpcEnabled") {
			f.node.Config["subnetType"] = privateSubnetType
			f.set("vpcEnabled", true, "Placed Lambda function '%s' in private VPC subnets")
		}
		f.ensure("tracing", tracingActive, "Enabled X-Ray active tracing for Lambda function '%s'")
	},
	graph.TypeAPI: func(f fixer) {
		switch f.node.Setting("cors") {
		case "*", "ALL_ORIGINS":
			f.set("cors", corsPlaceholder, "Restricted CORS origins for API '%s'")
		}
		f.enable("waf", "Attached WAF web ACL to API '%s'")
		f.enable("throttling", "Enabled request throttling for API '%s'")
		f.enable("accessLogging", "Enabled access logging for API '%s'")
	},
	graph.TypeQueue: func(f fixer) {
		f.enable("deadLetterQueue", "Enabled DLQ for queue '%s'")
		f.ensure("encryption", encryptionKMS, "Enabled KMS encryption for queue '%s'")
	},
	graph.TypeNotification: func(f fixer) {
		f.ensure("encryption", encryptionKMS, "Enabled KMS encryption for SNS topic '%s'")
		f.enable("restrictedPolicy", "Restricted access policy for SNS topic '%s'")
	},
	graph.TypeCDN: func(f fixer) {
		f.enable("securityHeaders", "Attached security headers policy to distribution '%s'")
		f.enable("waf", "Attached WAF web ACL to distribution '%s'")
	},
	graph.TypeAuth: func(f fixer) {
		f.ensure("mfa", mfaRequired, "Required MFA for user pool '%s'")
		f.ensure("advancedSecurity", advancedEnforced, "Enforced advanced security for user pool '%s'")
	},
	graph.TypeCatalog: func(f fixer) {
		f.enable("encryption", "Enabled encryption for data catalog '%s'")
		f.enable("restrictedAccess", "Restricted access control for data catalog '%s'")
	},
	graph.TypeEvents: func(f fixer) {
		f.enable("restrictedPolicy", "Attached restricted resource policy to event bus '%s'")
	},
}

// AnalyzeAndFix hardens a copy of g and returns it with a human-readable
// change log. Running it on its own output yields an empty log.
func AnalyzeAndFix(g *graph.Graph) (*graph.Graph, []string) {
	changes := []string{}
	if g == nil {
		return graph.New(), changes
	}
	out := g.Clone()
	if len(out.Nodes) == 0 {
		return out, changes
	}

	if out.HasType(graph.TypeAPI) && !out.HasType(graph.TypeAuth) {
		authID := synthesizeAuth(out)
		changes = append(changes, fmt.Sprintf("Added Cognito user pool '%s' for API authentication", authID))
	}

	for i := range out.Nodes {
		n := &out.Nodes[i]
		rule, ok := fixRules[graph.ResolveType(*n)]
		if !ok {
			continue
		}
		if n.Config == nil {
			n.Config = make(map[string]any)
		}
		rule(fixer{node: n, changes: &changes})
	}
	return out, changes
}

// synthesizeAuth adds a hardened auth node wired to every api node.
func synthesizeAuth(g *graph.Graph) string {
	var apis []string
	for _, n := range g.Nodes {
		if graph.ResolveType(n) == graph.TypeAPI {
			apis = append(apis, n.ID)
		}
	}

	id := freeID(g, "auth", len(g.Nodes)+1)
	g.AddNode(graph.Node{
		ID:       id,
		Type:     graph.TypeAuth,
		Label:    synthesizedLabel,
		Position: graph.Position{X: 50, Y: 50},
		Config: map[string]any{
			"mfa":              mfaRequired,
			"advancedSecurity": advancedEnforced,
			"passwordPolicy":   "STRONG",
		},
	})
	for _, api := range apis {
		g.AddEdge(id, api, authEdgeLabel)
	}
	return id
}

func freeID(g *graph.Graph, prefix string, start int) string {
	for n := start; ; n++ {
		id := fmt.Sprintf("%s-%d", prefix, n)
		if _, taken := g.Node(id); !taken {
			return id
		}
	}
}
