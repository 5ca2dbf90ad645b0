package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Slug lower-cases s and joins its words with dashes: "My User Table" -> "my-user-table".
func Slug(s string) string {
	return strings.ToLower(strings.Join(words(s), "-"))
}

func snake(s string) string {
	return strings.ToLower(strings.Join(words(s), "_"))
}

func pascal(s string) string {
	// a Caser keeps state, so each call gets its own
	caser := cases.Title(language.English)
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

func camel(s string) string {
	p := pascal(s)
	if p == "" {
		return ""
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// identifiers hands out names that are unique within one generated file.
type identifiers map[string]bool

// take returns the first free variant of base. A variant is free only when
// it and every name derived from it by appending a suffix are unused; all
// of them are reserved together.
func (ids identifiers) take(base, prefix string, suffixes []string) string {
	if base == "" {
		base = prefix
	}
	if r := []rune(base); unicode.IsDigit(r[0]) {
		base = prefix + base
	}
	name := base
	for i := 2; !ids.free(name, suffixes); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	ids[name] = true
	for _, s := range suffixes {
		ids[name+s] = true
	}
	return name
}

func (ids identifiers) free(name string, suffixes []string) bool {
	if ids[name] {
		return false
	}
	for _, s := range suffixes {
		if ids[name+s] {
			return false
		}
	}
	return true
}

// resource is a node resolved to a supported type with its identifier in
// the target language.
type resource struct {
	graph.Node
	Kind graph.ResourceType
	Name string
	Slug string
}

// KMS reports whether the node asks for customer-managed encryption.
func (r resource) KMS() bool {
	return strings.EqualFold(r.Setting("encryption"), "KMS")
}

// MFARequired reports whether an auth node requires MFA.
func (r resource) MFARequired() bool {
	return strings.EqualFold(r.Setting("mfa"), "REQUIRED")
}

type plan struct {
	resources []resource
	byID      map[string]resource
}

// naming is how a dialect spells identifiers. Suffixes lists the companion
// names its templates build from a resource name, such as a queue's DLQ.
type naming struct {
	style    func(string) string
	prefix   string
	suffixes []string
}

var (
	tsNaming  = naming{tsName, "res", []string{"Dlq", "Client", "Bucket"}}
	cfnNaming = naming{pascal, "Resource", []string{"Dlq", "Client", "Role"}}
	pyNaming  = naming{pyName, "res_", []string{"_dlq"}}
	tfNaming  = naming{snake, "r_", []string{
		"_dlq", "_client", "_role", "_basic", "_logs", "_stage",
		"_versioning", "_encryption", "_public_access",
	}}
)

// newPlan resolves every node, drops types the dialect cannot render and
// assigns identifiers that cannot clash with each other's derived names.
func newPlan(nodes []graph.Node, supported func(graph.ResourceType) bool, nm naming) plan {
	p := plan{byID: make(map[string]resource, len(nodes))}
	ids := identifiers{}
	for _, n := range nodes {
		kind := graph.ResolveType(n)
		if !supported(kind) {
			continue
		}
		base := nm.style(n.Label)
		if base == "" {
			base = nm.style(n.ID)
		}
		slug := Slug(n.Label)
		if slug == "" {
			slug = Slug(n.ID)
		}
		r := resource{Node: n, Kind: kind, Name: ids.take(base, nm.prefix, nm.suffixes), Slug: slug}
		p.resources = append(p.resources, r)
		p.byID[n.ID] = r
	}
	return p
}

func (p plan) has(kind graph.ResourceType) bool {
	for _, r := range p.resources {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// link is an edge whose endpoints are both rendered.
type link struct {
	From, To resource
}

func (p plan) links(edges []graph.Edge) []link {
	var out []link
	for _, e := range edges {
		from, okFrom := p.byID[e.Source]
		to, okTo := p.byID[e.Target]
		if okFrom && okTo {
			out = append(out, link{From: from, To: to})
		}
	}
	return out
}

type wiring struct {
	from, to graph.ResourceType
}

func reserved(style func(string) string, suffix string, words ...string) func(string) string {
	taken := make(map[string]bool, len(words))
	for _, w := range words {
		taken[w] = true
	}
	return func(s string) string {
		name := style(s)
		if taken[name] {
			return name + suffix
		}
		return name
	}
}

// tsName avoids keywords and the module aliases the stack imports.
var tsName = reserved(camel, "Res",
	"break", "case", "catch", "class", "const", "continue", "debugger", "default", "delete",
	"do", "else", "enum", "export", "extends", "false", "finally", "for", "function", "if",
	"import", "in", "instanceof", "let", "new", "null", "return", "static", "super", "switch",
	"this", "throw", "true", "try", "typeof", "var", "void", "while", "with", "yield", "await",
	"cdk", "scope", "id", "props", "lambda", "apigateway", "dynamodb", "s3", "sqs", "cognito",
	"cloudfront", "origins", "events", "sns", "sfn", "kinesis", "glue",
)

var pyName = reserved(snake, "_res",
	"and", "as", "assert", "async", "await", "break", "class", "continue", "def", "del", "elif",
	"else", "except", "finally", "for", "from", "global", "if", "import", "in", "is", "lambda",
	"nonlocal", "not", "or", "pass", "raise", "return", "try", "while", "with", "yield",
	"self", "scope", "construct_id", "kwargs", "apigw", "dynamodb", "s3", "sqs", "cognito",
	"events", "sns", "kinesis", "sfn",
)
