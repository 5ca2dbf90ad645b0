package graph

import "strings"

// synonyms maps legacy and service-specific names onto canonical types.
var synonyms = map[string]ResourceType{
	"dynamodb":   TypeDatabase,
	"cognito":    TypeAuth,
	"apigateway": TypeAPI,
	"s3":         TypeStorage,
	"sns":        TypeNotification,
	"sqs":        TypeQueue,
	"glue":       TypeCatalog,
}

var known = map[ResourceType]struct{}{
	TypeFrontend: {}, TypeCDN: {}, TypeAuth: {}, TypeAPI: {}, TypeLambda: {},
	TypeWorkflow: {}, TypeQueue: {}, TypeEvents: {}, TypeNotification: {},
	TypeStream: {}, TypeDatabase: {}, TypeStorage: {}, TypeCatalog: {},
	TypeVPC: {}, TypeSubnet: {}, TypeSecurityGroup: {}, TypeCache: {},
	TypeECS: {}, TypeBatch: {},
}

type matcher struct {
	match func(text string) bool
	typ   ResourceType
}

func containsAny(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

// matchers is evaluated in order. Lambda comes before queue so that names
// like "dlq-processor-lambda" stay compute.
var matchers = []matcher{
	{containsAny("lambda", "function", "handler", "processor", "worker"), TypeLambda},
	{containsAny("dlq", "queue", "sqs"), TypeQueue},
	{containsAny("bucket", "s3", "storage"), TypeStorage},
	{containsAny("dynamo", "database", "table", "db-"), TypeDatabase},
	{containsAny("api", "gateway", "endpoint"), TypeAPI},
	{containsAny("auth", "cognito", "user pool", "userpool", "login"), TypeAuth},
	{containsAny("cdn", "cloudfront", "distribution"), TypeCDN},
	{containsAny("sns", "topic", "notification", "notify"), TypeNotification},
	{containsAny("eventbridge", "event bus", "event-bus", "events"), TypeEvents},
	{containsAny("glue", "catalog"), TypeCatalog},
	{containsAny("kinesis", "stream"), TypeStream},
}

// Normalize lower-cases t and maps legacy synonyms to canonical names.
func Normalize(t ResourceType) ResourceType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	if c, ok := synonyms[s]; ok {
		return c
	}
	return ResourceType(s)
}

// IsKnown reports whether t (after normalisation) is a canonical type.
func IsKnown(t ResourceType) bool {
	_, ok := known[Normalize(t)]
	return ok
}

// ResolveType infers the canonical type of a node. It never fails: when
// nothing matches it returns the raw type, or TypeUnknown if that is empty.
func ResolveType(n Node) ResourceType {
	if t := Normalize(n.Type); IsKnown(t) {
		return t
	}

	text := strings.ToLower(n.ID + " " + n.Label)
	for _, m := range matchers {
		if m.match(text) {
			return m.typ
		}
	}

	if n.Type != "" {
		return n.Type
	}
	return TypeUnknown
}

var serviceNames = map[ResourceType]string{
	TypeFrontend:     "S3 + CloudFront",
	TypeCDN:          "CloudFront",
	TypeAuth:         "Cognito",
	TypeAPI:          "API Gateway",
	TypeLambda:       "Lambda",
	TypeWorkflow:     "Step Functions",
	TypeQueue:        "SQS",
	TypeEvents:       "EventBridge",
	TypeNotification: "SNS",
	TypeStream:       "Kinesis",
	TypeDatabase:     "DynamoDB",
	TypeStorage:      "S3",
	TypeCatalog:      "Glue",
}

// ServiceName is the AWS service a resource type is rendered as.
func ServiceName(t ResourceType) string {
	if s, ok := serviceNames[Normalize(t)]; ok {
		return s
	}
	return string(t)
}
