package codegen

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// CloudFormationPath is where the SAM template is written.
const CloudFormationPath = infraDir + "/template.yaml"

// yaml node helpers. Intrinsic functions use the short tag form.

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func num(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
}

func boolean(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func ref(logicalID string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!Ref", Value: logicalID}
}

func getAtt(logicalID, attr string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!GetAtt", Value: logicalID + "." + attr}
}

func sub(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!Sub", Value: s}
}

// mapping builds a mapping from alternating keys and values.
func mapping(kv ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Content = append(m.Content, str(kv[i].(string)), value(kv[i+1]))
	}
	return m
}

func seq(items ...any) *yaml.Node {
	s := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, it := range items {
		s.Content = append(s.Content, value(it))
	}
	return s
}

func value(v any) *yaml.Node {
	switch x := v.(type) {
	case *yaml.Node:
		return x
	case string:
		return str(x)
	case int:
		return num(x)
	case bool:
		return boolean(x)
	default:
		panic(fmt.Sprintf("cloudformation: unsupported value %T", v))
	}
}

func (m cfnTemplate) add(section *yaml.Node, key string, val *yaml.Node) {
	section.Content = append(section.Content, str(key), val)
}

type cfnTemplate struct {
	resources *yaml.Node
	outputs   *yaml.Node
	plan      plan
}

func (m cfnTemplate) resource(logicalID, typ string, props *yaml.Node) *yaml.Node {
	r := mapping("Type", typ, "Properties", props)
	m.add(m.resources, logicalID, r)
	return props
}

func (m cfnTemplate) output(key, description string, val *yaml.Node) {
	m.add(m.outputs, key, mapping("Description", description, "Value", val))
}

func cfnSupported(t graph.ResourceType) bool {
	_, ok := cfnResources[t]
	return ok
}

type cfnBuilder func(m cfnTemplate, r resource)

var cfnResources = map[graph.ResourceType]cfnBuilder{
	graph.TypeLambda: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::Serverless::Function", mapping(
			"Handler", "index.handler",
			"Runtime", "python3.12",
			"InlineCode", `def handler(event, context): return {"statusCode": 200}`,
			"Timeout", 30,
			"Tracing", "Active",
			"Environment", mapping("Variables", mapping("LOG_LEVEL", "INFO")),
			"Policies", seq("AWSLambdaBasicExecutionRole"),
		))
		m.output(r.Name+"Arn", "ARN of Lambda function "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeAPI: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::Serverless::Api", mapping(
			"Name", r.Slug,
			"StageName", "prod",
			"TracingEnabled", true,
			"Cors", mapping("AllowOrigin", "'TODO: Configure origin'", "AllowMethods", "'GET,POST,PUT,DELETE,OPTIONS'"),
			"MethodSettings", seq(mapping(
				"ResourcePath", "/*",
				"HttpMethod", "*",
				"LoggingLevel", "INFO",
				"ThrottlingBurstLimit", 100,
				"ThrottlingRateLimit", 50,
			)),
		))
		m.output(r.Name+"Url", "Invoke URL of "+r.Label,
			sub(fmt.Sprintf("https://${%s}.execute-api.${AWS::Region}.amazonaws.com/prod", r.Name)))
	},
	graph.TypeDatabase: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::DynamoDB::Table", mapping(
			"TableName", r.Slug,
			"BillingMode", "PAY_PER_REQUEST",
			"AttributeDefinitions", seq(mapping("AttributeName", "id", "AttributeType", "S")),
			"KeySchema", seq(mapping("AttributeName", "id", "KeyType", "HASH")),
			"PointInTimeRecoverySpecification", mapping("PointInTimeRecoveryEnabled", true),
			"SSESpecification", mapping("SSEEnabled", true),
		))
		m.output(r.Name+"Arn", "ARN of DynamoDB table "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeStorage: func(m cfnTemplate, r resource) {
		algorithm := "AES256"
		if r.KMS() {
			algorithm = "aws:kms"
		}
		m.resource(r.Name, "AWS::S3::Bucket", mapping(
			"BucketEncryption", mapping("ServerSideEncryptionConfiguration", seq(mapping(
				"ServerSideEncryptionByDefault", mapping("SSEAlgorithm", algorithm),
			))),
			"PublicAccessBlockConfiguration", mapping(
				"BlockPublicAcls", true,
				"BlockPublicPolicy", true,
				"IgnorePublicAcls", true,
				"RestrictPublicBuckets", true,
			),
			"VersioningConfiguration", mapping("Status", "Enabled"),
		))
		m.output(r.Name+"Arn", "ARN of S3 bucket "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeQueue: func(m cfnTemplate, r resource) {
		dlq := r.Name + "Dlq"
		m.resource(dlq, "AWS::SQS::Queue", mapping(
			"SqsManagedSseEnabled", true,
			"MessageRetentionPeriod", 1209600,
		))
		props := mapping(
			"VisibilityTimeout", 300,
			"RedrivePolicy", mapping(
				"deadLetterTargetArn", getAtt(dlq, "Arn"),
				"maxReceiveCount", 3,
			),
		)
		if r.KMS() {
			m.add(props, "KmsMasterKeyId", str("alias/aws/sqs"))
		} else {
			m.add(props, "SqsManagedSseEnabled", boolean(true))
		}
		m.resource(r.Name, "AWS::SQS::Queue", props)
		m.output(r.Name+"Arn", "ARN of SQS queue "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeAuth: func(m cfnTemplate, r resource) {
		props := mapping(
			"UserPoolName", r.Slug,
			"UsernameAttributes", seq("email"),
			"AutoVerifiedAttributes", seq("email"),
			"Policies", mapping("PasswordPolicy", mapping(
				"MinimumLength", 12,
				"RequireLowercase", true,
				"RequireUppercase", true,
				"RequireNumbers", true,
				"RequireSymbols", true,
			)),
			"UserPoolAddOns", mapping("AdvancedSecurityMode", "ENFORCED"),
		)
		if r.MFARequired() {
			m.add(props, "MfaConfiguration", str("ON"))
			m.add(props, "EnabledMfas", seq("SOFTWARE_TOKEN_MFA"))
		} else {
			m.add(props, "MfaConfiguration", str("OPTIONAL"))
		}
		m.resource(r.Name, "AWS::Cognito::UserPool", props)
		m.resource(r.Name+"Client", "AWS::Cognito::UserPoolClient", mapping(
			"UserPoolId", ref(r.Name),
			"GenerateSecret", false,
			"ExplicitAuthFlows", seq("ALLOW_USER_SRP_AUTH", "ALLOW_REFRESH_TOKEN_AUTH"),
		))
		// the client has no Arn attribute, so only the pool is exported
		m.output(r.Name+"Arn", "ARN of Cognito user pool "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeNotification: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::SNS::Topic", mapping(
			"TopicName", r.Slug,
			"DisplayName", r.Label,
			"KmsMasterKeyId", "alias/aws/sns",
		))
		m.output(r.Name+"Arn", "ARN of SNS topic "+r.Label, ref(r.Name))
	},
	graph.TypeEvents: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::Events::EventBus", mapping("Name", r.Slug))
		m.output(r.Name+"Arn", "ARN of event bus "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeStream: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::Kinesis::Stream", mapping(
			"Name", r.Slug,
			"ShardCount", 1,
			"RetentionPeriodHours", 24,
			"StreamEncryption", mapping("EncryptionType", "KMS", "KeyId", "alias/aws/kinesis"),
		))
		m.output(r.Name+"Arn", "ARN of Kinesis stream "+r.Label, getAtt(r.Name, "Arn"))
	},
	graph.TypeWorkflow: func(m cfnTemplate, r resource) {
		role := r.Name + "Role"
		m.resource(role, "AWS::IAM::Role", mapping(
			"AssumeRolePolicyDocument", mapping(
				"Version", "2012-10-17",
				"Statement", seq(mapping(
					"Effect", "Allow",
					"Principal", mapping("Service", "states.amazonaws.com"),
					"Action", "sts:AssumeRole",
				)),
			),
		))
		m.resource(r.Name, "AWS::StepFunctions::StateMachine", mapping(
			"StateMachineName", r.Slug,
			"RoleArn", getAtt(role, "Arn"),
			"Definition", mapping(
				"StartAt", "Start",
				"States", mapping("Start", mapping("Type", "Pass", "End", true)),
			),
			"TracingConfiguration", mapping("Enabled", true),
		))
		m.output(r.Name+"Arn", "ARN of state machine "+r.Label, ref(r.Name))
	},
	graph.TypeCDN: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::CloudFront::Distribution", mapping(
			"DistributionConfig", mapping(
				"Enabled", true,
				"Origins", seq(mapping(
					"Id", "primary",
					"DomainName", "TODO: Configure origin",
					"CustomOriginConfig", mapping("OriginProtocolPolicy", "https-only"),
				)),
				"DefaultCacheBehavior", mapping(
					"TargetOriginId", "primary",
					"ViewerProtocolPolicy", "redirect-to-https",
					"CachePolicyId", cachingOptimizedPolicy,
				),
			),
		))
		m.output(r.Name+"Domain", "Domain of distribution "+r.Label, getAtt(r.Name, "DomainName"))
	},
	graph.TypeCatalog: func(m cfnTemplate, r resource) {
		m.resource(r.Name, "AWS::Glue::Database", mapping(
			"CatalogId", ref("AWS::AccountId"),
			"DatabaseInput", mapping("Name", snake(r.Slug)),
		))
	},
}

// managed CachingOptimized policy
const cachingOptimizedPolicy = "658327ea-f89d-4fab-a63d-7e88639e58f6"

// cfnPolicies maps a lambda edge to the SAM policy template granting it.
var cfnPolicies = map[graph.ResourceType]func(target resource) *yaml.Node{
	graph.TypeDatabase: func(t resource) *yaml.Node {
		return mapping("DynamoDBCrudPolicy", mapping("TableName", ref(t.Name)))
	},
	graph.TypeStorage: func(t resource) *yaml.Node {
		return mapping("S3CrudPolicy", mapping("BucketName", ref(t.Name)))
	},
	graph.TypeQueue: func(t resource) *yaml.Node {
		return mapping("SQSSendMessagePolicy", mapping("QueueName", getAtt(t.Name, "QueueName")))
	},
	graph.TypeNotification: func(t resource) *yaml.Node {
		return mapping("SNSPublishMessagePolicy", mapping("TopicName", getAtt(t.Name, "TopicName")))
	},
}

// CloudFormation renders a SAM template.
type CloudFormation struct{}

func (CloudFormation) Name() string { return DialectCloudFormation }

func (c CloudFormation) Render(_ context.Context, g *graph.Graph) ([]File, error) {
	return single(c, CloudFormationPath, g)
}

func (CloudFormation) Generate(nodes []graph.Node, edges []graph.Edge) (string, error) {
	m := cfnTemplate{
		resources: mapping(),
		outputs:   mapping(),
		plan:      newPlan(nodes, cfnSupported, cfnNaming),
	}
	for _, r := range m.plan.resources {
		cfnResources[r.Kind](m, r)
	}
	m.wire(edges)

	doc := mapping(
		"AWSTemplateFormatVersion", "2010-09-09",
		"Transform", "AWS::Serverless-2016-10-31",
		"Description", "Scaffold AI generated architecture",
		"Resources", m.resources,
		"Outputs", m.outputs,
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// wire adds policies and API events to lambda functions for their edges.
func (m cfnTemplate) wire(edges []graph.Edge) {
	for _, l := range m.plan.links(edges) {
		switch {
		case l.From.Kind == graph.TypeLambda:
			policy, ok := cfnPolicies[l.To.Kind]
			if !ok {
				continue
			}
			props := m.properties(l.From.Name)
			policies := lookup(props, "Policies")
			policies.Content = append(policies.Content, policy(l.To))
		case l.From.Kind == graph.TypeAPI && l.To.Kind == graph.TypeLambda:
			props := m.properties(l.To.Name)
			events := lookup(props, "Events")
			if events == nil {
				events = mapping()
				m.add(props, "Events", events)
			}
			m.add(events, l.From.Name+"Any", mapping(
				"Type", "Api",
				"Properties", mapping(
					"RestApiId", ref(l.From.Name),
					"Path", "/{proxy+}",
					"Method", "ANY",
				),
			))
		}
	}
}

func (m cfnTemplate) properties(logicalID string) *yaml.Node {
	return lookup(lookup(m.resources, logicalID), "Properties")
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
