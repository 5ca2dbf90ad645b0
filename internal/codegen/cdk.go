package codegen

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// CDKStackClass is the class name of the unified TypeScript stack.
const CDKStackClass = "ScaffoldAiStack"

// CDKStackPath is where the unified stack is written.
const CDKStackPath = infraDir + "/lib/scaffold-ai-stack.ts"

func parse(name, src string) *template.Template {
	return template.Must(template.New(name).Delims("[[", "]]").Parse(src))
}

var cdkImports = map[graph.ResourceType][]string{
	graph.TypeLambda:       {"import * as lambda from 'aws-cdk-lib/aws-lambda';"},
	graph.TypeAPI:          {"import * as apigateway from 'aws-cdk-lib/aws-apigateway';"},
	graph.TypeDatabase:     {"import * as dynamodb from 'aws-cdk-lib/aws-dynamodb';"},
	graph.TypeStorage:      {"import * as s3 from 'aws-cdk-lib/aws-s3';"},
	graph.TypeQueue:        {"import * as sqs from 'aws-cdk-lib/aws-sqs';"},
	graph.TypeAuth:         {"import * as cognito from 'aws-cdk-lib/aws-cognito';"},
	graph.TypeCDN:          {"import * as cloudfront from 'aws-cdk-lib/aws-cloudfront';", "import * as origins from 'aws-cdk-lib/aws-cloudfront-origins';"},
	graph.TypeFrontend:     {"import * as s3 from 'aws-cdk-lib/aws-s3';", "import * as cloudfront from 'aws-cdk-lib/aws-cloudfront';", "import * as origins from 'aws-cdk-lib/aws-cloudfront-origins';"},
	graph.TypeEvents:       {"import * as events from 'aws-cdk-lib/aws-events';"},
	graph.TypeNotification: {"import * as sns from 'aws-cdk-lib/aws-sns';"},
	graph.TypeWorkflow:     {"import * as sfn from 'aws-cdk-lib/aws-stepfunctions';"},
	graph.TypeStream:       {"import * as kinesis from 'aws-cdk-lib/aws-kinesis';"},
	graph.TypeCatalog:      {"import * as glue from 'aws-cdk-lib/aws-glue';"},
}

var cdkConstructs = map[graph.ResourceType]*template.Template{
	graph.TypeLambda: parse("lambda", `    const [[.Name]] = new lambda.Function(this, '[[js .ID]]', {
      runtime: lambda.Runtime.PYTHON_3_12,
      handler: 'index.handler',
      code: lambda.Code.fromInline('def handler(event, context): return {"statusCode": 200}'),
      timeout: cdk.Duration.seconds(30),
      tracing: lambda.Tracing.ACTIVE,
      environment: {
        LOG_LEVEL: 'INFO',
      },
    });`),

	graph.TypeAPI: parse("api", `    const [[.Name]] = new apigateway.RestApi(this, '[[js .ID]]', {
      restApiName: '[[js .Label]]',
      deployOptions: {
        stageName: 'prod',
        tracingEnabled: true,
        loggingLevel: apigateway.MethodLoggingLevel.INFO,
      },
      defaultCorsPreflightOptions: {
        allowOrigins: apigateway.Cors.ALL_ORIGINS, // TODO: Configure allowed origins
        allowMethods: apigateway.Cors.ALL_METHODS,
      },
    });`),

	graph.TypeDatabase: parse("database", `    const [[.Name]] = new dynamodb.Table(this, '[[js .ID]]', {
      partitionKey: { name: 'id', type: dynamodb.AttributeType.STRING },
      billingMode: dynamodb.BillingMode.PAY_PER_REQUEST,
      encryption: dynamodb.TableEncryption.AWS_MANAGED,
      pointInTimeRecovery: true,
      removalPolicy: cdk.RemovalPolicy.DESTROY,
    });`),

	graph.TypeStorage: parse("storage", `    const [[.Name]] = new s3.Bucket(this, '[[js .ID]]', {
      encryption: [[if .KMS]]s3.BucketEncryption.KMS,
      bucketKeyEnabled: true[[else]]s3.BucketEncryption.S3_MANAGED[[end]],
      blockPublicAccess: s3.BlockPublicAccess.BLOCK_ALL,
      enforceSSL: true,
      versioned: true,
      removalPolicy: cdk.RemovalPolicy.DESTROY,
      autoDeleteObjects: true,
    });`),

	graph.TypeQueue: parse("queue", `    const [[.Name]]Dlq = new sqs.Queue(this, '[[js .ID]]Dlq', {
      encryption: sqs.QueueEncryption.SQS_MANAGED,
      retentionPeriod: cdk.Duration.days(14),
    });

    const [[.Name]] = new sqs.Queue(this, '[[js .ID]]', {
      encryption: [[if .KMS]]sqs.QueueEncryption.KMS_MANAGED[[else]]sqs.QueueEncryption.SQS_MANAGED[[end]],
      visibilityTimeout: cdk.Duration.seconds(300),
      deadLetterQueue: {
        queue: [[.Name]]Dlq,
        maxReceiveCount: 3,
      },
    });`),

	graph.TypeAuth: parse("auth", `    const [[.Name]] = new cognito.UserPool(this, '[[js .ID]]', {
      selfSignUpEnabled: true,
      signInAliases: { email: true },
      passwordPolicy: {
        minLength: 12,
        requireLowercase: true,
        requireUppercase: true,
        requireDigits: true,
        requireSymbols: true,
      },
      mfa: [[if .MFARequired]]cognito.Mfa.REQUIRED[[else]]cognito.Mfa.OPTIONAL[[end]],
      mfaSecondFactor: { sms: false, otp: true },
      advancedSecurityMode: cognito.AdvancedSecurityMode.ENFORCED,
      accountRecovery: cognito.AccountRecovery.EMAIL_ONLY,
    });

    const [[.Name]]Client = [[.Name]].addClient('[[js .ID]]Client', {
      authFlows: { userSrp: true },
    });`),

	graph.TypeCDN: parse("cdn", `    const [[.Name]] = new cloudfront.Distribution(this, '[[js .ID]]', {
      defaultBehavior: {
        origin: new origins.HttpOrigin('TODO: Configure origin'),
        viewerProtocolPolicy: cloudfront.ViewerProtocolPolicy.REDIRECT_TO_HTTPS,
        cachePolicy: cloudfront.CachePolicy.CACHING_OPTIMIZED,
      },
    });`),

	graph.TypeFrontend: parse("frontend", `    const [[.Name]]Bucket = new s3.Bucket(this, '[[js .ID]]Bucket', {
      encryption: s3.BucketEncryption.S3_MANAGED,
      blockPublicAccess: s3.BlockPublicAccess.BLOCK_ALL,
      enforceSSL: true,
      versioned: true,
      removalPolicy: cdk.RemovalPolicy.DESTROY,
      autoDeleteObjects: true,
    });

    const [[.Name]] = new cloudfront.Distribution(this, '[[js .ID]]', {
      defaultBehavior: {
        origin: origins.S3BucketOrigin.withOriginAccessControl([[.Name]]Bucket),
        viewerProtocolPolicy: cloudfront.ViewerProtocolPolicy.REDIRECT_TO_HTTPS,
      },
      defaultRootObject: 'index.html',
    });`),

	graph.TypeEvents: parse("events", `    const [[.Name]] = new events.EventBus(this, '[[js .ID]]', {
      eventBusName: '[[.Slug]]',
    });`),

	graph.TypeNotification: parse("notification", `    const [[.Name]] = new sns.Topic(this, '[[js .ID]]', {
      displayName: '[[js .Label]]',
      enforceSSL: true,
    });`),

	graph.TypeWorkflow: parse("workflow", `    const [[.Name]] = new sfn.StateMachine(this, '[[js .ID]]', {
      definitionBody: sfn.DefinitionBody.fromChainable(new sfn.Pass(this, '[[js .ID]]Start')),
      timeout: cdk.Duration.minutes(5),
      tracingEnabled: true,
    });`),

	graph.TypeStream: parse("stream", `    const [[.Name]] = new kinesis.Stream(this, '[[js .ID]]', {
      encryption: kinesis.StreamEncryption.MANAGED,
      retentionPeriod: cdk.Duration.hours(24),
    });`),

	graph.TypeCatalog: parse("catalog", `    const [[.Name]] = new glue.CfnDatabase(this, '[[js .ID]]', {
      catalogId: this.account,
      databaseInput: { name: '[[.Snake]]' },
    });`),
}

var cdkWiring = map[wiring]*template.Template{
	{graph.TypeLambda, graph.TypeDatabase}:     parse("lambda-database", `    [[.To.Name]].grantReadWriteData([[.From.Name]]);`),
	{graph.TypeLambda, graph.TypeStorage}:      parse("lambda-storage", `    [[.To.Name]].grantReadWrite([[.From.Name]]);`),
	{graph.TypeLambda, graph.TypeQueue}:        parse("lambda-queue", `    [[.To.Name]].grantSendMessages([[.From.Name]]);`),
	{graph.TypeLambda, graph.TypeNotification}: parse("lambda-notification", `    [[.To.Name]].grantPublish([[.From.Name]]);`),
	{graph.TypeAPI, graph.TypeLambda}:          parse("api-lambda", `    [[.From.Name]].root.addMethod('ANY', new apigateway.LambdaIntegration([[.To.Name]]));`),
}

var cdkOutputs = map[graph.ResourceType]*template.Template{
	graph.TypeAPI:      parse("api-out", `    new cdk.CfnOutput(this, '[[.Name]]Url', { value: [[.Name]].url });`),
	graph.TypeDatabase: parse("database-out", `    new cdk.CfnOutput(this, '[[.Name]]TableName', { value: [[.Name]].tableName });`),
	graph.TypeStorage:  parse("storage-out", `    new cdk.CfnOutput(this, '[[.Name]]BucketName', { value: [[.Name]].bucketName });`),
	graph.TypeAuth:     parse("auth-out", `    new cdk.CfnOutput(this, '[[.Name]]UserPoolId', { value: [[.Name]].userPoolId });`),
}

const cdkStack = `import * as cdk from 'aws-cdk-lib';
import { Construct } from 'constructs';
[[- range .Imports]]
[[.]]
[[- end]]

export class [[.Class]] extends [[.Base]] {
  constructor(scope: Construct, id: string, props?: [[.Props]]) {
    super(scope, id, props);
[[- range .Blocks]]

[[.]]
[[- end]]
  }
}
`

var cdkStackTemplate = parse("stack", cdkStack)

type cdkStackData struct {
	Class   string
	Base    string
	Props   string
	Imports []string
	Blocks  []string
}

func cdkSupported(t graph.ResourceType) bool {
	_, ok := cdkConstructs[t]
	return ok
}

// CDK renders the whole graph as one TypeScript stack.
type CDK struct{}

func (CDK) Name() string { return DialectCDK }

func (c CDK) Render(_ context.Context, g *graph.Graph) ([]File, error) {
	return single(c, CDKStackPath, g)
}

func (CDK) Generate(nodes []graph.Node, edges []graph.Edge) (string, error) {
	return renderCDKStack(cdkStackData{
		Class: CDKStackClass,
		Base:  "cdk.Stack",
		Props: "cdk.StackProps",
	}, nodes, edges)
}

// renderCDKStack fills data with the constructs, wiring and outputs of nodes.
func renderCDKStack(data cdkStackData, nodes []graph.Node, edges []graph.Edge) (string, error) {
	p := newPlan(nodes, cdkSupported, tsNaming)

	seen := map[string]bool{}
	for _, r := range p.resources {
		for _, imp := range cdkImports[r.Kind] {
			if !seen[imp] {
				seen[imp] = true
				data.Imports = append(data.Imports, imp)
			}
		}
	}
	sort.Strings(data.Imports)

	for _, r := range p.resources {
		block, err := execute(cdkConstructs[r.Kind], cdkResource{r})
		if err != nil {
			return "", err
		}
		data.Blocks = append(data.Blocks, block)
	}

	var wires []string
	for _, l := range p.links(edges) {
		tmpl, ok := cdkWiring[wiring{l.From.Kind, l.To.Kind}]
		if !ok {
			continue
		}
		line, err := execute(tmpl, l)
		if err != nil {
			return "", err
		}
		wires = append(wires, line)
	}
	if len(wires) > 0 {
		data.Blocks = append(data.Blocks, strings.Join(wires, "\n"))
	}

	var outputs []string
	for _, r := range p.resources {
		if tmpl, ok := cdkOutputs[r.Kind]; ok {
			line, err := execute(tmpl, r)
			if err != nil {
				return "", err
			}
			outputs = append(outputs, line)
		}
	}
	if len(outputs) > 0 {
		data.Blocks = append(data.Blocks, strings.Join(outputs, "\n"))
	}

	return execute(cdkStackTemplate, data)
}

// cdkResource adds the names only the TypeScript templates need.
type cdkResource struct {
	resource
}

func (r cdkResource) Snake() string { return snake(r.Slug) }

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
