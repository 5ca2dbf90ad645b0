package codegen

import (
	"context"
	"sort"
	"strings"
	"text/template"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

const (
	pythonStackClass  = "ScaffoldAiStack"
	pythonStackModule = "scaffold_ai_stack"
)

// pythonImports lists the aws_cdk names each type pulls in.
var pythonImports = map[graph.ResourceType][]string{
	graph.TypeLambda:       {"Duration", "aws_lambda as _lambda"},
	graph.TypeAPI:          {"aws_apigateway as apigw"},
	graph.TypeDatabase:     {"RemovalPolicy", "aws_dynamodb as dynamodb"},
	graph.TypeStorage:      {"RemovalPolicy", "aws_s3 as s3"},
	graph.TypeQueue:        {"Duration", "aws_sqs as sqs"},
	graph.TypeAuth:         {"aws_cognito as cognito"},
	graph.TypeEvents:       {"aws_events as events"},
	graph.TypeNotification: {"aws_sns as sns"},
	graph.TypeStream:       {"Duration", "aws_kinesis as kinesis"},
	graph.TypeWorkflow:     {"Duration", "aws_stepfunctions as sfn"},
}

var pythonConstructs = map[graph.ResourceType]*template.Template{
	graph.TypeLambda: parse("py-lambda", `        [[.Name]] = _lambda.Function(
            self, [[printf "%q" .ID]],
            runtime=_lambda.Runtime.PYTHON_3_12,
            handler="index.handler",
            code=_lambda.Code.from_inline("def handler(event, context): return {'statusCode': 200}"),
            timeout=Duration.seconds(30),
            tracing=_lambda.Tracing.ACTIVE,
        )`),
	graph.TypeAPI: parse("py-api", `        [[.Name]] = apigw.RestApi(
            self, [[printf "%q" .ID]],
            rest_api_name=[[printf "%q" .Label]],
            deploy_options=apigw.StageOptions(stage_name="prod", tracing_enabled=True),
            default_cors_preflight_options=apigw.CorsOptions(
                allow_origins=apigw.Cors.ALL_ORIGINS,  # TODO: Configure allowed origins
                allow_methods=apigw.Cors.ALL_METHODS,
            ),
        )`),
	graph.TypeDatabase: parse("py-database", `        [[.Name]] = dynamodb.Table(
            self, [[printf "%q" .ID]],
            partition_key=dynamodb.Attribute(name="id", type=dynamodb.AttributeType.STRING),
            billing_mode=dynamodb.BillingMode.PAY_PER_REQUEST,
            encryption=dynamodb.TableEncryption.AWS_MANAGED,
            point_in_time_recovery=True,
            removal_policy=RemovalPolicy.DESTROY,
        )`),
	graph.TypeStorage: parse("py-storage", `        [[.Name]] = s3.Bucket(
            self, [[printf "%q" .ID]],
            encryption=[[if .KMS]]s3.BucketEncryption.KMS[[else]]s3.BucketEncryption.S3_MANAGED[[end]],
            block_public_access=s3.BlockPublicAccess.BLOCK_ALL,
            enforce_ssl=True,
            versioned=True,
            removal_policy=RemovalPolicy.DESTROY,
            auto_delete_objects=True,
        )`),
	graph.TypeQueue: parse("py-queue", `        [[.Name]]_dlq = sqs.Queue(
            self, [[printf "%q" (print .ID "Dlq")]],
            encryption=sqs.QueueEncryption.SQS_MANAGED,
            retention_period=Duration.days(14),
        )

        [[.Name]] = sqs.Queue(
            self, [[printf "%q" .ID]],
            encryption=[[if .KMS]]sqs.QueueEncryption.KMS_MANAGED[[else]]sqs.QueueEncryption.SQS_MANAGED[[end]],
            visibility_timeout=Duration.seconds(300),
            dead_letter_queue=sqs.DeadLetterQueue(queue=[[.Name]]_dlq, max_receive_count=3),
        )`),
	graph.TypeAuth: parse("py-auth", `        [[.Name]] = cognito.UserPool(
            self, [[printf "%q" .ID]],
            self_sign_up_enabled=True,
            sign_in_aliases=cognito.SignInAliases(email=True),
            password_policy=cognito.PasswordPolicy(
                min_length=12,
                require_lowercase=True,
                require_uppercase=True,
                require_digits=True,
                require_symbols=True,
            ),
            mfa=[[if .MFARequired]]cognito.Mfa.REQUIRED[[else]]cognito.Mfa.OPTIONAL[[end]],
            mfa_second_factor=cognito.MfaSecondFactor(sms=False, otp=True),
            advanced_security_mode=cognito.AdvancedSecurityMode.ENFORCED,
        )`),
	graph.TypeEvents: parse("py-events", `        [[.Name]] = events.EventBus(self, [[printf "%q" .ID]], event_bus_name=[[printf "%q" .Slug]])`),
	graph.TypeNotification: parse("py-notification", `        [[.Name]] = sns.Topic(self, [[printf "%q" .ID]], display_name=[[printf "%q" .Label]], enforce_ssl=True)`),
	graph.TypeStream: parse("py-stream", `        [[.Name]] = kinesis.Stream(
            self, [[printf "%q" .ID]],
            encryption=kinesis.StreamEncryption.MANAGED,
            retention_period=Duration.hours(24),
        )`),
	graph.TypeWorkflow: parse("py-workflow", `        [[.Name]] = sfn.StateMachine(
            self, [[printf "%q" .ID]],
            definition_body=sfn.DefinitionBody.from_chainable(sfn.Pass(self, [[printf "%q" (print .ID "Start")]])),
            timeout=Duration.minutes(5),
            tracing_enabled=True,
        )`),
}

var pythonWiring = map[wiring]*template.Template{
	{graph.TypeLambda, graph.TypeDatabase}:     parse("py-lambda-database", `        [[.To.Name]].grant_read_write_data([[.From.Name]])`),
	{graph.TypeLambda, graph.TypeStorage}:      parse("py-lambda-storage", `        [[.To.Name]].grant_read_write([[.From.Name]])`),
	{graph.TypeLambda, graph.TypeQueue}:        parse("py-lambda-queue", `        [[.To.Name]].grant_send_messages([[.From.Name]])`),
	{graph.TypeLambda, graph.TypeNotification}: parse("py-lambda-notification", `        [[.To.Name]].grant_publish([[.From.Name]])`),
	{graph.TypeAPI, graph.TypeLambda}:          parse("py-api-lambda", `        [[.From.Name]].root.add_method("ANY", apigw.LambdaIntegration([[.To.Name]]))`),
}

var pythonStack = parse("py-stack", `from aws_cdk import (
    Stack,
[[- range .Imports]]
    [[.]],
[[- end]]
)
from constructs import Construct


class [[.Class]](Stack):
    def __init__(self, scope: Construct, construct_id: str, **kwargs) -> None:
        super().__init__(scope, construct_id, **kwargs)
[[- range .Blocks]]

[[.]]
[[- end]]
`)

var pythonApp = parse("py-app", `#!/usr/bin/env python3
import aws_cdk as cdk

from [[.Module]] import [[.Class]]

app = cdk.App()
[[.Class]](app, "[[.Class]]")
app.synth()
`)

const pythonRequirements = `aws-cdk-lib>=2.100.0
constructs>=10.0.0
`

func pythonSupported(t graph.ResourceType) bool {
	_, ok := pythonConstructs[t]
	return ok
}

// PythonCDK renders a Python CDK app: stack module, app.py and requirements.txt.
type PythonCDK struct{}

func (PythonCDK) Name() string { return DialectPythonCDK }

func (p PythonCDK) Render(_ context.Context, g *graph.Graph) ([]File, error) {
	if g == nil {
		g = graph.New()
	}
	stack, err := p.Generate(g.Nodes, g.Edges)
	if err != nil {
		return nil, err
	}
	app, err := execute(pythonApp, struct{ Module, Class string }{pythonStackModule, pythonStackClass})
	if err != nil {
		return nil, err
	}
	return []File{
		{Path: pythonDir + "/" + pythonStackModule + ".py", Content: stack},
		{Path: pythonDir + "/app.py", Content: app},
		{Path: pythonDir + "/requirements.txt", Content: pythonRequirements},
	}, nil
}

// Generate renders the stack module only.
func (PythonCDK) Generate(nodes []graph.Node, edges []graph.Edge) (string, error) {
	p := newPlan(nodes, pythonSupported, pyNaming)

	seen := map[string]bool{}
	var imports []string
	for _, r := range p.resources {
		for _, imp := range pythonImports[r.Kind] {
			if !seen[imp] {
				seen[imp] = true
				imports = append(imports, imp)
			}
		}
	}
	sort.Strings(imports)

	var blocks []string
	for _, r := range p.resources {
		block, err := execute(pythonConstructs[r.Kind], r)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}

	var wires []string
	for _, l := range p.links(edges) {
		if tmpl, ok := pythonWiring[wiring{l.From.Kind, l.To.Kind}]; ok {
			line, err := execute(tmpl, l)
			if err != nil {
				return "", err
			}
			wires = append(wires, line)
		}
	}
	if len(wires) > 0 {
		blocks = append(blocks, strings.Join(wires, "\n"))
	}

	return execute(pythonStack, struct {
		Class   string
		Imports []string
		Blocks  []string
	}{pythonStackClass, imports, blocks})
}
