package codegen

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// TerraformPath is where the HCL configuration is written.
const TerraformPath = infraDir + "/terraform/main.tf"

// DefaultRegion seeds the aws_region variable.
const DefaultRegion = "us-east-1"

func traversal(root string, attrs ...string) hcl.Traversal {
	t := hcl.Traversal{hcl.TraverseRoot{Name: root}}
	for _, a := range attrs {
		t = append(t, hcl.TraverseAttr{Name: a})
	}
	return t
}

// interpolate builds "prefix${ref}suffix".
func interpolate(prefix string, ref hcl.Traversal, suffix string) hclwrite.Tokens {
	toks := hclwrite.Tokens{
		{Type: hclsyntax.TokenOQuote, Bytes: []byte(`"`)},
	}
	if prefix != "" {
		toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenQuotedLit, Bytes: []byte(prefix)})
	}
	toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenTemplateInterp, Bytes: []byte("${")})
	toks = append(toks, hclwrite.TokensForTraversal(ref)...)
	toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenTemplateSeqEnd, Bytes: []byte("}")})
	if suffix != "" {
		toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenQuotedLit, Bytes: []byte(suffix)})
	}
	return append(toks, &hclwrite.Token{Type: hclsyntax.TokenCQuote, Bytes: []byte(`"`)})
}

func jsonencode(v hclwrite.Tokens) hclwrite.Tokens {
	return hclwrite.TokensForFunctionCall("jsonencode", v)
}

func strings2cty(ss ...string) cty.Value {
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

func attr(name string, value hclwrite.Tokens) hclwrite.ObjectAttrTokens {
	return hclwrite.ObjectAttrTokens{Name: hclwrite.TokensForIdentifier(name), Value: value}
}

// policyDocument is an IAM policy with one Allow statement on resource.
func policyDocument(actions []string, resource hclwrite.Tokens) hclwrite.Tokens {
	statement := hclwrite.TokensForObject([]hclwrite.ObjectAttrTokens{
		attr("Effect", hclwrite.TokensForValue(cty.StringVal("Allow"))),
		attr("Action", hclwrite.TokensForValue(strings2cty(actions...))),
		attr("Resource", resource),
	})
	return jsonencode(hclwrite.TokensForObject([]hclwrite.ObjectAttrTokens{
		attr("Version", hclwrite.TokensForValue(cty.StringVal("2012-10-17"))),
		attr("Statement", hclwrite.TokensForTuple([]hclwrite.Tokens{statement})),
	}))
}

func assumeRolePolicy(service string) hclwrite.Tokens {
	return jsonencode(hclwrite.TokensForValue(cty.ObjectVal(map[string]cty.Value{
		"Version": cty.StringVal("2012-10-17"),
		"Statement": cty.TupleVal([]cty.Value{cty.ObjectVal(map[string]cty.Value{
			"Action":    cty.StringVal("sts:AssumeRole"),
			"Effect":    cty.StringVal("Allow"),
			"Principal": cty.ObjectVal(map[string]cty.Value{"Service": cty.StringVal(service)}),
		})}),
	})))
}

type tfFile struct {
	body *hclwrite.Body
	plan plan
}

func (f tfFile) resource(typ, name string) *hclwrite.Body {
	f.body.AppendNewline()
	return f.body.AppendNewBlock("resource", []string{typ, name}).Body()
}

func (f tfFile) output(name, description string, value hcl.Traversal) {
	f.body.AppendNewline()
	out := f.body.AppendNewBlock("output", []string{name}).Body()
	out.SetAttributeTraversal("value", value)
	out.SetAttributeValue("description", cty.StringVal(description))
}

func tags(b *hclwrite.Body, label string) {
	b.SetAttributeValue("tags", cty.ObjectVal(map[string]cty.Value{"Name": cty.StringVal(label)}))
}

func (f tfFile) role(name, service string) {
	role := f.resource("aws_iam_role", name+"_role")
	role.SetAttributeValue("name", cty.StringVal(strings.ReplaceAll(name, "_", "-")+"-role"))
	role.SetAttributeRaw("assume_role_policy", assumeRolePolicy(service))
}

type tfBuilder func(f tfFile, r resource)

var tfResources = map[graph.ResourceType]tfBuilder{
	graph.TypeLambda: func(f tfFile, r resource) {
		fn := f.resource("aws_lambda_function", r.Name)
		fn.SetAttributeValue("function_name", cty.StringVal(r.Slug))
		fn.SetAttributeValue("runtime", cty.StringVal("python3.12"))
		fn.SetAttributeValue("handler", cty.StringVal("index.handler"))
		fn.SetAttributeValue("filename", cty.StringVal("function.zip"))
		fn.SetAttributeValue("timeout", cty.NumberIntVal(30))
		fn.SetAttributeTraversal("role", traversal("aws_iam_role", r.Name+"_role", "arn"))
		env := fn.AppendNewBlock("environment", nil).Body()
		env.SetAttributeValue("variables", cty.ObjectVal(map[string]cty.Value{
			"POWERTOOLS_SERVICE_NAME": cty.StringVal(r.Label),
		}))
		fn.AppendNewBlock("tracing_config", nil).Body().SetAttributeValue("mode", cty.StringVal("Active"))

		f.role(r.Name, "lambda.amazonaws.com")
		basic := f.resource("aws_iam_role_policy_attachment", r.Name+"_basic")
		basic.SetAttributeTraversal("role", traversal("aws_iam_role", r.Name+"_role", "name"))
		basic.SetAttributeValue("policy_arn", cty.StringVal("arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"))

		f.output(r.Name+"_arn", "ARN of Lambda function", traversal("aws_lambda_function", r.Name, "arn"))
	},
	graph.TypeAPI: func(f tfFile, r resource) {
		api := f.resource("aws_apigatewayv2_api", r.Name)
		api.SetAttributeValue("name", cty.StringVal(r.Slug))
		api.SetAttributeValue("protocol_type", cty.StringVal("HTTP"))
		api.SetAttributeValue("description", cty.StringVal(r.Label))
		cors := api.AppendNewBlock("cors_configuration", nil).Body()
		cors.SetAttributeValue("allow_origins", strings2cty("TODO: Configure origin"))
		cors.SetAttributeValue("allow_methods", strings2cty("GET", "POST", "PUT", "DELETE"))

		logs := f.resource("aws_cloudwatch_log_group", r.Name+"_logs")
		logs.SetAttributeValue("name", cty.StringVal("/aws/apigateway/"+r.Slug))
		logs.SetAttributeValue("retention_in_days", cty.NumberIntVal(30))

		stage := f.resource("aws_apigatewayv2_stage", r.Name+"_stage")
		stage.SetAttributeTraversal("api_id", traversal("aws_apigatewayv2_api", r.Name, "id"))
		stage.SetAttributeValue("name", cty.StringVal("prod"))
		stage.SetAttributeValue("auto_deploy", cty.True)
		access := stage.AppendNewBlock("access_log_settings", nil).Body()
		access.SetAttributeTraversal("destination_arn", traversal("aws_cloudwatch_log_group", r.Name+"_logs", "arn"))
		access.SetAttributeRaw("format", jsonencode(hclwrite.TokensForValue(cty.ObjectVal(map[string]cty.Value{
			"requestId": cty.StringVal("$context.requestId"),
			"status":    cty.StringVal("$context.status"),
			"routeKey":  cty.StringVal("$context.routeKey"),
		}))))
		throttle := stage.AppendNewBlock("default_route_settings", nil).Body()
		throttle.SetAttributeValue("throttling_burst_limit", cty.NumberIntVal(100))
		throttle.SetAttributeValue("throttling_rate_limit", cty.NumberIntVal(50))

		f.output(r.Name+"_endpoint", "Invoke URL of HTTP API", traversal("aws_apigatewayv2_api", r.Name, "api_endpoint"))
	},
	graph.TypeDatabase: func(f tfFile, r resource) {
		t := f.resource("aws_dynamodb_table", r.Name)
		t.SetAttributeValue("name", cty.StringVal(r.Slug))
		t.SetAttributeValue("billing_mode", cty.StringVal("PAY_PER_REQUEST"))
		t.SetAttributeValue("hash_key", cty.StringVal("id"))
		key := t.AppendNewBlock("attribute", nil).Body()
		key.SetAttributeValue("name", cty.StringVal("id"))
		key.SetAttributeValue("type", cty.StringVal("S"))
		t.AppendNewBlock("point_in_time_recovery", nil).Body().SetAttributeValue("enabled", cty.True)
		t.AppendNewBlock("server_side_encryption", nil).Body().SetAttributeValue("enabled", cty.True)
		tags(t, r.Label)

		f.output(r.Name+"_arn", "ARN of DynamoDB table", traversal("aws_dynamodb_table", r.Name, "arn"))
	},
	graph.TypeStorage: func(f tfFile, r resource) {
		bucket := f.resource("aws_s3_bucket", r.Name)
		bucket.SetAttributeValue("bucket", cty.StringVal(r.Slug))
		tags(bucket, r.Label)
		id := traversal("aws_s3_bucket", r.Name, "id")

		versioning := f.resource("aws_s3_bucket_versioning", r.Name+"_versioning")
		versioning.SetAttributeTraversal("bucket", id)
		versioning.AppendNewBlock("versioning_configuration", nil).Body().SetAttributeValue("status", cty.StringVal("Enabled"))

		algorithm := "AES256"
		if r.KMS() {
			algorithm = "aws:kms"
		}
		enc := f.resource("aws_s3_bucket_server_side_encryption_configuration", r.Name+"_encryption")
		enc.SetAttributeTraversal("bucket", id)
		enc.AppendNewBlock("rule", nil).Body().
			AppendNewBlock("apply_server_side_encryption_by_default", nil).Body().
			SetAttributeValue("sse_algorithm", cty.StringVal(algorithm))

		pab := f.resource("aws_s3_bucket_public_access_block", r.Name+"_public_access")
		pab.SetAttributeTraversal("bucket", id)
		for _, k := range []string{"block_public_acls", "block_public_policy", "ignore_public_acls", "restrict_public_buckets"} {
			pab.SetAttributeValue(k, cty.True)
		}

		f.output(r.Name+"_arn", "ARN of S3 bucket", traversal("aws_s3_bucket", r.Name, "arn"))
	},
	graph.TypeQueue: func(f tfFile, r resource) {
		dlq := f.resource("aws_sqs_queue", r.Name+"_dlq")
		dlq.SetAttributeValue("name", cty.StringVal(r.Slug+"-dlq"))
		dlq.SetAttributeValue("message_retention_seconds", cty.NumberIntVal(1209600))
		dlq.SetAttributeValue("sqs_managed_sse_enabled", cty.True)

		q := f.resource("aws_sqs_queue", r.Name)
		q.SetAttributeValue("name", cty.StringVal(r.Slug))
		q.SetAttributeValue("visibility_timeout_seconds", cty.NumberIntVal(300))
		if r.KMS() {
			q.SetAttributeValue("kms_master_key_id", cty.StringVal("alias/aws/sqs"))
		} else {
			q.SetAttributeValue("sqs_managed_sse_enabled", cty.True)
		}
		q.SetAttributeRaw("redrive_policy", jsonencode(hclwrite.TokensForObject([]hclwrite.ObjectAttrTokens{
			attr("deadLetterTargetArn", hclwrite.TokensForTraversal(traversal("aws_sqs_queue", r.Name+"_dlq", "arn"))),
			attr("maxReceiveCount", hclwrite.TokensForValue(cty.NumberIntVal(3))),
		})))
		tags(q, r.Label)

		f.output(r.Name+"_arn", "ARN of SQS queue", traversal("aws_sqs_queue", r.Name, "arn"))
	},
	graph.TypeAuth: func(f tfFile, r resource) {
		pool := f.resource("aws_cognito_user_pool", r.Name)
		pool.SetAttributeValue("name", cty.StringVal(r.Slug))
		if r.MFARequired() {
			pool.SetAttributeValue("mfa_configuration", cty.StringVal("ON"))
			pool.AppendNewBlock("software_token_mfa_configuration", nil).Body().SetAttributeValue("enabled", cty.True)
		} else {
			pool.SetAttributeValue("mfa_configuration", cty.StringVal("OPTIONAL"))
		}
		pw := pool.AppendNewBlock("password_policy", nil).Body()
		pw.SetAttributeValue("minimum_length", cty.NumberIntVal(12))
		for _, k := range []string{"require_lowercase", "require_uppercase", "require_numbers", "require_symbols"} {
			pw.SetAttributeValue(k, cty.True)
		}
		pool.AppendNewBlock("user_pool_add_ons", nil).Body().SetAttributeValue("advanced_security_mode", cty.StringVal("ENFORCED"))

		client := f.resource("aws_cognito_user_pool_client", r.Name+"_client")
		client.SetAttributeValue("name", cty.StringVal(r.Slug+"-client"))
		client.SetAttributeTraversal("user_pool_id", traversal("aws_cognito_user_pool", r.Name, "id"))
		client.SetAttributeValue("generate_secret", cty.False)

		f.output(r.Name+"_arn", "ARN of Cognito user pool", traversal("aws_cognito_user_pool", r.Name, "arn"))
	},
	graph.TypeNotification: func(f tfFile, r resource) {
		topic := f.resource("aws_sns_topic", r.Name)
		topic.SetAttributeValue("name", cty.StringVal(r.Slug))
		topic.SetAttributeValue("kms_master_key_id", cty.StringVal("alias/aws/sns"))
		f.output(r.Name+"_arn", "ARN of SNS topic", traversal("aws_sns_topic", r.Name, "arn"))
	},
	graph.TypeEvents: func(f tfFile, r resource) {
		bus := f.resource("aws_cloudwatch_event_bus", r.Name)
		bus.SetAttributeValue("name", cty.StringVal(r.Slug))
		f.output(r.Name+"_arn", "ARN of event bus", traversal("aws_cloudwatch_event_bus", r.Name, "arn"))
	},
	graph.TypeStream: func(f tfFile, r resource) {
		s := f.resource("aws_kinesis_stream", r.Name)
		s.SetAttributeValue("name", cty.StringVal(r.Slug))
		s.SetAttributeValue("shard_count", cty.NumberIntVal(1))
		s.SetAttributeValue("retention_period", cty.NumberIntVal(24))
		s.SetAttributeValue("encryption_type", cty.StringVal("KMS"))
		s.SetAttributeValue("kms_key_id", cty.StringVal("alias/aws/kinesis"))
		f.output(r.Name+"_arn", "ARN of Kinesis stream", traversal("aws_kinesis_stream", r.Name, "arn"))
	},
	graph.TypeWorkflow: func(f tfFile, r resource) {
		f.role(r.Name, "states.amazonaws.com")
		sm := f.resource("aws_sfn_state_machine", r.Name)
		sm.SetAttributeValue("name", cty.StringVal(r.Slug))
		sm.SetAttributeTraversal("role_arn", traversal("aws_iam_role", r.Name+"_role", "arn"))
		sm.SetAttributeRaw("definition", jsonencode(hclwrite.TokensForValue(cty.ObjectVal(map[string]cty.Value{
			"StartAt": cty.StringVal("Start"),
			"States": cty.ObjectVal(map[string]cty.Value{
				"Start": cty.ObjectVal(map[string]cty.Value{"Type": cty.StringVal("Pass"), "End": cty.True}),
			}),
		}))))
		sm.AppendNewBlock("tracing_configuration", nil).Body().SetAttributeValue("enabled", cty.True)
		f.output(r.Name+"_arn", "ARN of state machine", traversal("aws_sfn_state_machine", r.Name, "arn"))
	},
	graph.TypeCDN: func(f tfFile, r resource) {
		d := f.resource("aws_cloudfront_distribution", r.Name)
		d.SetAttributeValue("enabled", cty.True)
		origin := d.AppendNewBlock("origin", nil).Body()
		origin.SetAttributeValue("domain_name", cty.StringVal("TODO: Configure origin"))
		origin.SetAttributeValue("origin_id", cty.StringVal("primary"))
		custom := origin.AppendNewBlock("custom_origin_config", nil).Body()
		custom.SetAttributeValue("http_port", cty.NumberIntVal(80))
		custom.SetAttributeValue("https_port", cty.NumberIntVal(443))
		custom.SetAttributeValue("origin_protocol_policy", cty.StringVal("https-only"))
		custom.SetAttributeValue("origin_ssl_protocols", strings2cty("TLSv1.2"))
		behavior := d.AppendNewBlock("default_cache_behavior", nil).Body()
		behavior.SetAttributeValue("target_origin_id", cty.StringVal("primary"))
		behavior.SetAttributeValue("viewer_protocol_policy", cty.StringVal("redirect-to-https"))
		behavior.SetAttributeValue("allowed_methods", strings2cty("GET", "HEAD"))
		behavior.SetAttributeValue("cached_methods", strings2cty("GET", "HEAD"))
		behavior.SetAttributeValue("cache_policy_id", cty.StringVal(cachingOptimizedPolicy))
		d.AppendNewBlock("restrictions", nil).Body().
			AppendNewBlock("geo_restriction", nil).Body().
			SetAttributeValue("restriction_type", cty.StringVal("none"))
		d.AppendNewBlock("viewer_certificate", nil).Body().SetAttributeValue("cloudfront_default_certificate", cty.True)
		f.output(r.Name+"_arn", "ARN of CloudFront distribution", traversal("aws_cloudfront_distribution", r.Name, "arn"))
	},
	graph.TypeCatalog: func(f tfFile, r resource) {
		db := f.resource("aws_glue_catalog_database", r.Name)
		db.SetAttributeValue("name", cty.StringVal(snake(r.Slug)))
	},
}

// tfGrants lists the actions a lambda role needs on an edge target, and
// the resource type holding the target's arn.
var tfGrants = map[graph.ResourceType]struct {
	resourceType string
	actions      []string
}{
	graph.TypeDatabase:     {"aws_dynamodb_table", []string{"dynamodb:GetItem", "dynamodb:PutItem", "dynamodb:UpdateItem", "dynamodb:DeleteItem", "dynamodb:Query"}},
	graph.TypeStorage:      {"aws_s3_bucket", []string{"s3:GetObject", "s3:PutObject", "s3:DeleteObject"}},
	graph.TypeQueue:        {"aws_sqs_queue", []string{"sqs:SendMessage"}},
	graph.TypeNotification: {"aws_sns_topic", []string{"sns:Publish"}},
}

func (f tfFile) wire(edges []graph.Edge) {
	for _, l := range f.plan.links(edges) {
		from, to := l.From, l.To
		switch {
		case from.Kind == graph.TypeLambda:
			grant, ok := tfGrants[to.Kind]
			if !ok {
				continue
			}
			arn := traversal(grant.resourceType, to.Name, "arn")
			target := hclwrite.TokensForTraversal(arn)
			if to.Kind == graph.TypeStorage {
				target = interpolate("", arn, "/*")
			}
			p := f.resource("aws_iam_role_policy", from.Name+"_to_"+to.Name)
			p.SetAttributeTraversal("role", traversal("aws_iam_role", from.Name+"_role", "id"))
			p.SetAttributeRaw("policy", policyDocument(grant.actions, target))
		case from.Kind == graph.TypeAPI && to.Kind == graph.TypeLambda:
			integration := from.Name + "_" + to.Name
			i := f.resource("aws_apigatewayv2_integration", integration)
			i.SetAttributeTraversal("api_id", traversal("aws_apigatewayv2_api", from.Name, "id"))
			i.SetAttributeValue("integration_type", cty.StringVal("AWS_PROXY"))
			i.SetAttributeTraversal("integration_uri", traversal("aws_lambda_function", to.Name, "invoke_arn"))

			route := f.resource("aws_apigatewayv2_route", integration)
			route.SetAttributeTraversal("api_id", traversal("aws_apigatewayv2_api", from.Name, "id"))
			route.SetAttributeValue("route_key", cty.StringVal("ANY /{proxy+}"))
			route.SetAttributeRaw("target", interpolate("integrations/", traversal("aws_apigatewayv2_integration", integration, "id"), ""))

			perm := f.resource("aws_lambda_permission", integration)
			perm.SetAttributeValue("statement_id", cty.StringVal("AllowAPIGatewayInvoke"))
			perm.SetAttributeValue("action", cty.StringVal("lambda:InvokeFunction"))
			perm.SetAttributeTraversal("function_name", traversal("aws_lambda_function", to.Name, "function_name"))
			perm.SetAttributeValue("principal", cty.StringVal("apigateway.amazonaws.com"))
			perm.SetAttributeRaw("source_arn", interpolate("", traversal("aws_apigatewayv2_api", from.Name, "execution_arn"), "/*/*"))
		}
	}
}

func tfSupported(t graph.ResourceType) bool {
	_, ok := tfResources[t]
	return ok
}

// Terraform renders an HCL configuration for the AWS provider.
type Terraform struct {
	// Region is the default of the aws_region variable.
	Region string
}

func (Terraform) Name() string { return DialectTerraform }

func (t Terraform) Render(_ context.Context, g *graph.Graph) ([]File, error) {
	return single(t, TerraformPath, g)
}

func (t Terraform) Generate(nodes []graph.Node, edges []graph.Edge) (string, error) {
	region := t.Region
	if region == "" {
		region = DefaultRegion
	}

	hf := hclwrite.NewEmptyFile()
	root := hf.Body()

	tf := root.AppendNewBlock("terraform", nil).Body()
	tf.SetAttributeValue("required_version", cty.StringVal(">= 1.0"))
	tf.AppendNewBlock("required_providers", nil).Body().SetAttributeValue("aws", cty.ObjectVal(map[string]cty.Value{
		"source":  cty.StringVal("hashicorp/aws"),
		"version": cty.StringVal("~> 5.0"),
	}))

	root.AppendNewline()
	root.AppendNewBlock("provider", []string{"aws"}).Body().SetAttributeTraversal("region", traversal("var", "aws_region"))

	root.AppendNewline()
	v := root.AppendNewBlock("variable", []string{"aws_region"}).Body()
	v.SetAttributeValue("description", cty.StringVal("AWS region"))
	v.SetAttributeTraversal("type", traversal("string"))
	v.SetAttributeValue("default", cty.StringVal(region))

	f := tfFile{body: root, plan: newPlan(nodes, tfSupported, tfNaming)}
	for _, r := range f.plan.resources {
		tfResources[r.Kind](f, r)
	}
	f.wire(edges)

	return string(hclwrite.Format(hf.Bytes())), nil
}
