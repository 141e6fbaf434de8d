package constructs

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/validation"

	"github.com/raywall/raysouz-constructs/constructs/internal/repository"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

var (
	sqsConsumeActions = []string{
		"sqs:ReceiveMessage",
		"sqs:ChangeMessageVisibility",
		"sqs:GetQueueUrl",
		"sqs:DeleteMessage",
		"sqs:GetQueueAttributes",
	}
	kinesisReadActions = []string{
		"kinesis:DescribeStreamSummary",
		"kinesis:GetRecords",
		"kinesis:GetShardIterator",
		"kinesis:ListShards",
		"kinesis:SubscribeToShard",
		"kinesis:DescribeStream",
		"kinesis:ListStreams",
	}
	dynamodbStreamReadActions = []string{
		"dynamodb:DescribeStream",
		"dynamodb:GetRecords",
		"dynamodb:GetShardIterator",
		"dynamodb:ListStreams",
	}
)

// AddEventSource liga uma origem de eventos à função.
func (f *ManagedFunction) AddEventSource(ev dto.EventSource) error {
	id := fmt.Sprintf("Event%d", f.events)
	f.events++

	scope, err := construct.NewNode(f, id, nil)
	if err != nil {
		return err
	}

	switch v := ev.(type) {
	case dto.SQSEventSource:
		return f.bindSQS(scope, v)
	case dto.StreamEventSource:
		return f.bindStream(scope, v)
	case dto.SNSEventSource:
		return f.bindSNS(scope, v)
	case dto.RestAPIEventSource:
		return f.bindRestAPI(scope, v)
	case dto.HTTPAPIEventSource:
		return f.bindHTTPAPI(scope, v)
	default:
		return fmt.Errorf("%s: unsupported event source %T", scope.Path(), ev)
	}
}

func (f *ManagedFunction) bindSQS(scope *construct.Node, ev dto.SQSEventSource) error {
	if err := f.role.AddToPolicy(dto.Allow(sqsConsumeActions, ev.QueueArn)); err != nil {
		return err
	}
	repo := &repository.LambdaRepository{Scope: scope}
	mapping, err := repo.DeclareEventSourceMapping("Mapping", &lambda.CreateEventSourceMappingInput{
		EventSourceArn: aws.String(ev.QueueArn),
		FunctionName:   aws.String(f.FunctionName()),
		BatchSize:      ev.BatchSize,
		Enabled:        aws.Bool(!ev.Disabled),
	})
	if err != nil {
		return err
	}
	f.role.mustPrecede(mapping)
	mapping.AddDependency(f.resource)

	scope.AddValidation(func() diag.Diagnostics {
		diags := construct.CheckARN(ev.QueueArn, "queue_arn")
		if ev.BatchSize != nil {
			diags = append(diags, construct.Check(validation.IntBetween(1, 10000), int(*ev.BatchSize), "batch_size")...)
		}
		return diags
	})
	return nil
}

func (f *ManagedFunction) bindStream(scope *construct.Node, ev dto.StreamEventSource) error {
	actions := kinesisReadActions
	if a, err := arn.Parse(ev.StreamArn); err == nil && a.Service == "dynamodb" {
		actions = dynamodbStreamReadActions
	}
	if err := f.role.AddToPolicy(dto.Allow(actions, ev.StreamArn)); err != nil {
		return err
	}

	position := lambdatypes.EventSourcePositionLatest
	if ev.StartingPosition != "" {
		position = lambdatypes.EventSourcePosition(strings.ToUpper(ev.StartingPosition))
	}
	repo := &repository.LambdaRepository{Scope: scope}
	mapping, err := repo.DeclareEventSourceMapping("Mapping", &lambda.CreateEventSourceMappingInput{
		EventSourceArn:   aws.String(ev.StreamArn),
		FunctionName:     aws.String(f.FunctionName()),
		BatchSize:        ev.BatchSize,
		StartingPosition: position,
		Enabled:          aws.Bool(!ev.Disabled),
	})
	if err != nil {
		return err
	}
	f.role.mustPrecede(mapping)
	mapping.AddDependency(f.resource)

	scope.AddValidation(func() diag.Diagnostics {
		diags := construct.CheckARN(ev.StreamArn, "stream_arn")
		diags = append(diags, construct.Check(validation.StringInSlice([]string{
			string(lambdatypes.EventSourcePositionLatest),
			string(lambdatypes.EventSourcePositionTrimHorizon),
		}, false), string(position), "starting_position")...)
		return diags
	})
	return nil
}

func (f *ManagedFunction) bindSNS(scope *construct.Node, ev dto.SNSEventSource) error {
	if ev.Topic == nil {
		return fmt.Errorf("%s: sns event source without topic", scope.Path())
	}
	topicArn := ev.Topic.TopicArn()

	lambdaRepo := &repository.LambdaRepository{Scope: scope}
	permission, err := lambdaRepo.DeclarePermission("Permission", f.FunctionName(), "sns.amazonaws.com", topicArn)
	if err != nil {
		return err
	}
	permission.AddDependency(f.resource)

	snsRepo := &repository.SNSRepository{Scope: scope}
	subscription, err := snsRepo.DeclareSubscription("Subscription", topicArn, "lambda", f.FunctionArn())
	if err != nil {
		return err
	}
	subscription.AddDependency(permission)

	scope.AddValidation(func() diag.Diagnostics {
		return construct.CheckARN(topicArn, "topic_arn")
	})
	return nil
}

func (f *ManagedFunction) bindRestAPI(scope *construct.Node, ev dto.RestAPIEventSource) error {
	method := strings.ToUpper(ev.Method)
	repo := &repository.APIGWRepository{Scope: scope}

	// 1. Ensure Path
	resourceID, _, err := repo.DeclarePath(ev.RestAPIID, ev.RootResourceID, ev.Path)
	if err != nil {
		return fmt.Errorf("ensure path %s: %w", ev.Path, err)
	}

	// 2. Put Method, Integration, Responses
	declared, err := repo.DeclareMethodAndIntegration(ev.RestAPIID, resourceID, method, f.FunctionArn(), ev.Authorization, ev.AuthorizerID)
	if err != nil {
		return fmt.Errorf("put method/integration %s %s: %w", method, ev.Path, err)
	}

	// 3. Permissão de invocação para o API Gateway
	sourceArn := fmt.Sprintf("arn:%s:execute-api:%s:%s:%s/*/%s/%s",
		construct.PseudoPartition, construct.PseudoRegion, construct.PseudoAccountID,
		ev.RestAPIID, methodPattern(method), strings.Trim(ev.Path, "/"))
	lambdaRepo := &repository.LambdaRepository{Scope: scope}
	permission, err := lambdaRepo.DeclarePermission("Permission", f.FunctionName(), "apigateway.amazonaws.com", sourceArn)
	if err != nil {
		return err
	}
	permission.AddDependency(f.resource)

	// 4. Deploy
	if ev.StageName != "" {
		deployment, err := repo.DeclareDeployment(ev.RestAPIID, ev.StageName)
		if err != nil {
			return fmt.Errorf("deploy api failed: %w", err)
		}
		deployment.AddDependency(declared...)
		deployment.AddDependency(permission)
	}

	scope.AddValidation(func() diag.Diagnostics {
		var diags diag.Diagnostics
		if ev.RestAPIID == "" || ev.RootResourceID == "" {
			diags = append(diags, diag.Errorf("rest api event source needs rest_api_id and root_resource_id")...)
		}
		diags = append(diags, construct.Check(validation.StringInSlice(httpMethods, false), method, "method")...)
		return diags
	})
	return nil
}

func (f *ManagedFunction) bindHTTPAPI(scope *construct.Node, ev dto.HTTPAPIEventSource) error {
	repo := &repository.APIGWv2Repository{Scope: scope}
	integration, _, err := repo.DeclareRoute(ev.APIID, ev.RouteKey, f.FunctionArn())
	if err != nil {
		return err
	}
	integration.AddDependency(f.resource)

	sourceArn := fmt.Sprintf("arn:%s:execute-api:%s:%s:%s/*/*",
		construct.PseudoPartition, construct.PseudoRegion, construct.PseudoAccountID, ev.APIID)
	lambdaRepo := &repository.LambdaRepository{Scope: scope}
	permission, err := lambdaRepo.DeclarePermission("Permission", f.FunctionName(), "apigateway.amazonaws.com", sourceArn)
	if err != nil {
		return err
	}
	permission.AddDependency(f.resource)

	scope.AddValidation(func() diag.Diagnostics {
		if ev.APIID == "" || ev.RouteKey == "" {
			return diag.Errorf("http api event source needs api_id and route_key")
		}
		return nil
	})
	return nil
}

var httpMethods = []string{"ANY", "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

func methodPattern(method string) string {
	if method == "ANY" {
		return "*"
	}
	return method
}
