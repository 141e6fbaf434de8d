package constructs

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

func resourceAt(t *testing.T, n *construct.Node, path ...string) *construct.Resource {
	t.Helper()
	cur := n
	for _, id := range path {
		cur = cur.FindChild(id)
		require.NotNil(t, cur, "missing child %s", id)
	}
	res, ok := cur.Host().(*construct.Resource)
	require.True(t, ok)
	return res
}

func TestEventSource_SQS(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:  functionDir(t),
		Events: []dto.EventSource{dto.SQSEventSource{QueueArn: testQueueArn, BatchSize: aws.Int32(10)}},
	})
	require.NoError(t, err)

	policy := f.InitialPolicy()
	require.Len(t, policy, 1)
	assert.Contains(t, policy[0].Actions, "sqs:ReceiveMessage")
	assert.Equal(t, []string{testQueueArn}, policy[0].Resources)

	mapping := resourceAt(t, f.Node(), "Event0", "Mapping")
	in := mapping.Properties.(*lambda.CreateEventSourceMappingInput)
	assert.Equal(t, testQueueArn, aws.ToString(in.EventSourceArn))
	assert.Equal(t, int32(10), aws.ToInt32(in.BatchSize))
	assert.True(t, aws.ToBool(in.Enabled))

	tpl := synthesize(t, s)
	deps := tpl.Resources[mapping.LogicalID()].DependsOn
	policyRes := resourceAt(t, f.Role().Node(), DefaultPolicyName)
	assert.Contains(t, deps, policyRes.LogicalID())
	assert.Contains(t, deps, f.Resource().LogicalID())
}

func TestEventSource_Streams(t *testing.T) {
	s := newTestStack(t)
	table := "arn:aws:dynamodb:sa-east-1:123456789012:table/orders/stream/2026-01-01T00:00:00.000"
	kinesis := "arn:aws:kinesis:sa-east-1:123456789012:stream/clicks"
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry: functionDir(t),
		Events: []dto.EventSource{
			dto.StreamEventSource{StreamArn: table},
			dto.StreamEventSource{StreamArn: kinesis, StartingPosition: "trim_horizon", Disabled: true},
		},
	})
	require.NoError(t, err)

	policy := f.InitialPolicy()
	require.Len(t, policy, 2)
	assert.Contains(t, policy[0].Actions, "dynamodb:GetRecords")
	assert.Contains(t, policy[1].Actions, "kinesis:GetRecords")

	first := resourceAt(t, f.Node(), "Event0", "Mapping").Properties.(*lambda.CreateEventSourceMappingInput)
	assert.Equal(t, lambdatypes.EventSourcePositionLatest, first.StartingPosition)
	second := resourceAt(t, f.Node(), "Event1", "Mapping").Properties.(*lambda.CreateEventSourceMappingInput)
	assert.Equal(t, lambdatypes.EventSourcePositionTrimHorizon, second.StartingPosition)
	assert.False(t, aws.ToBool(second.Enabled))
	synthesize(t, s)
}

func TestEventSource_InvalidStartingPosition(t *testing.T) {
	s := newTestStack(t)
	_, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:  functionDir(t),
		Events: []dto.EventSource{dto.StreamEventSource{StreamArn: "arn:aws:kinesis:sa-east-1:123456789012:stream/x", StartingPosition: "sometime"}},
	})
	require.NoError(t, err)

	_, _, err = s.Synthesize()
	assert.ErrorIs(t, err, construct.ErrSynthesis)
	assert.Contains(t, err.Error(), "starting_position")
}

func TestEventSource_SNS(t *testing.T) {
	s := newTestStack(t)
	topic, err := NewTopic(s, "Orders", &dto.TopicConfig{DisplayName: aws.String("orders")})
	require.NoError(t, err)
	f, err := NewManagedFunction(s, "Handler", &dto.FunctionConfig{
		Entry:  functionDir(t),
		Events: []dto.EventSource{dto.SNSEventSource{Topic: topic}},
	})
	require.NoError(t, err)
	assert.Empty(t, f.InitialPolicy())

	permission := resourceAt(t, f.Node(), "Event0", "Permission")
	subscription := resourceAt(t, f.Node(), "Event0", "Subscription")

	tpl := synthesize(t, s)
	perm := tpl.Resources[permission.LogicalID()]
	assert.Equal(t, "sns.amazonaws.com", perm.Properties["Principal"])
	assert.Equal(t, "lambda:InvokeFunction", perm.Properties["Action"])
	assert.Contains(t, perm.DependsOn, topic.Resource().LogicalID())

	sub := tpl.Resources[subscription.LogicalID()]
	assert.Equal(t, "lambda", sub.Properties["Protocol"])
	assert.Equal(t, f.FunctionArn(), sub.Properties["Endpoint"])
	assert.Contains(t, sub.DependsOn, permission.LogicalID())
}

func TestEventSource_SNSWithoutTopic(t *testing.T) {
	s := newTestStack(t)
	_, err := NewManagedFunction(s, "Handler", &dto.FunctionConfig{
		Entry:  functionDir(t),
		Events: []dto.EventSource{dto.SNSEventSource{}},
	})
	assert.Error(t, err)
}

func TestEventSource_RestAPI(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry: functionDir(t),
		Events: []dto.EventSource{dto.RestAPIEventSource{
			RestAPIID:      "abc123",
			RootResourceID: "root0",
			Path:           "/orders/items",
			Method:         "post",
			StageName:      "prod",
		}},
	})
	require.NoError(t, err)

	event := f.Node().FindChild("Event0")
	require.NotNil(t, event)
	part0 := resourceAt(t, event, "PathPart0")
	part1 := resourceAt(t, event, "PathPart1")
	integration := resourceAt(t, event, "Integration")
	deployment := resourceAt(t, event, "Deployment")
	permission := resourceAt(t, event, "Permission")

	tpl := synthesize(t, s)
	assert.Equal(t, "root0", tpl.Resources[part0.LogicalID()].Properties["ParentId"])
	assert.Equal(t, part0.Attr("Id"), tpl.Resources[part1.LogicalID()].Properties["ParentId"])

	uri := tpl.Resources[integration.LogicalID()].Properties["Uri"]
	assert.Equal(t, "arn:aws:apigateway:sa-east-1:lambda:path/2015-03-31/functions/"+f.FunctionArn()+"/invocations", uri)
	assert.Equal(t, "POST", tpl.Resources[integration.LogicalID()].Properties["HttpMethod"])

	assert.Equal(t, "arn:aws:execute-api:sa-east-1:123456789012:abc123/*/POST/orders/items",
		tpl.Resources[permission.LogicalID()].Properties["SourceArn"])
	assert.Equal(t, "prod", tpl.Resources[deployment.LogicalID()].Properties["StageName"])
	assert.Contains(t, tpl.Resources[deployment.LogicalID()].DependsOn, integration.LogicalID())
}

func TestEventSource_HTTPAPI(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:  functionDir(t),
		Events: []dto.EventSource{dto.HTTPAPIEventSource{APIID: "h77", RouteKey: "GET /orders"}},
	})
	require.NoError(t, err)

	integration := resourceAt(t, f.Node(), "Event0", "Integration")
	route := resourceAt(t, f.Node(), "Event0", "Route")
	permission := resourceAt(t, f.Node(), "Event0", "Permission")

	tpl := synthesize(t, s)
	assert.Equal(t, "2.0", tpl.Resources[integration.LogicalID()].Properties["PayloadFormatVersion"])
	assert.Equal(t, "integrations/"+integration.Attr("IntegrationId"), tpl.Resources[route.LogicalID()].Properties["Target"])
	assert.Equal(t, []string{integration.LogicalID()}, tpl.Resources[route.LogicalID()].DependsOn)
	assert.Equal(t, "arn:aws:execute-api:sa-east-1:123456789012:h77/*/*",
		tpl.Resources[permission.LogicalID()].Properties["SourceArn"])
}

type unknownEvent struct{ dto.SQSEventSource }

func TestEventSource_PermissionStatementIDsAreUnique(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry: functionDir(t),
		Events: []dto.EventSource{
			dto.HTTPAPIEventSource{APIID: "h1", RouteKey: "GET /a"},
			dto.HTTPAPIEventSource{APIID: "h1", RouteKey: "GET /b"},
		},
	})
	require.NoError(t, err)

	first := resourceAt(t, f.Node(), "Event0", "Permission").Properties.(*lambda.AddPermissionInput)
	second := resourceAt(t, f.Node(), "Event1", "Permission").Properties.(*lambda.AddPermissionInput)
	assert.NotEqual(t, aws.ToString(first.StatementId), aws.ToString(second.StatementId))

	// tipos embutidos não passam pelo type switch
	assert.Error(t, f.AddEventSource(unknownEvent{}))
}
