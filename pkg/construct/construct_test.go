package construct

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProps struct {
	Name  *string
	Ref   string
	Tags  map[string]string
	List  []string
	Empty string
	Count int32
}

func newTestStack(t *testing.T, env Environment) *Stack {
	t.Helper()
	s, err := NewStack(NewApp(), "TestStack", &StackProps{Env: env})
	require.NoError(t, err)
	return s
}

func TestNewNode_RejectsInvalidIDs(t *testing.T) {
	s := newTestStack(t, Environment{})

	_, err := NewNode(s, "", nil)
	assert.Error(t, err)

	_, err = NewNode(s, "a/b", nil)
	assert.Error(t, err)

	_, err = NewNode(s, "Fn", nil)
	require.NoError(t, err)
	_, err = NewNode(s, "Fn", nil)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestNode_PathAndComponents(t *testing.T) {
	s := newTestStack(t, Environment{})
	fn, err := NewNode(s, "Fn", nil)
	require.NoError(t, err)
	role, err := NewNode(fn, "ServiceRole", nil)
	require.NoError(t, err)

	assert.Equal(t, "TestStack/Fn/ServiceRole", role.Path())
	assert.Equal(t, []string{"Fn", "ServiceRole"}, role.Components())
	assert.Same(t, s, role.Stack())
	assert.Same(t, role, fn.FindChild("ServiceRole"))
}

func TestLogicalID(t *testing.T) {
	s := newTestStack(t, Environment{})
	fn, err := NewNode(s, "Fn", nil)
	require.NoError(t, err)

	res, err := NewResource(fn, "Resource", "lambda:CreateFunction", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fn9270CBC0", res.LogicalID())

	role, err := NewNode(fn, "ServiceRole", nil)
	require.NoError(t, err)
	roleRes, err := NewResource(role, "Resource", "iam:CreateRole", nil)
	require.NoError(t, err)
	assert.Equal(t, "FnServiceRoleB9001A96", roleRes.LogicalID())

	queue, err := NewResource(s, "Queue", "sqs:CreateQueue", nil)
	require.NoError(t, err)
	assert.Equal(t, "Queue722AD2D0", queue.LogicalID())
	assert.Equal(t, "${Queue722AD2D0.QueueUrl}", queue.Attr("QueueUrl"))
}

func TestReferences_SkipPseudoParameters(t *testing.T) {
	refs := references("arn:${AWS::Partition}:lambda:${AWS::Region}:${AWS::AccountId}:function:${Fn9270CBC0.FunctionName}")
	assert.Equal(t, []string{"Fn9270CBC0"}, refs)

	assert.True(t, IsToken("${Fn9270CBC0.Role.Arn}"))
	assert.True(t, IsToken(PseudoRegion))
	assert.False(t, IsToken("arn:aws:sns:us-east-1:123456789012:alerts"))
}

func TestSynthesize_DependsOnAndPseudoParameters(t *testing.T) {
	s := newTestStack(t, Environment{Account: "123456789012", Region: "sa-east-1"})

	name := "orders"
	producer, err := NewResource(s, "Producer", "test:Create", &testProps{Name: &name})
	require.NoError(t, err)
	consumer, err := NewResource(s, "Consumer", "test:Create", &testProps{
		Ref:  "arn:" + PseudoPartition + ":test:" + PseudoRegion + ":" + PseudoAccountID + ":" + producer.Attr("Id"),
		Tags: map[string]string{},
		List: []string{},
	})
	require.NoError(t, err)
	explicit, err := NewResource(s, "Explicit", "test:Create", &testProps{})
	require.NoError(t, err)
	explicit.AddDependency(consumer)

	tpl, _, err := s.Synthesize()
	require.NoError(t, err)

	got := tpl.Resources[consumer.LogicalID()]
	assert.Equal(t, "test:Create", got.Type)
	assert.Equal(t, []string{producer.LogicalID()}, got.DependsOn)
	assert.Equal(t, "arn:aws:test:sa-east-1:123456789012:${"+producer.LogicalID()+".Id}", got.Properties["Ref"])
	assert.NotContains(t, got.Properties, "Tags")
	assert.NotContains(t, got.Properties, "List")
	assert.NotContains(t, got.Properties, "Empty")
	assert.Equal(t, "TestStack/Consumer", got.Metadata["raysouz:path"])

	assert.Equal(t, []string{consumer.LogicalID()}, tpl.Resources[explicit.LogicalID()].DependsOn)
	assert.Equal(t, "orders", tpl.Resources[producer.LogicalID()].Properties["Name"])
}

func TestSynthesize_UnresolvedEnvironmentKeepsPseudoParameters(t *testing.T) {
	s := newTestStack(t, Environment{})
	res, err := NewResource(s, "Thing", "test:Create", &testProps{Ref: "arn:" + PseudoPartition + ":x:" + PseudoRegion})
	require.NoError(t, err)

	tpl, _, err := s.Synthesize()
	require.NoError(t, err)
	assert.Equal(t, "arn:${AWS::Partition}:x:${AWS::Region}", tpl.Resources[res.LogicalID()].Properties["Ref"])
}

func TestSynthesize_DanglingReference(t *testing.T) {
	s := newTestStack(t, Environment{})
	_, err := NewResource(s, "Consumer", "test:Create", &testProps{Ref: "${Missing12345678.Arn}"})
	require.NoError(t, err)

	_, _, err = s.Synthesize()
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.Contains(t, err.Error(), "Missing12345678")
}

func TestSynthesize_ValidationErrorsAndWarnings(t *testing.T) {
	s := newTestStack(t, Environment{})
	n, err := NewNode(s, "Checked", nil)
	require.NoError(t, err)
	n.AddValidation(func() diag.Diagnostics {
		return diag.Diagnostics{{Severity: diag.Warning, Summary: "just a warning"}}
	})

	_, _, err = s.Synthesize()
	require.NoError(t, err)

	n.AddValidation(func() diag.Diagnostics { return diag.Errorf("broken") })
	_, _, err = s.Synthesize()
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.Contains(t, err.Error(), "TestStack/Checked: broken")
}

func TestPartition(t *testing.T) {
	assert.Equal(t, "aws-cn", (&Stack{Env: Environment{Region: "cn-north-1"}}).partition())
	assert.Equal(t, "aws-us-gov", (&Stack{Env: Environment{Region: "us-gov-west-1"}}).partition())
	assert.Equal(t, "aws", (&Stack{Env: Environment{Region: "sa-east-1"}}).partition())
	assert.Equal(t, "", (&Stack{}).partition())
}

func TestSynthesize_KeepsEmptyValuesInsideCollections(t *testing.T) {
	s := newTestStack(t, Environment{})
	r, err := NewResource(s, "Res", "test:Create", &testProps{
		Tags: map[string]string{"flag": "", "team": "orders"},
		List: []string{""},
	})
	require.NoError(t, err)

	tpl, _, err := s.Synthesize()
	require.NoError(t, err)

	props := tpl.Resources[r.LogicalID()].Properties
	assert.Equal(t, map[string]any{"flag": "", "team": "orders"}, props["Tags"])
	assert.Equal(t, []any{""}, props["List"])
	assert.NotContains(t, props, "Ref")
	assert.NotContains(t, props, "Empty")
}
