package constructs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

const testQueueArn = "arn:aws:sqs:sa-east-1:123456789012:orders"

func newTestStack(t *testing.T) *construct.Stack {
	t.Helper()
	s, err := construct.NewStack(construct.NewApp(), "Test", &construct.StackProps{
		Env: construct.Environment{Account: "123456789012", Region: "sa-east-1"},
	})
	require.NoError(t, err)
	return s
}

// functionDir cria um diretório com main.py e um .venv que deve ser ignorado.
func functionDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, EntryFile), []byte("def handler(event, context):\n    return event\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".venv", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".venv", "lib", "x.py"), []byte("x"), 0o644))
	return dir
}

func synthesize(t *testing.T, s *construct.Stack) *construct.Template {
	t.Helper()
	tpl, _, err := s.Synthesize()
	require.NoError(t, err)
	return tpl
}

func TestManagedFunction_Defaults(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{Entry: functionDir(t)})
	require.NoError(t, err)

	in := f.Declaration()
	assert.Equal(t, lambdatypes.RuntimePython312, in.Runtime)
	assert.Equal(t, "main.handler", aws.ToString(in.Handler))
	assert.Equal(t, lambdatypes.PackageTypeZip, in.PackageType)
	assert.Equal(t, f.Code().ObjectKey(), aws.ToString(in.Code.S3Key))
	assert.Equal(t, f.Role().Arn(), aws.ToString(in.Role))
	assert.Nil(t, in.FunctionName)
	assert.Nil(t, in.MemorySize)
	assert.Nil(t, in.Timeout)
	assert.Nil(t, in.Environment)
	assert.Nil(t, in.VpcConfig)
	assert.Equal(t, f.Resource().Attr("FunctionName"), f.FunctionName())

	assert.Empty(t, f.InitialPolicy())
	assert.Equal(t, []string{dto.AWSManagedPolicy(BasicExecutionPolicy).Arn}, f.Role().ManagedPolicyArns())

	tpl := synthesize(t, s)
	props := tpl.Resources[f.Resource().LogicalID()].Properties
	assert.Equal(t, "python3.12", props["Runtime"])
	assert.Equal(t, "raysouz-assets-123456789012-sa-east-1", props["Code"].(map[string]any)["S3Bucket"])
	assert.NotContains(t, props, "FunctionName")
}

func TestManagedFunction_EphemeralStorage(t *testing.T) {
	s := newTestStack(t)
	entry := functionDir(t)

	without, err := NewManagedFunction(s, "Without", &dto.FunctionConfig{Entry: entry})
	require.NoError(t, err)
	with, err := NewManagedFunction(s, "With", &dto.FunctionConfig{Entry: entry, EphemeralStorageSize: aws.Int32(2048)})
	require.NoError(t, err)

	assert.Nil(t, without.Declaration().EphemeralStorage)
	require.NotNil(t, with.Declaration().EphemeralStorage)
	assert.Equal(t, int32(2048), aws.ToInt32(with.Declaration().EphemeralStorage.Size))

	tpl := synthesize(t, s)
	assert.NotContains(t, tpl.Resources[without.Resource().LogicalID()].Properties, "EphemeralStorage")
	storage := tpl.Resources[with.Resource().LogicalID()].Properties["EphemeralStorage"].(map[string]any)
	assert.Equal(t, float64(2048), storage["Size"])
}

func TestManagedFunction_OptionalFields(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:        functionDir(t),
		FunctionName: aws.String("orders-handler"),
		Description:  aws.String("process orders"),
		MemorySize:   aws.Int32(512),
		Timeout:      30 * time.Second,
		Environment:  map[string]string{"TABLE": "orders"},
	})
	require.NoError(t, err)

	in := f.Declaration()
	assert.Equal(t, "orders-handler", aws.ToString(in.FunctionName))
	assert.Equal(t, "orders-handler", f.FunctionName())
	assert.Equal(t, int32(512), aws.ToInt32(in.MemorySize))
	assert.Equal(t, int32(30), aws.ToInt32(in.Timeout))
	assert.Equal(t, map[string]string{"TABLE": "orders"}, in.Environment.Variables)
	synthesize(t, s)
}

func TestManagedFunction_PermissionsSplitByVariant(t *testing.T) {
	s := newTestStack(t)
	read := dto.PolicyStatement{Actions: []string{"dynamodb:GetItem"}, Resources: []string{"arn:aws:dynamodb:sa-east-1:123456789012:table/orders"}}
	write := dto.Allow([]string{"s3:PutObject"}, "arn:aws:s3:::reports/*")
	sqsRead := "arn:aws:iam::aws:policy/AmazonSQSReadOnlyAccess"
	custom := "arn:aws:iam::123456789012:policy/custom"

	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry: functionDir(t),
		Permissions: []dto.Permission{
			read,
			dto.ManagedPolicy{Arn: sqsRead},
			&write,
			&dto.ManagedPolicy{Arn: custom},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []dto.PolicyStatement{read, write}, f.InitialPolicy())
	assert.Equal(t, []string{dto.AWSManagedPolicy(BasicExecutionPolicy).Arn, sqsRead, custom}, f.Role().ManagedPolicyArns())

	var doc struct {
		Version   string
		Statement []struct {
			Effect   string
			Action   []string
			Resource []string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(f.Role().PolicyDocument()), &doc))
	assert.Equal(t, "2012-10-17", doc.Version)
	require.Len(t, doc.Statement, 2)
	assert.Equal(t, "Allow", doc.Statement[0].Effect)
	assert.Equal(t, []string{"dynamodb:GetItem"}, doc.Statement[0].Action)
	assert.Equal(t, []string{"s3:PutObject"}, doc.Statement[1].Action)

	tpl := synthesize(t, s)
	fn := tpl.Resources[f.Resource().LogicalID()]
	policy := f.Role().Node().FindChild(DefaultPolicyName).Host().(*construct.Resource)
	assert.Contains(t, fn.DependsOn, policy.LogicalID())
	assert.Contains(t, fn.DependsOn, f.Role().Resource().LogicalID())
}

func TestManagedFunction_OnFailure(t *testing.T) {
	s := newTestStack(t)
	topic, err := NewTopic(s, "Failures", nil)
	require.NoError(t, err)

	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{Entry: functionDir(t), OnFailure: topic})
	require.NoError(t, err)

	policy := f.InitialPolicy()
	require.Len(t, policy, 1)
	assert.Equal(t, []string{"sns:Publish"}, policy[0].Actions)
	assert.Equal(t, []string{topic.TopicArn()}, policy[0].Resources)

	tpl := synthesize(t, s)
	cfg := f.Node().FindChild("EventInvokeConfig").Host().(*construct.Resource)
	got := tpl.Resources[cfg.LogicalID()]
	assert.Equal(t, "lambda:PutFunctionEventInvokeConfig", got.Type)
	assert.Contains(t, got.DependsOn, topic.Resource().LogicalID())
	assert.Contains(t, got.DependsOn, f.Resource().LogicalID())
}

func TestManagedFunction_InvalidImportedTopic(t *testing.T) {
	s := newTestStack(t)
	_, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{Entry: functionDir(t), OnFailure: dto.ImportedTopic("not-an-arn")})
	require.NoError(t, err)

	_, _, err = s.Synthesize()
	assert.ErrorIs(t, err, construct.ErrSynthesis)
	assert.Contains(t, err.Error(), "on_failure")
}

func TestManagedFunction_ValidationAtSynthesis(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(entry string) *dto.FunctionConfig
		want string
	}{
		{
			name: "memory too small",
			cfg:  func(e string) *dto.FunctionConfig { return &dto.FunctionConfig{Entry: e, MemorySize: aws.Int32(64)} },
			want: "memory_size",
		},
		{
			name: "timeout too long",
			cfg:  func(e string) *dto.FunctionConfig { return &dto.FunctionConfig{Entry: e, Timeout: 20 * time.Minute} },
			want: "timeout",
		},
		{
			name: "bad function name",
			cfg:  func(e string) *dto.FunctionConfig { return &dto.FunctionConfig{Entry: e, FunctionName: aws.String("has space")} },
			want: "function_name",
		},
		{
			name: "bad log retention",
			cfg:  func(e string) *dto.FunctionConfig { return &dto.FunctionConfig{Entry: e, LogRetentionDays: aws.Int32(2)} },
			want: "log_retention_days",
		},
		{
			name: "network without subnets",
			cfg: func(e string) *dto.FunctionConfig {
				return &dto.FunctionConfig{Entry: e, Network: &dto.Network{VpcID: "vpc-1"}}
			},
			want: "subnet",
		},
		{
			name: "missing entry module",
			cfg:  func(string) *dto.FunctionConfig { return &dto.FunctionConfig{Entry: t.TempDir()} },
			want: EntryFile,
		},
		{
			name: "missing entry directory",
			cfg: func(string) *dto.FunctionConfig {
				return &dto.FunctionConfig{Entry: filepath.Join(t.TempDir(), "missing")}
			},
			want: "asset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t)
			_, err := NewManagedFunction(s, "Fn", tt.cfg(functionDir(t)))
			require.NoError(t, err)

			_, _, err = s.Synthesize()
			assert.ErrorIs(t, err, construct.ErrSynthesis)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestManagedFunction_NetworkDeclaresSecurityGroup(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:   functionDir(t),
		Network: &dto.Network{VpcID: "vpc-123", SubnetIDs: []string{"subnet-a", "subnet-b"}},
	})
	require.NoError(t, err)

	sg := f.Node().FindChild("SecurityGroup")
	require.NotNil(t, sg)
	vpc := f.Declaration().VpcConfig
	require.NotNil(t, vpc)
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, vpc.SubnetIds)
	assert.Equal(t, []string{sg.Host().(*construct.Resource).Attr("GroupId")}, vpc.SecurityGroupIds)
	assert.Contains(t, f.Role().ManagedPolicyArns(), dto.AWSManagedPolicy(VPCAccessPolicy).Arn)
	synthesize(t, s)
}

func TestManagedFunction_LogGroup(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:            functionDir(t),
		FunctionName:     aws.String("orders"),
		LogRetentionDays: aws.Int32(14),
	})
	require.NoError(t, err)

	tpl := synthesize(t, s)
	group := f.Node().FindChild("LogGroup").Host().(*construct.Resource)
	assert.Equal(t, "/aws/lambda/orders", tpl.Resources[group.LogicalID()].Properties["LogGroupName"])
	retention := f.Node().FindChild("LogGroupRetention").Host().(*construct.Resource)
	assert.Equal(t, float64(14), tpl.Resources[retention.LogicalID()].Properties["RetentionInDays"])
	assert.Equal(t, []string{group.LogicalID()}, tpl.Resources[retention.LogicalID()].DependsOn)
}

func TestManagedFunction_DeterministicTemplate(t *testing.T) {
	entry := functionDir(t)
	render := func() []byte {
		s := newTestStack(t)
		_, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
			Entry:       entry,
			MemorySize:  aws.Int32(256),
			Environment: map[string]string{"B": "2", "A": "1"},
			Permissions: []dto.Permission{
				dto.Allow([]string{"sqs:SendMessage"}, testQueueArn),
				dto.ManagedPolicy{Arn: "arn:aws:iam::aws:policy/AmazonSQSReadOnlyAccess"},
			},
			Events: []dto.EventSource{dto.SQSEventSource{QueueArn: testQueueArn}},
		})
		require.NoError(t, err)
		b, err := construct.MarshalTemplate(synthesize(t, s))
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, string(render()), string(render()))
}

func TestManagedFunction_EmptyEnvironmentValuesReachTemplate(t *testing.T) {
	s := newTestStack(t)
	f, err := NewManagedFunction(s, "Orders", &dto.FunctionConfig{
		Entry:       functionDir(t),
		Environment: map[string]string{"FEATURE_FLAG": "", "STAGE": "prod"},
	})
	require.NoError(t, err)

	tpl := synthesize(t, s)
	env := tpl.Resources[f.Resource().LogicalID()].Properties["Environment"].(map[string]any)
	assert.Equal(t, map[string]any{"FEATURE_FLAG": "", "STAGE": "prod"}, env["Variables"])
}
