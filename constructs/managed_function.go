// Package constructs reúne os constructs de computação da raysouz: função
// gerenciada, função agendada e job de processamento em lote. Cada construct
// só declara recursos na árvore de pkg/construct; nada é criado na conta.
package constructs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/validation"

	"github.com/raywall/raysouz-constructs/constructs/internal/repository"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// Convenções fixas de empacotamento e execução.
const (
	Runtime       = lambdatypes.RuntimePython312
	EntryModule   = "main"
	HandlerSymbol = "handler"
	Handler       = EntryModule + "." + HandlerSymbol
	EntryFile     = EntryModule + ".py"
)

// Políticas base da role de execução da função.
const (
	BasicExecutionPolicy = "service-role/AWSLambdaBasicExecutionRole"
	VPCAccessPolicy      = "service-role/AWSLambdaVPCAccessExecutionRole"
)

// BundlingExclusions são ignorados ao empacotar o diretório da função.
var BundlingExclusions = []string{".venv"}

var functionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ManagedFunction declara uma função Lambda Python a partir de um diretório.
type ManagedFunction struct {
	node          *construct.Node
	config        dto.FunctionConfig
	repo          *repository.LambdaRepository
	role          *Role
	code          *construct.Asset
	resource      *construct.Resource
	input         *lambda.CreateFunctionInput
	invokeConfig  *construct.Resource
	logGroup      *construct.Resource
	securityGroup *construct.Resource
	events        int
}

// NewManagedFunction declara a função, a role de execução, o asset do código e
// os recursos opcionais descritos em lc.
func NewManagedFunction(scope construct.Construct, id string, lc *dto.FunctionConfig) (*ManagedFunction, error) {
	if lc == nil {
		return nil, fmt.Errorf("managed function %q: nil config", id)
	}
	f := &ManagedFunction{config: *lc}
	n, err := construct.NewNode(scope, id, f)
	if err != nil {
		return nil, err
	}
	f.node = n
	f.repo = &repository.LambdaRepository{Scope: f, Runtime: Runtime, Handler: Handler}

	// 1. Role de execução com as políticas base
	baseline := []dto.ManagedPolicy{dto.AWSManagedPolicy(BasicExecutionPolicy)}
	if lc.Network != nil {
		baseline = append(baseline, dto.AWSManagedPolicy(VPCAccessPolicy))
	}
	f.role, err = NewRole(f, "ServiceRole", RoleProps{AssumedBy: "lambda.amazonaws.com", ManagedPolicies: baseline})
	if err != nil {
		return nil, err
	}

	// 2. Código
	f.code, err = construct.NewAsset(f, "Code", construct.AssetProps{Path: lc.Entry, Exclude: BundlingExclusions})
	if err != nil {
		return nil, err
	}

	// 3. Rede
	vpc, err := f.vpcConfig(lc.Network)
	if err != nil {
		return nil, err
	}

	// 4. Função
	f.resource, f.input, err = f.repo.DeclareFunction("Resource", lc, f.code, f.role.Arn(), vpc)
	if err != nil {
		return nil, err
	}
	f.role.mustPrecede(f.resource)

	// 5. Permissões
	for _, p := range lc.Permissions {
		if err := f.role.Grant(p); err != nil {
			return nil, err
		}
	}

	// 6. Destino de falha
	if lc.OnFailure != nil {
		if err := f.setOnFailure(lc.OnFailure); err != nil {
			return nil, err
		}
	}

	// 7. Origens de eventos
	for _, ev := range lc.Events {
		if err := f.AddEventSource(ev); err != nil {
			return nil, err
		}
	}

	// 8. Log group
	if lc.LogRetentionDays != nil {
		cw := &repository.CWLogsRepository{Scope: f}
		f.logGroup, err = cw.DeclareLogGroup("LogGroup", "/aws/lambda/"+f.FunctionName(), *lc.LogRetentionDays)
		if err != nil {
			return nil, err
		}
	}

	n.AddValidation(f.validate)
	return f, nil
}

// Node implementa construct.Construct.
func (f *ManagedFunction) Node() *construct.Node { return f.node }

// FunctionName é o nome informado ou o token do nome gerado pelo provedor.
func (f *ManagedFunction) FunctionName() string {
	if f.config.FunctionName != nil {
		return *f.config.FunctionName
	}
	return f.resource.Attr("FunctionName")
}

// FunctionArn é o token do ARN da função.
func (f *ManagedFunction) FunctionArn() string { return f.resource.Attr("FunctionArn") }

// Role retorna a role de execução.
func (f *ManagedFunction) Role() *Role { return f.role }

// Code retorna o asset com o código empacotado.
func (f *ManagedFunction) Code() *construct.Asset { return f.code }

// Resource retorna a declaração lambda:CreateFunction.
func (f *ManagedFunction) Resource() *construct.Resource { return f.resource }

// Declaration retorna o CreateFunctionInput declarado.
func (f *ManagedFunction) Declaration() *lambda.CreateFunctionInput { return f.input }

// InitialPolicy retorna os statements da política inline da role.
func (f *ManagedFunction) InitialPolicy() []dto.PolicyStatement { return f.role.Statements() }

// AddToRolePolicy acrescenta um statement à política inicial.
func (f *ManagedFunction) AddToRolePolicy(stmt dto.PolicyStatement) error {
	return f.role.AddToPolicy(stmt)
}

func (f *ManagedFunction) setOnFailure(topic dto.TopicRef) error {
	topicArn := topic.TopicArn()
	if err := f.role.AddToPolicy(dto.Allow([]string{"sns:Publish"}, topicArn)); err != nil {
		return err
	}

	var err error
	f.invokeConfig, err = f.repo.DeclareEventInvokeConfig("EventInvokeConfig", f.FunctionName(), topicArn)
	if err != nil {
		return err
	}
	f.invokeConfig.AddDependency(f.resource)
	f.node.AddValidation(func() diag.Diagnostics {
		return construct.CheckARN(topicArn, "on_failure")
	})
	return nil
}

func (f *ManagedFunction) vpcConfig(network *dto.Network) (*lambdatypes.VpcConfig, error) {
	if network == nil {
		return nil, nil
	}

	groups := append([]string(nil), network.SecurityGroupIDs...)
	if len(groups) == 0 && network.VpcID != "" {
		ec2Repo := &repository.EC2Repository{Scope: f}
		sg, err := ec2Repo.DeclareSecurityGroup("SecurityGroup", network.VpcID,
			"Automatic security group for function "+f.node.Path())
		if err != nil {
			return nil, err
		}
		f.securityGroup = sg
		groups = append(groups, sg.Attr("GroupId"))
	}

	return &lambdatypes.VpcConfig{
		SubnetIds:        append([]string(nil), network.SubnetIDs...),
		SecurityGroupIds: groups,
	}, nil
}

func (f *ManagedFunction) validate() diag.Diagnostics {
	var diags diag.Diagnostics
	lc := f.config

	if f.code.Err() == nil {
		if _, err := os.Stat(filepath.Join(lc.Entry, EntryFile)); err != nil {
			diags = append(diags, diag.Errorf("entry %s has no %s: %v", lc.Entry, EntryFile, err)...)
		}
	}
	if lc.FunctionName != nil {
		diags = append(diags, construct.Check(validation.StringLenBetween(1, 64), *lc.FunctionName, "function_name")...)
		diags = append(diags, construct.Check(validation.StringMatch(functionNamePattern,
			"must contain only letters, numbers, hyphens or underscores"), *lc.FunctionName, "function_name")...)
	}
	if lc.MemorySize != nil {
		diags = append(diags, construct.Check(validation.IntBetween(128, 10240), int(*lc.MemorySize), "memory_size")...)
	}
	if lc.EphemeralStorageSize != nil {
		diags = append(diags, construct.Check(validation.IntBetween(512, 10240), int(*lc.EphemeralStorageSize), "ephemeral_storage")...)
	}
	if lc.Timeout != 0 {
		diags = append(diags, construct.Check(validation.IntBetween(1, 900), int(lc.Timeout/time.Second), "timeout")...)
		if lc.Timeout%time.Second != 0 {
			diags = append(diags, diag.Diagnostic{Severity: diag.Warning, Summary: fmt.Sprintf("timeout %s truncated to whole seconds", lc.Timeout)})
		}
	}
	if lc.LogRetentionDays != nil {
		diags = append(diags, construct.Check(validation.IntInSlice(logRetentionDays), int(*lc.LogRetentionDays), "log_retention_days")...)
	}
	if lc.Network != nil {
		if len(lc.Network.SubnetIDs) == 0 {
			diags = append(diags, diag.Errorf("network: at least one subnet is required")...)
		}
		if len(lc.Network.SecurityGroupIDs) == 0 && lc.Network.VpcID == "" {
			diags = append(diags, diag.Errorf("network: either vpc_id or security_group_ids is required")...)
		}
	}
	return diags
}

// valores aceitos por logs:PutRetentionPolicy
var logRetentionDays = []int{1, 3, 5, 7, 14, 30, 60, 90, 120, 150, 180, 365, 400, 545, 731, 1096, 1827, 2192, 2557, 2922, 3288, 3653}
