package constructs

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"

	"github.com/raywall/raysouz-constructs/constructs/internal/repository"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// DefaultPolicyName é o nome da política inline de toda Role declarada aqui.
const DefaultPolicyName = "DefaultPolicy"

// RoleProps configura uma Role.
type RoleProps struct {
	AssumedBy       string // service principal, ex.: "lambda.amazonaws.com"
	Description     *string
	ManagedPolicies []dto.ManagedPolicy
}

// Role é uma role de execução. Statements vão para a política inline
// DefaultPolicy, políticas gerenciadas viram anexos criados depois da Role.
type Role struct {
	node        *construct.Node
	repo        *repository.IAMRepository
	resource    *construct.Resource
	policy      *construct.Resource
	policyInput *iam.PutRolePolicyInput
	statements  []dto.PolicyStatement
	managed     []string
	attachments []*construct.Resource
	dependents  []*construct.Resource
}

// NewRole declara a Role e anexa props.ManagedPolicies.
func NewRole(scope construct.Construct, id string, props RoleProps) (*Role, error) {
	r := &Role{}
	n, err := construct.NewNode(scope, id, r)
	if err != nil {
		return nil, err
	}
	r.node = n
	r.repo = &repository.IAMRepository{Scope: r}

	r.resource, err = r.repo.DeclareRole("Resource", props.AssumedBy, props.Description)
	if err != nil {
		return nil, err
	}
	for _, p := range props.ManagedPolicies {
		if err := r.AddManagedPolicy(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Node implementa construct.Construct.
func (r *Role) Node() *construct.Node { return r.node }

// Arn é o token do ARN da Role.
func (r *Role) Arn() string { return r.resource.Attr("Role.Arn") }

// RoleName é o token do nome da Role.
func (r *Role) RoleName() string { return r.resource.Attr("Role.RoleName") }

// Resource retorna a declaração iam:CreateRole.
func (r *Role) Resource() *construct.Resource { return r.resource }

// Statements retorna os statements da política inicial, na ordem em que foram adicionados.
func (r *Role) Statements() []dto.PolicyStatement {
	out := make([]dto.PolicyStatement, len(r.statements))
	copy(out, r.statements)
	return out
}

// ManagedPolicyArns retorna as políticas gerenciadas anexadas, na ordem.
func (r *Role) ManagedPolicyArns() []string {
	out := make([]string, len(r.managed))
	copy(out, r.managed)
	return out
}

// PolicyDocument retorna o documento da política inline, vazio se não houver statements.
func (r *Role) PolicyDocument() string {
	if r.policyInput == nil {
		return ""
	}
	return aws.ToString(r.policyInput.PolicyDocument)
}

// Grant aplica uma Permission conforme a variante.
func (r *Role) Grant(p dto.Permission) error {
	switch v := p.(type) {
	case dto.PolicyStatement:
		return r.AddToPolicy(v)
	case *dto.PolicyStatement:
		if v == nil {
			return fmt.Errorf("%s: nil policy statement", r.node.Path())
		}
		return r.AddToPolicy(*v)
	case dto.ManagedPolicy:
		return r.AddManagedPolicy(v)
	case *dto.ManagedPolicy:
		if v == nil {
			return fmt.Errorf("%s: nil managed policy", r.node.Path())
		}
		return r.AddManagedPolicy(*v)
	default:
		return fmt.Errorf("%s: unsupported permission %T", r.node.Path(), p)
	}
}

// AddToPolicy acrescenta um statement à política inline, criando-a na primeira chamada.
func (r *Role) AddToPolicy(stmt dto.PolicyStatement) error {
	r.statements = append(r.statements, stmt)
	idx := len(r.statements) - 1
	r.node.AddValidation(func() diag.Diagnostics {
		if len(stmt.Actions) == 0 || len(stmt.Resources) == 0 {
			return diag.Errorf("policy statement %d must have at least one action and one resource", idx)
		}
		if stmt.Effect != "" && stmt.Effect != "Allow" && stmt.Effect != "Deny" {
			return diag.Errorf("policy statement %d: invalid effect %q", idx, stmt.Effect)
		}
		return nil
	})

	doc, err := repository.PolicyDocument(r.statements)
	if err != nil {
		return err
	}
	if r.policy != nil {
		r.policyInput.PolicyDocument = aws.String(doc)
		return nil
	}

	r.policy, r.policyInput, err = r.repo.DeclareInlinePolicy(DefaultPolicyName, r.RoleName(), DefaultPolicyName, r.statements)
	if err != nil {
		return err
	}
	r.wire(r.policy)
	return nil
}

// AddManagedPolicy anexa uma política gerenciada depois da criação da Role.
func (r *Role) AddManagedPolicy(p dto.ManagedPolicy) error {
	id := fmt.Sprintf("ManagedPolicy%d", len(r.attachments))
	res, err := r.repo.DeclareAttachment(id, r.RoleName(), p.Arn)
	if err != nil {
		return err
	}
	r.node.AddValidation(func() diag.Diagnostics {
		return construct.CheckARN(p.Arn, "managed_policy")
	})
	r.managed = append(r.managed, p.Arn)
	r.attachments = append(r.attachments, res)
	r.wire(res)
	return nil
}

// mustPrecede faz o recurso depender de todos os grants, atuais e futuros.
func (r *Role) mustPrecede(dependent *construct.Resource) {
	r.dependents = append(r.dependents, dependent)
	dependent.AddDependency(r.resource)
	if r.policy != nil {
		dependent.AddDependency(r.policy)
	}
	dependent.AddDependency(r.attachments...)
}

func (r *Role) wire(grant *construct.Resource) {
	for _, d := range r.dependents {
		d.AddDependency(grant)
	}
}
