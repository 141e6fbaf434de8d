package repository

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// PolicyVersion é a versão da linguagem de políticas IAM.
const PolicyVersion = "2012-10-17"

// IAMRepository declara roles, políticas inline e anexos de políticas gerenciadas.
type IAMRepository struct {
	Scope construct.Construct
}

// DeclareRole declara a Role com a política de confiança do serviço informado.
func (r *IAMRepository) DeclareRole(id, servicePrincipal string, description *string) (*construct.Resource, error) {
	return construct.NewResource(r.Scope, id, "iam:CreateRole", &iam.CreateRoleInput{
		AssumeRolePolicyDocument: aws.String(AssumeRoleDocument(servicePrincipal)),
		Description:              description,
	})
}

// DeclareInlinePolicy declara a política inline (PutRolePolicy) da Role.
func (r *IAMRepository) DeclareInlinePolicy(id, roleName, policyName string, statements []dto.PolicyStatement) (*construct.Resource, *iam.PutRolePolicyInput, error) {
	doc, err := PolicyDocument(statements)
	if err != nil {
		return nil, nil, err
	}
	in := &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(doc),
	}
	res, err := construct.NewResource(r.Scope, id, "iam:PutRolePolicy", in)
	if err != nil {
		return nil, nil, err
	}
	return res, in, nil
}

// DeclareAttachment anexa uma política gerenciada à Role.
func (r *IAMRepository) DeclareAttachment(id, roleName, policyArn string) (*construct.Resource, error) {
	return construct.NewResource(r.Scope, id, "iam:AttachRolePolicy", &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
}

// AssumeRoleDocument monta a política de confiança para um service principal.
func AssumeRoleDocument(servicePrincipal string) string {
	return fmt.Sprintf(`{"Version":"%s","Statement":[{"Effect":"Allow","Principal":{"Service":"%s"},"Action":"sts:AssumeRole"}]}`,
		PolicyVersion, servicePrincipal)
}

type policyDocument struct {
	Version   string                `json:"Version"`
	Statement []dto.PolicyStatement `json:"Statement"`
}

// PolicyDocument serializa os statements na ordem recebida. Effect vazio vira "Allow".
func PolicyDocument(statements []dto.PolicyStatement) (string, error) {
	doc := policyDocument{Version: PolicyVersion, Statement: make([]dto.PolicyStatement, len(statements))}
	for i, s := range statements {
		if s.Effect == "" {
			s.Effect = "Allow"
		}
		doc.Statement[i] = s
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding policy document: %w", err)
	}
	return string(b), nil
}
