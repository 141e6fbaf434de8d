package repository

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	apigw "github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"

	"github.com/raywall/raysouz-constructs/pkg/construct"
)

// APIGWRepository declara rotas da AWS API Gateway (v1, REST).
type APIGWRepository struct {
	Scope construct.Construct
}

// DeclarePath declara um recurso APIGW por segmento do caminho, retornando o
// token do ID do recurso final. Um caminho vazio usa o recurso raiz.
func (r *APIGWRepository) DeclarePath(apiID, rootID, path string) (string, []*construct.Resource, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return rootID, nil, nil
	}

	var declared []*construct.Resource
	currentParentID := rootID
	for i, part := range strings.Split(path, "/") {
		res, err := construct.NewResource(r.Scope, fmt.Sprintf("PathPart%d", i), "apigateway:CreateResource", &apigw.CreateResourceInput{
			RestApiId: aws.String(apiID),
			ParentId:  aws.String(currentParentID),
			PathPart:  aws.String(part),
		})
		if err != nil {
			return "", nil, fmt.Errorf("CreateResource failed for path %s: %w", path, err)
		}
		declared = append(declared, res)
		currentParentID = res.Attr("Id")
	}
	return currentParentID, declared, nil
}

// DeclareMethodAndIntegration declara o Método, a Integração Lambda Proxy e as respostas 200.
func (r *APIGWRepository) DeclareMethodAndIntegration(apiID, resourceID, httpMethod, functionArn, authorization, authorizerID string) ([]*construct.Resource, error) {
	if authorization == "" {
		authorization = "NONE"
	}

	// 1. Put Method
	method := &apigw.PutMethodInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(resourceID),
		HttpMethod:        aws.String(httpMethod),
		AuthorizationType: aws.String(authorization),
		ApiKeyRequired:    false,
	}
	if authorization != "NONE" && authorizerID != "" {
		method.AuthorizerId = aws.String(authorizerID)
	}
	m, err := construct.NewResource(r.Scope, "Method", "apigateway:PutMethod", method)
	if err != nil {
		return nil, err
	}

	// 2. Put Integration (AWS_PROXY)
	uri := fmt.Sprintf("arn:%s:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations",
		construct.PseudoPartition, construct.PseudoRegion, functionArn)
	integration, err := construct.NewResource(r.Scope, "Integration", "apigateway:PutIntegration", &apigw.PutIntegrationInput{
		RestApiId:             aws.String(apiID),
		ResourceId:            aws.String(resourceID),
		HttpMethod:            aws.String(httpMethod),
		Type:                  apigwtypes.IntegrationTypeAwsProxy,
		IntegrationHttpMethod: aws.String("POST"),
		Uri:                   aws.String(uri),
	})
	if err != nil {
		return nil, err
	}
	integration.AddDependency(m)

	// 3. Put Method Response (200)
	methodResponse, err := construct.NewResource(r.Scope, "MethodResponse", "apigateway:PutMethodResponse", &apigw.PutMethodResponseInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(resourceID),
		HttpMethod: aws.String(httpMethod),
		StatusCode: aws.String("200"),
	})
	if err != nil {
		return nil, err
	}
	methodResponse.AddDependency(m)

	// 4. Put Integration Response (200)
	integrationResponse, err := construct.NewResource(r.Scope, "IntegrationResponse", "apigateway:PutIntegrationResponse", &apigw.PutIntegrationResponseInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(resourceID),
		HttpMethod: aws.String(httpMethod),
		StatusCode: aws.String("200"),
	})
	if err != nil {
		return nil, err
	}
	integrationResponse.AddDependency(integration, methodResponse)

	return []*construct.Resource{m, integration, methodResponse, integrationResponse}, nil
}

// DeclareDeployment declara um deployment no estágio informado.
func (r *APIGWRepository) DeclareDeployment(apiID, stageName string) (*construct.Resource, error) {
	return construct.NewResource(r.Scope, "Deployment", "apigateway:CreateDeployment", &apigw.CreateDeploymentInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stageName),
	})
}
