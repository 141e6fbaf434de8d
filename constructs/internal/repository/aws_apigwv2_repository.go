package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	apigwv2 "github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	apigwv2types "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"

	"github.com/raywall/raysouz-constructs/pkg/construct"
)

// PayloadFormatVersion é o formato de evento entregue à função pela HTTP API.
const PayloadFormatVersion = "2.0"

// APIGWv2Repository declara rotas da AWS API Gateway (v2, HTTP API).
type APIGWv2Repository struct {
	Scope construct.Construct
}

// DeclareRoute declara a integração Lambda Proxy e a rota que aponta para ela.
func (r *APIGWv2Repository) DeclareRoute(apiID, routeKey, functionArn string) (*construct.Resource, *construct.Resource, error) {
	integration, err := construct.NewResource(r.Scope, "Integration", "apigatewayv2:CreateIntegration", &apigwv2.CreateIntegrationInput{
		ApiId:                aws.String(apiID),
		IntegrationType:      apigwv2types.IntegrationTypeAwsProxy,
		IntegrationUri:       aws.String(functionArn),
		PayloadFormatVersion: aws.String(PayloadFormatVersion),
	})
	if err != nil {
		return nil, nil, err
	}

	route, err := construct.NewResource(r.Scope, "Route", "apigatewayv2:CreateRoute", &apigwv2.CreateRouteInput{
		ApiId:    aws.String(apiID),
		RouteKey: aws.String(routeKey),
		Target:   aws.String("integrations/" + integration.Attr("IntegrationId")),
	})
	if err != nil {
		return nil, nil, err
	}
	return integration, route, nil
}
