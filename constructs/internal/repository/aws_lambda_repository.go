package repository

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// LambdaRepository declara funções Lambda e os recursos ligados a elas.
type LambdaRepository struct {
	Scope   construct.Construct
	Runtime types.Runtime
	Handler string
}

// DeclareFunction mapeia o FunctionConfig para o CreateFunctionInput.
// Campos opcionais só são preenchidos quando presentes.
func (r *LambdaRepository) DeclareFunction(id string, lc *dto.FunctionConfig, code *construct.Asset, roleArn string, vpc *types.VpcConfig) (*construct.Resource, *lambda.CreateFunctionInput, error) {
	in := &lambda.CreateFunctionInput{
		FunctionName: lc.FunctionName,
		Description:  lc.Description,
		Role:         aws.String(roleArn),
		Handler:      aws.String(r.Handler),
		Runtime:      r.Runtime,
		PackageType:  types.PackageTypeZip,
		Code: &types.FunctionCode{
			S3Bucket: aws.String(code.Bucket()),
			S3Key:    aws.String(code.ObjectKey()),
		},
		MemorySize: lc.MemorySize,
		VpcConfig:  vpc,
	}
	if lc.EphemeralStorageSize != nil {
		in.EphemeralStorage = &types.EphemeralStorage{Size: lc.EphemeralStorageSize}
	}
	if len(lc.Environment) > 0 {
		vars := make(map[string]string, len(lc.Environment))
		for k, v := range lc.Environment {
			vars[k] = v
		}
		in.Environment = &types.Environment{Variables: vars}
	}
	if lc.Timeout != 0 {
		in.Timeout = aws.Int32(int32(lc.Timeout / time.Second))
	}

	res, err := construct.NewResource(r.Scope, id, "lambda:CreateFunction", in)
	if err != nil {
		return nil, nil, err
	}
	return res, in, nil
}

// DeclareEventInvokeConfig declara o destino de falha das invocações assíncronas.
func (r *LambdaRepository) DeclareEventInvokeConfig(id, functionName, onFailureArn string) (*construct.Resource, error) {
	return construct.NewResource(r.Scope, id, "lambda:PutFunctionEventInvokeConfig", &lambda.PutFunctionEventInvokeConfigInput{
		FunctionName: aws.String(functionName),
		DestinationConfig: &types.DestinationConfig{
			OnFailure: &types.OnFailure{Destination: aws.String(onFailureArn)},
		},
	})
}

// DeclareEventSourceMapping declara uma origem de eventos por polling (SQS, Kinesis, DynamoDB).
func (r *LambdaRepository) DeclareEventSourceMapping(id string, in *lambda.CreateEventSourceMappingInput) (*construct.Resource, error) {
	return construct.NewResource(r.Scope, id, "lambda:CreateEventSourceMapping", in)
}

// MaxStatementIDLength é o limite do Lambda para StatementId.
const MaxStatementIDLength = 100

// StatementID monta "<prefix>-<logicalID>" dentro do limite do Lambda,
// cortando a parte legível e preservando o sufixo de hash do logical ID.
func StatementID(prefix, logicalID string) string {
	id := prefix + "-" + logicalID
	if len(id) <= MaxStatementIDLength {
		return id
	}
	const suffix = 8
	if len(logicalID) <= suffix {
		return id[:MaxStatementIDLength]
	}
	keep := MaxStatementIDLength - len(prefix) - 1 - suffix
	if keep < 0 {
		return id[len(id)-MaxStatementIDLength:]
	}
	readable := logicalID[:len(logicalID)-suffix]
	return prefix + "-" + readable[:keep] + logicalID[len(logicalID)-suffix:]
}

// DeclarePermission adiciona permissão de invocação para um service principal.
func (r *LambdaRepository) DeclarePermission(id, functionName, principal, sourceArn string) (*construct.Resource, error) {
	prefix, _, _ := strings.Cut(principal, ".")
	statementID := StatementID(prefix, construct.LogicalID(r.Scope.Node()))

	return construct.NewResource(r.Scope, id, "lambda:AddPermission", &lambda.AddPermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(statementID),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String(principal),
		SourceArn:    aws.String(sourceArn),
	})
}
