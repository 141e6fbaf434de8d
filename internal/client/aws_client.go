package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"
	sts "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// STSAPI é o subconjunto do cliente STS usado aqui.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IAMAPI é o subconjunto do cliente IAM usado aqui.
type IAMAPI interface {
	GetPolicy(ctx context.Context, in *iam.GetPolicyInput, optFns ...func(*iam.Options)) (*iam.GetPolicyOutput, error)
}

// AWSClient contém os clientes usados pela CLI para consultas somente leitura.
type AWSClient struct {
	Config    aws.Config
	IAM       IAMAPI
	STS       STSAPI
	Region    string
	AccountID string
}

// New cria um novo AWSClient para a região fornecida (vazia usa a cadeia padrão)
// e pré-carrega o AccountID.
func New(ctx context.Context, region string) (*AWSClient, error) {
	opts := []func(*config.LoadOptions) error{config.WithRetryer(func() aws.Retryer { return newRetryer() })}
	if strings.TrimSpace(region) != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := &AWSClient{
		Config: cfg,
		IAM:    iam.NewFromConfig(cfg),
		STS:    sts.NewFromConfig(cfg),
		Region: cfg.Region,
	}

	accountID, err := getAccountID(ctx, client.STS)
	if err != nil {
		return nil, err
	}
	client.AccountID = accountID

	return client, nil
}

// MaxAttempts é o total de tentativas por chamada, incluindo a primeira.
const MaxAttempts = 4

// newRetryer usa o retryer padrão do SDK (backoff exponencial com jitter em
// throttling e erros transitórios).
func newRetryer(optFns ...func(*retry.StandardOptions)) aws.Retryer {
	return retry.AddWithMaxAttempts(retry.NewStandard(optFns...), MaxAttempts)
}

func getAccountID(ctx context.Context, stsClient STSAPI) (string, error) {
	result, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("getting account ID: %w", err)
	}
	return aws.ToString(result.Account), nil
}

// PolicyExists informa se a política gerenciada existe. Throttling fica a
// cargo do retryer do SDK configurado em New.
func (c *AWSClient) PolicyExists(ctx context.Context, policyArn string) (bool, error) {
	_, err := c.IAM.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(policyArn)})
	switch {
	case err == nil:
		return true, nil
	case isAPIErrorCode(err, "NoSuchEntity"):
		return false, nil
	default:
		return false, fmt.Errorf("GetPolicy %s: %w", policyArn, err)
	}
}

// isAPIErrorCode compara o código de um smithy.APIError.
func isAPIErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}

// MissingPolicies retorna, na ordem, os ARNs que não existem na conta.
func (c *AWSClient) MissingPolicies(ctx context.Context, policyArns []string) ([]string, error) {
	var missing []string
	for _, arn := range policyArns {
		ok, err := c.PolicyExists(ctx, arn)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, arn)
		}
	}
	return missing, nil
}
