package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/raywall/raysouz-constructs/pkg/construct"
)

// CWLogsRepository declara Log Groups do CloudWatch Logs.
type CWLogsRepository struct {
	Scope construct.Construct
}

// DeclareLogGroup declara o Log Group e, depois dele, a política de retenção.
func (r *CWLogsRepository) DeclareLogGroup(id, name string, retentionDays int32) (*construct.Resource, error) {
	group, err := construct.NewResource(r.Scope, id, "logs:CreateLogGroup", &cw.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil {
		return nil, err
	}

	retention, err := construct.NewResource(r.Scope, id+"Retention", "logs:PutRetentionPolicy", &cw.PutRetentionPolicyInput{
		LogGroupName:    aws.String(name),
		RetentionInDays: aws.Int32(retentionDays),
	})
	if err != nil {
		return nil, err
	}
	retention.AddDependency(group)
	return group, nil
}
