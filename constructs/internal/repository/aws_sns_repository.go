package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	sns "github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// SNSRepository declara tópicos e assinaturas do SNS.
type SNSRepository struct {
	Scope construct.Construct
}

// DeclareTopic declara o tópico.
func (r *SNSRepository) DeclareTopic(id string, tc *dto.TopicConfig) (*construct.Resource, error) {
	attrs := map[string]string{}
	if tc.DisplayName != nil {
		attrs["DisplayName"] = *tc.DisplayName
	}
	if tc.FIFO {
		attrs["FifoTopic"] = "true"
	}
	return construct.NewResource(r.Scope, id, "sns:CreateTopic", &sns.CreateTopicInput{
		Name:       tc.TopicName,
		Attributes: attrs,
	})
}

// DeclareSubscription assina endpoint no tópico.
func (r *SNSRepository) DeclareSubscription(id, topicArn, protocol, endpoint string) (*construct.Resource, error) {
	return construct.NewResource(r.Scope, id, "sns:Subscribe", &sns.SubscribeInput{
		TopicArn: aws.String(topicArn),
		Protocol: aws.String(protocol),
		Endpoint: aws.String(endpoint),
	})
}
