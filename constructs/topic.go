package constructs

import (
	"strings"

	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"

	"github.com/raywall/raysouz-constructs/constructs/internal/repository"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// Topic declara um tópico SNS na stack. Implementa dto.TopicRef.
type Topic struct {
	node     *construct.Node
	resource *construct.Resource
}

// NewTopic declara o tópico. tc nil usa os padrões do SNS.
func NewTopic(scope construct.Construct, id string, tc *dto.TopicConfig) (*Topic, error) {
	if tc == nil {
		tc = &dto.TopicConfig{}
	}
	t := &Topic{}
	n, err := construct.NewNode(scope, id, t)
	if err != nil {
		return nil, err
	}
	t.node = n

	repo := &repository.SNSRepository{Scope: t}
	t.resource, err = repo.DeclareTopic("Resource", tc)
	if err != nil {
		return nil, err
	}
	if tc.FIFO && tc.TopicName != nil {
		name := *tc.TopicName
		n.AddValidation(func() diag.Diagnostics {
			if !strings.HasSuffix(name, ".fifo") {
				return diag.Errorf("fifo topic name %q must end with .fifo", name)
			}
			return nil
		})
	}
	return t, nil
}

// Node implementa construct.Construct.
func (t *Topic) Node() *construct.Node { return t.node }

// TopicArn é o token do ARN do tópico.
func (t *Topic) TopicArn() string { return t.resource.Attr("TopicArn") }

// Resource retorna a declaração sns:CreateTopic.
func (t *Topic) Resource() *construct.Resource { return t.resource }
