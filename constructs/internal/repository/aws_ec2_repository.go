package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2 "github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/raywall/raysouz-constructs/pkg/construct"
)

// EC2Repository declara recursos de rede do EC2.
type EC2Repository struct {
	Scope construct.Construct
}

// DeclareSecurityGroup declara um security group na VPC. O nome é derivado do
// ID lógico para ser único na stack.
func (r *EC2Repository) DeclareSecurityGroup(id, vpcID, description string) (*construct.Resource, error) {
	res, err := construct.NewResource(r.Scope, id, "ec2:CreateSecurityGroup", &ec2.CreateSecurityGroupInput{
		VpcId:       aws.String(vpcID),
		Description: aws.String(description),
	})
	if err != nil {
		return nil, err
	}
	res.Properties.(*ec2.CreateSecurityGroupInput).GroupName = aws.String(res.LogicalID())
	return res, nil
}
