package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	glue "github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// GlueRepository declara jobs do AWS Glue.
type GlueRepository struct {
	Scope         construct.Construct
	GlueVersion   string
	Command       string
	PythonVersion string
}

// DeclareJob mapeia o BatchJobConfig para o CreateJobInput. arguments já deve
// estar normalizado pelo chamador.
func (r *GlueRepository) DeclareJob(id string, jc *dto.BatchJobConfig, roleArn, scriptLocation string, arguments map[string]string) (*construct.Resource, *glue.CreateJobInput, error) {
	in := &glue.CreateJobInput{
		Name:        jc.JobName,
		Description: jc.Description,
		Role:        aws.String(roleArn),
		GlueVersion: aws.String(r.GlueVersion),
		Command: &gluetypes.JobCommand{
			Name:           aws.String(r.Command),
			PythonVersion:  aws.String(r.PythonVersion),
			ScriptLocation: aws.String(scriptLocation),
		},
		DefaultArguments: arguments,
	}
	if jc.MaxConcurrentRuns != nil {
		in.ExecutionProperty = &gluetypes.ExecutionProperty{MaxConcurrentRuns: *jc.MaxConcurrentRuns}
	}

	res, err := construct.NewResource(r.Scope, id, "glue:CreateJob", in)
	if err != nil {
		return nil, nil, err
	}
	return res, in, nil
}
