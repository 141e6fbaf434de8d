package constructs

import (
	"fmt"
	"path/filepath"
	"strings"

	glue "github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/validation"

	"github.com/raywall/raysouz-constructs/constructs/internal/repository"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// Versões fixas do job.
const (
	GlueVersion       = "4.0"
	GlueCommand       = "glueetl"
	GluePythonVersion = "3"
)

// Políticas base da role do job. Não podem ser removidas pelo chamador.
const (
	StorageAccessPolicy = "AmazonS3FullAccess"
	GlueServicePolicy   = "service-role/AWSGlueServiceRole"
)

// Argumentos especiais do Glue.
const (
	ArgJobLanguage   = "--job-language"
	ArgExtraPyFiles  = "--extra-py-files"
	ArgEnableMetrics = "--enable-metrics"
)

// ManagedBatchJob declara um job Glue (Spark, Python) cujo script segue a
// convenção <base>/glue/<id>.py.
type ManagedBatchJob struct {
	node         *construct.Node
	config       dto.BatchJobConfig
	role         *Role
	script       *construct.Asset
	dependencies []*construct.Asset
	resource     *construct.Resource
	input        *glue.CreateJobInput
}

// ScriptPath resolve o script do job id a partir de base.
func ScriptPath(base, id string) string {
	return filepath.Join(base, "glue", id+".py")
}

// NewManagedBatchJob declara a role, os assets do script e das dependências e o job.
func NewManagedBatchJob(scope construct.Construct, id, basePath string, jc *dto.BatchJobConfig) (*ManagedBatchJob, error) {
	if jc == nil {
		jc = &dto.BatchJobConfig{}
	}
	j := &ManagedBatchJob{config: *jc}
	n, err := construct.NewNode(scope, id, j)
	if err != nil {
		return nil, err
	}
	j.node = n

	j.role, err = NewRole(j, "Role", RoleProps{
		AssumedBy: "glue.amazonaws.com",
		ManagedPolicies: []dto.ManagedPolicy{
			dto.AWSManagedPolicy(StorageAccessPolicy),
			dto.AWSManagedPolicy(GlueServicePolicy),
		},
	})
	if err != nil {
		return nil, err
	}
	for _, p := range jc.Permissions {
		if err := j.role.Grant(p); err != nil {
			return nil, err
		}
	}

	j.script, err = construct.NewAsset(j, "Script", construct.AssetProps{Path: ScriptPath(basePath, id)})
	if err != nil {
		return nil, err
	}
	j.dependencies = make([]*construct.Asset, 0, len(jc.ExtraDependencies))
	for i, dep := range jc.ExtraDependencies {
		a, err := construct.NewAsset(j, fmt.Sprintf("Dependency%d", i), construct.AssetProps{Path: dep})
		if err != nil {
			return nil, err
		}
		j.dependencies = append(j.dependencies, a)
	}

	repo := &repository.GlueRepository{
		Scope:         j,
		GlueVersion:   GlueVersion,
		Command:       GlueCommand,
		PythonVersion: GluePythonVersion,
	}
	j.resource, j.input, err = repo.DeclareJob("Resource", jc, j.role.Arn(), j.script.S3URL(), j.arguments())
	if err != nil {
		return nil, err
	}
	j.role.mustPrecede(j.resource)

	n.AddValidation(j.validate)
	return j, nil
}

// Node implementa construct.Construct.
func (j *ManagedBatchJob) Node() *construct.Node { return j.node }

// JobName é o nome informado ou o token do nome gerado.
func (j *ManagedBatchJob) JobName() string {
	if j.config.JobName != nil {
		return *j.config.JobName
	}
	return j.resource.Attr("Name")
}

// Role retorna a role de execução do job.
func (j *ManagedBatchJob) Role() *Role { return j.role }

// Script retorna o asset do script.
func (j *ManagedBatchJob) Script() *construct.Asset { return j.script }

// Dependencies retorna os assets das dependências extras. Nunca é nil.
func (j *ManagedBatchJob) Dependencies() []*construct.Asset {
	out := make([]*construct.Asset, len(j.dependencies))
	copy(out, j.dependencies)
	return out
}

// Resource retorna a declaração glue:CreateJob.
func (j *ManagedBatchJob) Resource() *construct.Resource { return j.resource }

// Declaration retorna o CreateJobInput declarado.
func (j *ManagedBatchJob) Declaration() *glue.CreateJobInput { return j.input }

func (j *ManagedBatchJob) arguments() map[string]string {
	args := make(map[string]string, len(j.config.DefaultArguments)+2)
	for k, v := range j.config.DefaultArguments {
		args[k] = v
	}
	delete(args, ArgEnableMetrics)
	args[ArgJobLanguage] = "python"

	if len(j.dependencies) > 0 {
		urls := make([]string, 0, len(j.dependencies))
		for _, d := range j.dependencies {
			urls = append(urls, d.S3URL())
		}
		args[ArgExtraPyFiles] = strings.Join(urls, ",")
	}
	return args
}

func (j *ManagedBatchJob) validate() diag.Diagnostics {
	var diags diag.Diagnostics
	if j.config.JobName != nil {
		diags = append(diags, construct.Check(validation.StringLenBetween(1, 255), *j.config.JobName, "job_name")...)
	}
	if j.config.MaxConcurrentRuns != nil {
		diags = append(diags, construct.Check(validation.IntAtLeast(1), int(*j.config.MaxConcurrentRuns), "max_concurrent_runs")...)
	}
	return diags
}
