// Package manifest lê o arquivo YAML de stack usado pela CLI e o converte nos
// DTOs de pkg/types.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StackFile é a raiz do arquivo de stack.
type StackFile struct {
	Stack              string          `yaml:"stack"`
	Description        string          `yaml:"description"`
	Account            string          `yaml:"account"`
	Region             string          `yaml:"region"`
	AssetBucket        string          `yaml:"asset_bucket"`
	Topics             []Topic         `yaml:"topics"`
	Functions          []Function      `yaml:"functions"`
	ScheduledFunctions []ScheduledFunc `yaml:"scheduled_functions"`
	BatchJobs          []BatchJob      `yaml:"batch_jobs"`

	// diretório do arquivo; caminhos relativos são resolvidos a partir dele
	dir string
}

// Topic declara um tópico SNS da stack, referenciável por id.
type Topic struct {
	ID          string  `yaml:"id"`
	Name        *string `yaml:"name"`
	DisplayName *string `yaml:"display_name"`
	FIFO        bool    `yaml:"fifo"`
}

// Function descreve uma ManagedFunction. Timeout usa a sintaxe de time.ParseDuration.
type Function struct {
	ID                   string            `yaml:"id"`
	Entry                string            `yaml:"entry"`
	FunctionName         *string           `yaml:"function_name"`
	Description          *string           `yaml:"description"`
	MemorySize           *int32            `yaml:"memory_size"`
	EphemeralStorageSize *int32            `yaml:"ephemeral_storage"`
	Timeout              string            `yaml:"timeout"`
	Environment          map[string]string `yaml:"environment"`
	LogRetentionDays     *int32            `yaml:"log_retention_days"`
	Permissions          []Permission      `yaml:"permissions"`
	OnFailure            string            `yaml:"on_failure"` // id de tópico da stack ou ARN
	Network              *Network          `yaml:"network"`
	Events               []Event           `yaml:"events"`
}

// ScheduledFunc é uma Function com o agendamento que a invoca.
type ScheduledFunc struct {
	Function `yaml:",inline"`
	Schedule Schedule `yaml:"schedule"`
}

// Schedule é a expressão cron e a entrada estática opcional.
type Schedule struct {
	Cron  string `yaml:"cron"`
	Input any    `yaml:"input"`
}

// BatchJob descreve um job Glue; o script fica em <base_path>/glue/<id>.py.
type BatchJob struct {
	ID                string            `yaml:"id"`
	BasePath          string            `yaml:"base_path"`
	JobName           *string           `yaml:"job_name"`
	Description       *string           `yaml:"description"`
	MaxConcurrentRuns *int32            `yaml:"max_concurrent_runs"`
	DefaultArguments  map[string]string `yaml:"default_arguments"`
	ExtraDependencies []string          `yaml:"extra_dependencies"`
	Permissions       []Permission      `yaml:"permissions"`
}

// Network é a configuração de VPC da função.
type Network struct {
	VpcID            string   `yaml:"vpc_id"`
	SubnetIDs        []string `yaml:"subnet_ids"`
	SecurityGroupIDs []string `yaml:"security_group_ids"`
}

// Permission tem exatamente um dos campos preenchido.
type Permission struct {
	Statement     *Statement `yaml:"statement"`
	ManagedPolicy string     `yaml:"managed_policy"`
	AWSManaged    string     `yaml:"aws_managed_policy"` // nome, ex.: AmazonSQSReadOnlyAccess
}

// Statement é um statement IAM inline.
type Statement struct {
	Sid        string                       `yaml:"sid"`
	Effect     string                       `yaml:"effect"`
	Actions    []string                     `yaml:"actions"`
	Resources  []string                     `yaml:"resources"`
	Conditions map[string]map[string]string `yaml:"conditions"`
}

// Event tem exatamente um dos campos preenchido.
type Event struct {
	SQS     *SQSEvent     `yaml:"sqs"`
	Stream  *StreamEvent  `yaml:"stream"`
	SNS     *SNSEvent     `yaml:"sns"`
	RestAPI *RestAPIEvent `yaml:"rest_api"`
	HTTPAPI *HTTPAPIEvent `yaml:"http_api"`
}

// SQSEvent consome uma fila SQS.
type SQSEvent struct {
	QueueArn  string `yaml:"queue_arn"`
	BatchSize *int32 `yaml:"batch_size"`
	Disabled  bool   `yaml:"disabled"`
}

// StreamEvent lê um stream Kinesis ou DynamoDB.
type StreamEvent struct {
	StreamArn        string `yaml:"stream_arn"`
	StartingPosition string `yaml:"starting_position"`
	BatchSize        *int32 `yaml:"batch_size"`
	Disabled         bool   `yaml:"disabled"`
}

// SNSEvent assina a função em um tópico.
type SNSEvent struct {
	Topic string `yaml:"topic"` // id de tópico da stack ou ARN
}

// RestAPIEvent expõe a função em uma REST API existente.
type RestAPIEvent struct {
	RestAPIID      string `yaml:"rest_api_id"`
	RootResourceID string `yaml:"root_resource_id"`
	Path           string `yaml:"path"`
	Method         string `yaml:"method"`
	Authorization  string `yaml:"authorization"`
	AuthorizerID   string `yaml:"authorizer_id"`
	StageName      string `yaml:"stage_name"`
}

// HTTPAPIEvent expõe a função em uma HTTP API existente.
type HTTPAPIEvent struct {
	APIID    string `yaml:"api_id"`
	RouteKey string `yaml:"route_key"`
}

// ErrInvalid marca erros de estrutura do arquivo de stack.
var ErrInvalid = errors.New("invalid stack file")

// Load lê e decodifica o arquivo de stack em path.
func Load(path string) (*StackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stack file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving stack file path: %w", err)
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodifica data. Campos desconhecidos são rejeitados; caminhos
// relativos são resolvidos a partir de dir.
func Parse(data []byte, dir string) (*StackFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sf StackFile
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decoding stack file: %w", err)
	}
	sf.dir = dir
	if err := sf.check(); err != nil {
		return nil, err
	}
	return &sf, nil
}

// Path resolve p relativo ao diretório do arquivo de stack.
func (sf *StackFile) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || sf.dir == "" {
		return p
	}
	return filepath.Join(sf.dir, p)
}

func (sf *StackFile) check() error {
	if sf.Stack == "" {
		return fmt.Errorf("%w: stack name is required", ErrInvalid)
	}
	seen := map[string]bool{}
	unique := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%w: %s without id", ErrInvalid, kind)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalid, id)
		}
		seen[id] = true
		return nil
	}
	for _, t := range sf.Topics {
		if err := unique("topic", t.ID); err != nil {
			return err
		}
	}
	for _, f := range sf.Functions {
		if err := unique("function", f.ID); err != nil {
			return err
		}
		if f.Entry == "" {
			return fmt.Errorf("%w: function %q without entry", ErrInvalid, f.ID)
		}
	}
	for _, f := range sf.ScheduledFunctions {
		if err := unique("scheduled function", f.ID); err != nil {
			return err
		}
		if f.Entry == "" {
			return fmt.Errorf("%w: scheduled function %q without entry", ErrInvalid, f.ID)
		}
		if f.Schedule.Cron == "" {
			return fmt.Errorf("%w: scheduled function %q without schedule.cron", ErrInvalid, f.ID)
		}
	}
	for _, j := range sf.BatchJobs {
		if err := unique("batch job", j.ID); err != nil {
			return err
		}
	}
	return nil
}
