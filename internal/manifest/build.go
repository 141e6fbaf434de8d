package manifest

import (
	"fmt"
	"strings"
	"time"

	"github.com/raywall/raysouz-constructs/constructs"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// Build declara a stack descrita por sf em app. Tópicos são declarados
// primeiro para que funções possam referenciá-los pelo id.
func Build(app *construct.App, sf *StackFile) (*construct.Stack, error) {
	stack, err := construct.NewStack(app, sf.Stack, &construct.StackProps{
		Env:         construct.Environment{Account: sf.Account, Region: sf.Region},
		Description: sf.Description,
		AssetBucket: sf.AssetBucket,
	})
	if err != nil {
		return nil, err
	}

	topics := map[string]dto.TopicRef{}
	for _, t := range sf.Topics {
		topic, err := constructs.NewTopic(stack, t.ID, &dto.TopicConfig{
			TopicName:   t.Name,
			DisplayName: t.DisplayName,
			FIFO:        t.FIFO,
		})
		if err != nil {
			return nil, err
		}
		topics[t.ID] = topic
	}
	b := &builder{sf: sf, topics: topics}

	for _, f := range sf.Functions {
		lc, err := b.functionConfig(f)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", f.ID, err)
		}
		if _, err := constructs.NewManagedFunction(stack, f.ID, lc); err != nil {
			return nil, err
		}
	}

	for _, f := range sf.ScheduledFunctions {
		lc, err := b.functionConfig(f.Function)
		if err != nil {
			return nil, fmt.Errorf("scheduled function %s: %w", f.ID, err)
		}
		cfg := &dto.ScheduledFunctionConfig{
			FunctionConfig: *lc,
			Schedule:       dto.ScheduleConfig{Cron: f.Schedule.Cron, Input: f.Schedule.Input},
		}
		if _, err := constructs.NewScheduledFunction(stack, f.ID, cfg); err != nil {
			return nil, err
		}
	}

	for _, j := range sf.BatchJobs {
		perms, err := permissions(j.Permissions)
		if err != nil {
			return nil, fmt.Errorf("batch job %s: %w", j.ID, err)
		}
		deps := make([]string, 0, len(j.ExtraDependencies))
		for _, d := range j.ExtraDependencies {
			deps = append(deps, sf.Path(d))
		}
		base := j.BasePath
		if base == "" {
			base = "."
		}
		jc := &dto.BatchJobConfig{
			JobName:           j.JobName,
			Description:       j.Description,
			MaxConcurrentRuns: j.MaxConcurrentRuns,
			DefaultArguments:  j.DefaultArguments,
			ExtraDependencies: deps,
			Permissions:       perms,
		}
		if _, err := constructs.NewManagedBatchJob(stack, j.ID, sf.Path(base), jc); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

type builder struct {
	sf     *StackFile
	topics map[string]dto.TopicRef
}

func (b *builder) functionConfig(f Function) (*dto.FunctionConfig, error) {
	lc := &dto.FunctionConfig{
		Entry:                b.sf.Path(f.Entry),
		FunctionName:         f.FunctionName,
		Description:          f.Description,
		MemorySize:           f.MemorySize,
		EphemeralStorageSize: f.EphemeralStorageSize,
		Environment:          f.Environment,
		LogRetentionDays:     f.LogRetentionDays,
	}

	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: timeout: %v", ErrInvalid, err)
		}
		lc.Timeout = d
	}

	var err error
	if lc.Permissions, err = permissions(f.Permissions); err != nil {
		return nil, err
	}

	if f.OnFailure != "" {
		if lc.OnFailure, err = b.topic(f.OnFailure); err != nil {
			return nil, err
		}
	}

	if f.Network != nil {
		lc.Network = &dto.Network{
			VpcID:            f.Network.VpcID,
			SubnetIDs:        f.Network.SubnetIDs,
			SecurityGroupIDs: f.Network.SecurityGroupIDs,
		}
	}

	for i, ev := range f.Events {
		source, err := b.event(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		lc.Events = append(lc.Events, source)
	}
	return lc, nil
}

func (b *builder) topic(ref string) (dto.TopicRef, error) {
	if strings.HasPrefix(ref, "arn:") {
		return dto.ImportedTopic(ref), nil
	}
	t, ok := b.topics[ref]
	if !ok {
		return nil, fmt.Errorf("%w: unknown topic %q", ErrInvalid, ref)
	}
	return t, nil
}

func (b *builder) event(ev Event) (dto.EventSource, error) {
	var out []dto.EventSource
	if ev.SQS != nil {
		out = append(out, dto.SQSEventSource{QueueArn: ev.SQS.QueueArn, BatchSize: ev.SQS.BatchSize, Disabled: ev.SQS.Disabled})
	}
	if ev.Stream != nil {
		out = append(out, dto.StreamEventSource{
			StreamArn:        ev.Stream.StreamArn,
			StartingPosition: ev.Stream.StartingPosition,
			BatchSize:        ev.Stream.BatchSize,
			Disabled:         ev.Stream.Disabled,
		})
	}
	if ev.SNS != nil {
		topic, err := b.topic(ev.SNS.Topic)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.SNSEventSource{Topic: topic})
	}
	if ev.RestAPI != nil {
		r := ev.RestAPI
		out = append(out, dto.RestAPIEventSource{
			RestAPIID:      r.RestAPIID,
			RootResourceID: r.RootResourceID,
			Path:           r.Path,
			Method:         r.Method,
			Authorization:  r.Authorization,
			AuthorizerID:   r.AuthorizerID,
			StageName:      r.StageName,
		})
	}
	if ev.HTTPAPI != nil {
		out = append(out, dto.HTTPAPIEventSource{APIID: ev.HTTPAPI.APIID, RouteKey: ev.HTTPAPI.RouteKey})
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: an event needs exactly one of sqs, stream, sns, rest_api, http_api", ErrInvalid)
	}
	return out[0], nil
}

func permissions(in []Permission) ([]dto.Permission, error) {
	out := make([]dto.Permission, 0, len(in))
	for i, p := range in {
		set := 0
		if p.Statement != nil {
			set++
			out = append(out, dto.PolicyStatement{
				Sid:        p.Statement.Sid,
				Effect:     p.Statement.Effect,
				Actions:    p.Statement.Actions,
				Resources:  p.Statement.Resources,
				Conditions: p.Statement.Conditions,
			})
		}
		if p.ManagedPolicy != "" {
			set++
			out = append(out, dto.ManagedPolicy{Arn: p.ManagedPolicy})
		}
		if p.AWSManaged != "" {
			set++
			out = append(out, dto.AWSManagedPolicy(p.AWSManaged))
		}
		if set != 1 {
			return nil, fmt.Errorf("%w: permission %d needs exactly one of statement, managed_policy, aws_managed_policy", ErrInvalid, i)
		}
	}
	return out, nil
}
