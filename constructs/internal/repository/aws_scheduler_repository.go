package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	scheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"
	schedulertypes "github.com/aws/aws-sdk-go-v2/service/scheduler/types"

	"github.com/raywall/raysouz-constructs/pkg/construct"
)

// SchedulerRepository declara agendamentos do EventBridge Scheduler.
type SchedulerRepository struct {
	Scope construct.Construct
}

// DeclareSchedule declara um agendamento sem janela flexível que invoca targetArn
// assumindo roleArn. input vazio não é enviado.
func (r *SchedulerRepository) DeclareSchedule(id, expression, timezone, targetArn, roleArn, input string) (*construct.Resource, *scheduler.CreateScheduleInput, error) {
	in := &scheduler.CreateScheduleInput{
		ScheduleExpression:         aws.String(expression),
		ScheduleExpressionTimezone: aws.String(timezone),
		FlexibleTimeWindow: &schedulertypes.FlexibleTimeWindow{
			Mode: schedulertypes.FlexibleTimeWindowModeOff,
		},
		State: schedulertypes.ScheduleStateEnabled,
		Target: &schedulertypes.Target{
			Arn:     aws.String(targetArn),
			RoleArn: aws.String(roleArn),
		},
	}
	if input != "" {
		in.Target.Input = aws.String(input)
	}

	res, err := construct.NewResource(r.Scope, id, "scheduler:CreateSchedule", in)
	if err != nil {
		return nil, nil, err
	}
	return res, in, nil
}
