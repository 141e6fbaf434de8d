package constructs

import (
	"encoding/json"
	"fmt"
	"strings"

	scheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"

	"github.com/raywall/raysouz-constructs/constructs/internal/repository"
	"github.com/raywall/raysouz-constructs/pkg/construct"
	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

// ScheduleTimeZone é o fuso fixo de todos os agendamentos.
const ScheduleTimeZone = "America/Sao_Paulo"

// ScheduledFunction é uma ManagedFunction invocada por um agendamento.
type ScheduledFunction struct {
	node     *construct.Node
	function *ManagedFunction
	schedule *Schedule
}

// NewScheduledFunction declara os filhos Function e Schedule.
func NewScheduledFunction(scope construct.Construct, id string, cfg *dto.ScheduledFunctionConfig) (*ScheduledFunction, error) {
	if cfg == nil {
		return nil, fmt.Errorf("scheduled function %q: nil config", id)
	}
	sf := &ScheduledFunction{}
	n, err := construct.NewNode(scope, id, sf)
	if err != nil {
		return nil, err
	}
	sf.node = n

	sf.function, err = NewManagedFunction(sf, "Function", &cfg.FunctionConfig)
	if err != nil {
		return nil, err
	}
	sf.schedule, err = NewSchedule(sf, "Schedule", sf.function, cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return sf, nil
}

// Node implementa construct.Construct.
func (sf *ScheduledFunction) Node() *construct.Node { return sf.node }

// Function retorna a função agendada.
func (sf *ScheduledFunction) Function() *ManagedFunction { return sf.function }

// Schedule retorna o gatilho.
func (sf *ScheduledFunction) Schedule() *Schedule { return sf.schedule }

// Schedule é um gatilho de tempo que invoca uma ManagedFunction.
type Schedule struct {
	node     *construct.Node
	target   *ManagedFunction
	role     *Role
	resource *construct.Resource
	input    *scheduler.CreateScheduleInput
}

// NewSchedule declara a role de invocação e o agendamento apontando para target.
func NewSchedule(scope construct.Construct, id string, target *ManagedFunction, cfg dto.ScheduleConfig) (*Schedule, error) {
	if target == nil {
		return nil, fmt.Errorf("schedule %q: nil target", id)
	}
	s := &Schedule{target: target}
	n, err := construct.NewNode(scope, id, s)
	if err != nil {
		return nil, err
	}
	s.node = n

	var payload string
	if cfg.Input != nil {
		b, err := json.Marshal(cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal input: %w", n.Path(), err)
		}
		payload = string(b)
	}

	s.role, err = NewRole(s, "InvokeRole", RoleProps{AssumedBy: "scheduler.amazonaws.com"})
	if err != nil {
		return nil, err
	}
	invoke := dto.Allow([]string{"lambda:InvokeFunction"}, target.FunctionArn(), target.FunctionArn()+":*")
	if err := s.role.AddToPolicy(invoke); err != nil {
		return nil, err
	}

	repo := &repository.SchedulerRepository{Scope: s}
	s.resource, s.input, err = repo.DeclareSchedule("Resource", ScheduleExpression(cfg.Cron), ScheduleTimeZone,
		target.FunctionArn(), s.role.Arn(), payload)
	if err != nil {
		return nil, err
	}
	s.role.mustPrecede(s.resource)
	s.resource.AddDependency(target.Resource())
	return s, nil
}

// Node implementa construct.Construct.
func (s *Schedule) Node() *construct.Node { return s.node }

// Target retorna a função invocada.
func (s *Schedule) Target() *ManagedFunction { return s.target }

// Role retorna a role assumida pelo scheduler.
func (s *Schedule) Role() *Role { return s.role }

// Resource retorna a declaração scheduler:CreateSchedule.
func (s *Schedule) Resource() *construct.Resource { return s.resource }

// Declaration retorna o CreateScheduleInput declarado.
func (s *Schedule) Declaration() *scheduler.CreateScheduleInput { return s.input }

// ScheduleExpression envolve expr em cron(...), a menos que já seja uma
// expressão cron, rate ou at.
func ScheduleExpression(expr string) string {
	expr = strings.TrimSpace(expr)
	for _, prefix := range []string{"cron(", "rate(", "at("} {
		if strings.HasPrefix(expr, prefix) {
			return expr
		}
	}
	return "cron(" + expr + ")"
}
