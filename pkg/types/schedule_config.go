package types

// ScheduleConfig DTO armazena o gatilho de tempo de uma função agendada.
// A expressão cron só é validada pelo serviço de destino.
type ScheduleConfig struct {
	Cron  string // ex.: "0 3 * * ? *" ou "cron(0 3 * * ? *)"
	Input any    // payload estático serializado em JSON
}

// ScheduledFunctionConfig combina a função e o agendamento.
type ScheduledFunctionConfig struct {
	FunctionConfig
	Schedule ScheduleConfig
}
