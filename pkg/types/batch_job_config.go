package types

// BatchJobConfig DTO armazena as configurações de um job Glue (Spark).
type BatchJobConfig struct {
	JobName           *string
	Description       *string
	MaxConcurrentRuns *int32
	DefaultArguments  map[string]string
	ExtraDependencies []string // caminhos de .py/.zip/.whl enviados como --extra-py-files
	Permissions       []Permission
}
