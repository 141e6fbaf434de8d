package types

import "time"

// FunctionConfig DTO armazena todas as configurações de uma função gerenciada.
// Campos opcionais (ponteiros ou valores zero) só viram propriedades do
// recurso quando preenchidos.
type FunctionConfig struct {
	Entry                string            // diretório com main.py (handler)
	FunctionName         *string           // nome físico; o provedor gera quando nil
	Description          *string
	MemorySize           *int32            // MB
	EphemeralStorageSize *int32            // MB de /tmp
	Environment          map[string]string // environment_variables
	Permissions          []Permission
	Timeout              time.Duration // zero mantém o default do provedor
	Events               []EventSource
	OnFailure            TopicRef
	Network              *Network
	LogRetentionDays     *int32 // cria o log group /aws/lambda/<nome> quando definido
}

// Network DTO descreve o posicionamento da função em uma VPC.
type Network struct {
	VpcID            string
	SubnetIDs        []string
	SecurityGroupIDs []string
}
