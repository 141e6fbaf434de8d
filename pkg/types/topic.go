package types

// TopicRef é qualquer tópico SNS que possa receber notificações.
type TopicRef interface {
	TopicArn() string
}

// ImportedTopic referencia um tópico existente pelo ARN.
type ImportedTopic string

// TopicArn implementa TopicRef.
func (t ImportedTopic) TopicArn() string { return string(t) }

// TopicConfig DTO armazena as configurações de um tópico declarado.
type TopicConfig struct {
	TopicName   *string
	DisplayName *string
	FIFO        bool
}
