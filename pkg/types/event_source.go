package types

// EventSource é uma origem de eventos ligada a uma função gerenciada.
// Variantes: SQSEventSource, StreamEventSource, SNSEventSource,
// RestAPIEventSource e HTTPAPIEventSource.
type EventSource interface {
	isEventSource()
}

// SQSEventSource consome mensagens de uma fila.
type SQSEventSource struct {
	QueueArn  string
	BatchSize *int32
	Disabled  bool
}

// StreamEventSource consome um stream Kinesis ou DynamoDB.
type StreamEventSource struct {
	StreamArn        string
	StartingPosition string // LATEST, TRIM_HORIZON (default LATEST)
	BatchSize        *int32
	Disabled         bool
}

// SNSEventSource assina a função em um tópico.
type SNSEventSource struct {
	Topic TopicRef
}

// RestAPIEventSource expõe a função em uma rota de API Gateway REST (v1).
type RestAPIEventSource struct {
	RestAPIID      string
	RootResourceID string
	Path           string
	Method         string
	Authorization  string // NONE quando vazio
	AuthorizerID   string
	StageName      string // cria um deployment quando definido
}

// HTTPAPIEventSource expõe a função em uma rota de API Gateway HTTP (v2).
type HTTPAPIEventSource struct {
	APIID    string
	RouteKey string // ex.: "GET /orders"
}

func (SQSEventSource) isEventSource()     {}
func (StreamEventSource) isEventSource()  {}
func (SNSEventSource) isEventSource()     {}
func (RestAPIEventSource) isEventSource() {}
func (HTTPAPIEventSource) isEventSource() {}
