package types

// Permission é uma concessão de acesso para a role de execução.
// Variantes: PolicyStatement (inline) e ManagedPolicy (anexada).
type Permission interface {
	isPermission()
}

// PolicyStatement é um statement inline que entra na política inicial da role.
type PolicyStatement struct {
	Sid        string                       `json:"Sid,omitempty" yaml:"sid"`
	Effect     string                       `json:"Effect" yaml:"effect"` // "Allow" quando vazio
	Actions    []string                     `json:"Action" yaml:"actions"`
	Resources  []string                     `json:"Resource" yaml:"resources"`
	Conditions map[string]map[string]string `json:"Condition,omitempty" yaml:"conditions"`
}

// ManagedPolicy é uma política gerenciada anexada à role após a criação.
type ManagedPolicy struct {
	Arn string `yaml:"arn"`
}

func (PolicyStatement) isPermission() {}
func (ManagedPolicy) isPermission()   {}

// AWSManagedPolicy monta a ManagedPolicy de uma política gerenciada pela AWS
// a partir do nome (ex.: "service-role/AWSGlueServiceRole").
func AWSManagedPolicy(name string) ManagedPolicy {
	return ManagedPolicy{Arn: "arn:${AWS::Partition}:iam::aws:policy/" + name}
}

// Allow é um atalho para um statement com Effect "Allow".
func Allow(actions []string, resources ...string) PolicyStatement {
	return PolicyStatement{Effect: "Allow", Actions: actions, Resources: resources}
}
