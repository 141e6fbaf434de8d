package construct

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// App is the root of a construct tree.
type App struct {
	node   *Node
	OutDir string
	Logger logrus.FieldLogger
}

// AppOption configures an App.
type AppOption func(*App)

// WithOutDir sets the directory Synth writes the cloud assembly to.
func WithOutDir(dir string) AppOption {
	return func(a *App) { a.OutDir = dir }
}

// WithLogger replaces the default logrus standard logger.
func WithLogger(l logrus.FieldLogger) AppOption {
	return func(a *App) { a.Logger = l }
}

// NewApp creates an empty tree.
func NewApp(opts ...AppOption) *App {
	a := &App{Logger: logrus.StandardLogger()}
	a.node, _ = NewNode(nil, "", a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Node implements Construct.
func (a *App) Node() *Node { return a.node }

// Stacks returns the stacks of the app in declaration order.
func (a *App) Stacks() []*Stack {
	var out []*Stack
	for _, c := range a.node.children {
		if s, ok := c.host.(*Stack); ok {
			out = append(out, s)
		}
	}
	return out
}

// Environment is the target account and region of a stack. Empty fields stay
// as pseudo parameters in the template.
type Environment struct {
	Account   string
	Region    string
	Partition string
}

// StackProps configures a Stack.
type StackProps struct {
	Env         Environment
	Description string
	// AssetBucket receives staged assets. Defaults to
	// "raysouz-assets-${AWS::AccountId}-${AWS::Region}".
	AssetBucket string
}

// Stack is the unit of synthesis: one template and one asset manifest.
type Stack struct {
	node        *Node
	app         *App
	Env         Environment
	Description string
	AssetBucket string
}

// DefaultAssetBucket is used when StackProps.AssetBucket is empty.
const DefaultAssetBucket = "raysouz-assets-" + PseudoAccountID + "-" + PseudoRegion

// NewStack adds a stack to app.
func NewStack(app *App, id string, props *StackProps) (*Stack, error) {
	if app == nil {
		return nil, fmt.Errorf("stack %q: nil app", id)
	}
	if props == nil {
		props = &StackProps{}
	}
	s := &Stack{
		app:         app,
		Env:         props.Env,
		Description: props.Description,
		AssetBucket: props.AssetBucket,
	}
	if s.AssetBucket == "" {
		s.AssetBucket = DefaultAssetBucket
	}
	n, err := NewNode(app, id, s)
	if err != nil {
		return nil, err
	}
	s.node = n
	return s, nil
}

// Node implements Construct.
func (s *Stack) Node() *Node { return s.node }

// Name is the stack id.
func (s *Stack) Name() string { return s.node.id }

// App returns the owning app.
func (s *Stack) App() *App { return s.app }

// Resources returns every resource of the stack in declaration order.
func (s *Stack) Resources() []*Resource {
	var out []*Resource
	s.node.Walk(func(n *Node) {
		if r, ok := n.host.(*Resource); ok {
			out = append(out, r)
		}
	})
	return out
}

// Assets returns every asset of the stack in declaration order.
func (s *Stack) Assets() []*Asset {
	var out []*Asset
	s.node.Walk(func(n *Node) {
		if a, ok := n.host.(*Asset); ok {
			out = append(out, a)
		}
	})
	return out
}

// Resolve replaces the pseudo parameters the environment knows about.
func (s *Stack) Resolve(v string) string {
	if !strings.Contains(v, "${") {
		return v
	}
	v = strings.ReplaceAll(v, PseudoAssetBucket, s.AssetBucket)
	if s.Env.Region != "" {
		v = strings.ReplaceAll(v, PseudoRegion, s.Env.Region)
	}
	if s.Env.Account != "" {
		v = strings.ReplaceAll(v, PseudoAccountID, s.Env.Account)
	}
	if p := s.partition(); p != "" {
		v = strings.ReplaceAll(v, PseudoPartition, p)
	}
	return v
}

func (s *Stack) partition() string {
	if s.Env.Partition != "" {
		return s.Env.Partition
	}
	switch {
	case s.Env.Region == "":
		return ""
	case strings.HasPrefix(s.Env.Region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(s.Env.Region, "us-gov-"):
		return "aws-us-gov"
	default:
		return "aws"
	}
}
