// Package construct is the declaration tree every raysouz construct is built on.
//
// An App holds Stacks, Stacks hold constructs, and constructs end in Resource
// leaves whose properties are the AWS SDK for Go v2 request of the operation
// that creates them. Nothing in this package talks to AWS: a synthesized
// Stack is a desired-state document for a provisioning tool to reconcile.
package construct

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
)

// PathSeparator joins node ids into a path.
const PathSeparator = "/"

// Construct is anything that owns a node in the tree.
type Construct interface {
	Node() *Node
}

// ValidationFunc is run for its node at synthesis time.
type ValidationFunc func() diag.Diagnostics

// Node is the position of a construct in the tree.
type Node struct {
	id          string
	scope       *Node
	host        Construct
	children    []*Node
	byID        map[string]*Node
	validations []ValidationFunc
}

// ErrDuplicateID is returned when a scope already has a child with the same id.
var ErrDuplicateID = errors.New("construct id already used in scope")

// NewNode attaches a node for host under scope. scope may only be nil for the
// root of a tree.
func NewNode(scope Construct, id string, host Construct) (*Node, error) {
	n := &Node{id: id, host: host, byID: map[string]*Node{}}
	if scope == nil {
		return n, nil
	}

	parent := scope.Node()
	if parent == nil {
		return nil, fmt.Errorf("scope for %q has no node", id)
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty construct id under %q", parent.Path())
	}
	if strings.Contains(id, PathSeparator) {
		return nil, fmt.Errorf("construct id %q must not contain %q", id, PathSeparator)
	}
	if _, ok := parent.byID[id]; ok {
		return nil, fmt.Errorf("%s: %w", joinPath(parent.Path(), id), ErrDuplicateID)
	}

	n.scope = parent
	parent.children = append(parent.children, n)
	parent.byID[id] = n
	return n, nil
}

// Node lets a bare *Node be used as a scope.
func (n *Node) Node() *Node { return n }

// ID returns the id of the node within its scope.
func (n *Node) ID() string { return n.id }

// Scope returns the parent node, nil for the root.
func (n *Node) Scope() *Node { return n.scope }

// Host returns the construct that owns this node.
func (n *Node) Host() Construct { return n.host }

// Children returns the child nodes in declaration order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// FindChild returns the direct child with the given id, or nil.
func (n *Node) FindChild(id string) *Node { return n.byID[id] }

// Path is the "/" joined list of ids from the root (the App id is empty and
// never shows up).
func (n *Node) Path() string {
	if n.scope == nil {
		return n.id
	}
	return joinPath(n.scope.Path(), n.id)
}

// Components returns the ids from the stack (exclusive) down to this node.
func (n *Node) Components() []string {
	var out []string
	for cur := n; cur != nil; cur = cur.scope {
		if _, ok := cur.host.(*Stack); ok {
			break
		}
		if cur.scope == nil {
			break
		}
		out = append([]string{cur.id}, out...)
	}
	return out
}

// Stack returns the stack that contains this node, or nil.
func (n *Node) Stack() *Stack {
	for cur := n; cur != nil; cur = cur.scope {
		if s, ok := cur.host.(*Stack); ok {
			return s
		}
	}
	return nil
}

// AddValidation registers fn to run at synthesis.
func (n *Node) AddValidation(fn ValidationFunc) {
	n.validations = append(n.validations, fn)
}

// Validate runs the validations of this node and of all its descendants.
func (n *Node) Validate() diag.Diagnostics {
	var diags diag.Diagnostics
	n.Walk(func(cur *Node) {
		for _, fn := range cur.validations {
			for _, d := range fn() {
				if d.Detail == "" {
					d.Detail = cur.Path()
				}
				diags = append(diags, d)
			}
		}
	})
	return diags
}

// Walk visits the node and its descendants depth first, in declaration order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

func joinPath(parent, id string) string {
	if parent == "" {
		return id
	}
	return parent + PathSeparator + id
}
