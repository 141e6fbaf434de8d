package construct

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// Resource is a single declared provider resource.
//
// Type names the create operation ("lambda:CreateFunction") and Properties
// holds its SDK request, e.g. *lambda.CreateFunctionInput. Attributes of the
// created resource are referenced through Attr tokens.
type Resource struct {
	node       *Node
	Type       string
	Properties any
	dependsOn  []*Resource
}

// NewResource declares a resource under scope.
func NewResource(scope Construct, id, typ string, props any) (*Resource, error) {
	r := &Resource{Type: typ, Properties: props}
	n, err := NewNode(scope, id, r)
	if err != nil {
		return nil, err
	}
	r.node = n
	return r, nil
}

// Node implements Construct.
func (r *Resource) Node() *Node { return r.node }

// LogicalID is the stable identifier of the resource inside its stack.
func (r *Resource) LogicalID() string { return LogicalID(r.node) }

// Attr returns a token for a field of the create operation output
// ("FunctionArn", "Role.Arn", ...).
func (r *Resource) Attr(path string) string {
	return "${" + r.LogicalID() + "." + path + "}"
}

// AddDependency orders r after others even without a token between them.
func (r *Resource) AddDependency(others ...*Resource) {
	for _, o := range others {
		if o != nil && o != r {
			r.dependsOn = append(r.dependsOn, o)
		}
	}
}

// Dependencies returns the explicit dependencies of r.
func (r *Resource) Dependencies() []*Resource {
	out := make([]*Resource, len(r.dependsOn))
	copy(out, r.dependsOn)
	return out
}

const maxLogicalIDLength = 255

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// LogicalID derives an identifier from the node path: the alphanumeric parts
// of every id below the stack followed by 8 hex chars of the path hash. A
// trailing "Resource" id is left out of the readable part only.
func LogicalID(n *Node) string {
	components := n.Components()
	if len(components) == 0 {
		return ""
	}

	sum := md5.Sum([]byte(strings.Join(components, PathSeparator)))
	suffix := strings.ToUpper(hex.EncodeToString(sum[:]))[:8]

	human := components
	if len(human) > 1 && human[len(human)-1] == "Resource" {
		human = human[:len(human)-1]
	}
	var b strings.Builder
	for _, c := range human {
		b.WriteString(nonAlnum.ReplaceAllString(c, ""))
	}
	readable := b.String()
	if limit := maxLogicalIDLength - len(suffix); len(readable) > limit {
		readable = readable[:limit]
	}
	return readable + suffix
}

// Pseudo parameters resolved from the stack environment at synthesis.
const (
	PseudoRegion      = "${AWS::Region}"
	PseudoAccountID   = "${AWS::AccountId}"
	PseudoPartition   = "${AWS::Partition}"
	PseudoAssetBucket = "${Assets::Bucket}"
)

var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z0-9]+(?:::[A-Za-z]+)?)(?:\.([A-Za-z0-9.]+))?\}`)

// IsToken reports whether s carries an unresolved reference.
func IsToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// references returns the logical ids referenced by tokens in s. Pseudo
// parameters are not references.
func references(s string) []string {
	var out []string
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		if strings.Contains(m[1], "::") {
			continue
		}
		out = append(out, m[1])
	}
	return out
}
