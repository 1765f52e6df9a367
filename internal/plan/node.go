package plan

import (
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
)

// Node is one relation occurrence in a compiled fetch tree.
type Node struct {
	Name     string
	Relation Relation

	// AliasPath is the dot-joined chain of relation names from the root.
	AliasPath string

	// PropertyPath is the dot-joined chain of attachment properties.
	// Matching nodes attach under MatchingDataKey instead.
	PropertyPath string

	TargetProperty string
	Options        Options

	// CanBeJoined starts as the relation's own verdict and may be
	// cleared by the resolver.
	CanBeJoined bool

	// ForMatching is nil for nodes compiled without a matching flag.
	ForMatching *bool

	children []*Node
	index    map[string]*Node
}

// Children returns the compiled child nodes in containment order.
func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the child compiled for name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.index[name]
	return c, ok
}

// IsTopLevel reports whether the node hangs directly off the root source.
func (n *Node) IsTopLevel() bool {
	return !strings.Contains(n.AliasPath, ".")
}

// AsSpec returns the node's configuration and subtree as a specification
// rooted at the node's name.
func (n *Node) AsSpec() *Spec {
	spec := NewSpec()
	e := spec.entry(n.Name)
	e.Options = n.Options
	if len(n.children) > 0 {
		e.Children = SpecOf(n.children)
	}
	return spec
}

// SpecOf rebuilds a specification from compiled nodes, so a nested loader
// can compile them again against the target source.
func SpecOf(nodes []*Node) *Spec {
	spec := NewSpec()
	for _, n := range nodes {
		spec.Merge(n.AsSpec())
	}
	return spec
}

func (n *Node) addChild(c *Node) {
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	n.children = append(n.children, c)
	n.index[c.Name] = c
}

func (n *Node) isMatching() bool {
	return n.ForMatching != nil && *n.ForMatching
}

// usesDefaultJoin reports whether the node joins only because no other
// strategy was asked for.
func (n *Node) usesDefaultJoin() bool {
	return n.Options.Strategy == "" || n.Options.Strategy == ir.StrategyJoin
}
