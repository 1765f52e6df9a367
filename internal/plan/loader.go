package plan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
)

// Loader plans the eager loading of one fetch. It is request scoped and
// not safe for concurrent use.
type Loader struct {
	contain  *Spec
	matching *Loader

	// Compilation memo, dropped by invalidate.
	compiled   bool
	normalized []*Node
	aliasList  map[string]map[string][]*Node

	// Resolution memo, dropped by invalidate.
	resolved bool
	joinable []*Node
	external []*Node

	joinsMap   map[string]*Node
	joinsOrder []string
}

// NewLoader creates a loader with an empty containment.
func NewLoader() *Loader {
	return &Loader{contain: NewSpec()}
}

// Contain merges v (any shape ParseSpec accepts) into the containment.
// The compiled plan is invalidated even when v adds nothing.
func (l *Loader) Contain(v any) error {
	l.invalidate()
	spec, err := ParseSpec(v)
	if err != nil {
		return err
	}
	l.contain.Merge(spec)
	return nil
}

// ContainWith contains a dotted path and customizes its fetch with fn.
func (l *Loader) ContainWith(path string, fn QueryTransform) error {
	l.invalidate()
	_, err := l.contain.Add(path, Options{QueryBuilder: fn})
	return err
}

// Contained returns a copy of the raw containment.
func (l *Loader) Contained() *Spec {
	return l.contain.Clone()
}

// ClearContain drops every containment. Matching is kept.
func (l *Loader) ClearContain() {
	l.contain = NewSpec()
	l.invalidate()
}

// SetMatching filters the fetch by existence of related rows along a dotted
// path. fn customizes the fetch of the last relation of the path. The join
// kind defaults to INNER.
//
// SetMatching("Authors.Books", fn, opts) contains, in a separate matching
// loader:
//
//	Authors: {matching: true, <opts>, Books: {matching: true, queryBuilder: fn, <opts>}}
//
// negateMatch is applied to the last relation only.
func (l *Loader) SetMatching(path string, fn QueryTransform, opts Options) error {
	if l.matching == nil {
		l.matching = NewLoader()
	}
	if opts.JoinType == "" {
		opts.JoinType = ir.JoinInner
	}

	names := strings.Split(path, ".")
	for _, name := range names {
		if name == "" {
			return &ShapeError{Path: path, Message: "empty relation name"}
		}
	}

	shared := opts
	shared.NegateMatch = false
	shared.QueryBuilder = nil
	shared.Matching = boolPtr(true)

	leaf := opts
	leaf.Matching = boolPtr(true)
	leaf.QueryBuilder = Compose(opts.QueryBuilder, fn)

	spec := NewSpec()
	cur := spec
	for i, name := range names {
		e := cur.entry(name)
		if i == len(names)-1 {
			e.Options = leaf
			break
		}
		e.Options = shared
		cur = e.children()
	}

	l.invalidate()
	l.matching.contain.Merge(spec)
	l.matching.invalidate()
	return nil
}

// Matching returns the matching loader, creating it on first use.
func (l *Loader) Matching() *Loader {
	if l.matching == nil {
		l.matching = NewLoader()
	}
	return l.matching
}

// AddToJoinsMap registers a join that was added to the fetch outside the
// containment, so hydration can place its columns.
func (l *Loader) AddToJoinsMap(alias string, rel Relation, asMatching bool, targetProperty string) {
	if l.joinsMap == nil {
		l.joinsMap = make(map[string]*Node)
	}
	if targetProperty == "" {
		targetProperty = rel.Property()
	}
	if _, ok := l.joinsMap[alias]; !ok {
		l.joinsOrder = append(l.joinsOrder, alias)
	}
	l.joinsMap[alias] = &Node{
		Name:           alias,
		Relation:       rel,
		AliasPath:      alias,
		PropertyPath:   targetProperty,
		TargetProperty: targetProperty,
		CanBeJoined:    true,
		ForMatching:    boolPtr(asMatching),
	}
}

// Normalized compiles the containment against owner. The result is
// memoized until the containment changes.
func (l *Loader) Normalized(owner Source) ([]*Node, error) {
	if l.compiled {
		return l.normalized, nil
	}

	aliasList := make(map[string]map[string][]*Node)
	nodes := make([]*Node, 0, l.contain.Len())
	for _, name := range l.contain.Names() {
		e, _ := l.contain.Get(name)
		n, err := compileNode(owner, name, e, compilePaths{}, aliasList)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	l.normalized = nodes
	l.aliasList = aliasList
	l.compiled = true
	return nodes, nil
}

type compilePaths struct {
	root         string
	aliasPath    string
	propertyPath string
}

func compileNode(owner Source, name string, e *Entry, parent compilePaths, aliasList map[string]map[string][]*Node) (*Node, error) {
	aliasPath := ir.JoinPath(parent.aliasPath, name)

	rel, ok := owner.Relation(name)
	if !ok {
		return nil, &ConfigurationError{
			Code:     ErrCodeUnknownRelation,
			Source:   owner.Alias(),
			Relation: name,
			Path:     aliasPath,
			Message:  fmt.Sprintf("%s is not associated with %s", name, owner.Alias()),
		}
	}
	if rel.Name() != name {
		return nil, &ConfigurationError{
			Code:     ErrCodeBindingMismatch,
			Source:   owner.Alias(),
			Relation: name,
			Path:     aliasPath,
			Message:  fmt.Sprintf("%s is registered on %s as %s", name, owner.Alias(), rel.Name()),
		}
	}

	opts := e.Options
	n := &Node{
		Name:           name,
		Relation:       rel,
		AliasPath:      aliasPath,
		TargetProperty: rel.Property(),
		Options:        opts,
		CanBeJoined:    rel.CanBeJoined(opts),
	}
	if opts.Matching != nil {
		n.ForMatching = boolPtr(*opts.Matching)
	}
	if opts.IsMatching() {
		n.PropertyPath = ir.JoinPath(ir.MatchingDataKey, name)
	} else {
		n.PropertyPath = ir.JoinPath(parent.propertyPath, rel.Property())
	}

	next := compilePaths{root: parent.root, aliasPath: n.AliasPath, propertyPath: n.PropertyPath}
	if n.CanBeJoined {
		byName := aliasList[parent.root]
		if byName == nil {
			byName = make(map[string][]*Node)
			aliasList[parent.root] = byName
		}
		byName[name] = append(byName[name], n)
	} else {
		next.root = n.AliasPath
	}

	for _, childName := range e.Children.Names() {
		ce, _ := e.Children.Get(childName)
		c, err := compileNode(rel.Target(), childName, ce, next, aliasList)
		if err != nil {
			return nil, err
		}
		n.addChild(c)
	}
	return n, nil
}

func (l *Loader) invalidate() {
	if l.compiled || l.resolved {
		slog.Debug("fetch plan invalidated")
	}
	l.compiled = false
	l.normalized = nil
	l.aliasList = nil
	l.resolved = false
	l.joinable = nil
	l.external = nil
}
