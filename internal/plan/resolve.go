package plan

import (
	"fmt"
	"log/slog"

	"github.com/roach88/fetchplan/internal/ir"
)

// AttachableAssociations returns the nodes to fold into the base fetch,
// one per name: matching nodes first, then joinable containment nodes and
// their joinable descendants. A containment node that loses its name to an
// earlier join is loaded externally instead.
func (l *Loader) AttachableAssociations(owner Source) ([]*Node, error) {
	if err := l.resolve(owner); err != nil {
		return nil, err
	}
	return l.joinable, nil
}

// ExternalAssociations returns the nodes that need a separate load, in
// discovery order.
func (l *Loader) ExternalAssociations(owner Source) ([]*Node, error) {
	if err := l.resolve(owner); err != nil {
		return nil, err
	}
	return l.external, nil
}

func (l *Loader) resolve(owner Source) error {
	if l.resolved {
		return nil
	}

	contain, err := l.Normalized(owner)
	if err != nil {
		return err
	}
	var matching []*Node
	if l.matching != nil {
		matching, err = l.matching.Normalized(owner)
		if err != nil {
			return err
		}
	}

	l.fixStrategies()

	r := &resolution{seen: make(map[string]*Node)}
	if err := r.resolveJoins(contain, matching); err != nil {
		return err
	}
	l.joinable = r.joinable
	l.external = r.external
	l.resolved = true

	slog.Debug("fetch plan resolved",
		"source", owner.Alias(),
		"joinable", len(l.joinable),
		"external", len(l.external))
	return nil
}

// fixStrategies demotes colliding joinable nodes. Inside one root, a name
// reached by more than one joinable node would produce the same alias twice
// in a single fetch, so every dotted node that still shares its name with
// another joinable node is switched to the select strategy. Top-level nodes
// and nodes with an explicit non-join strategy are never changed.
func (l *Loader) fixStrategies() {
	for _, byName := range l.aliasList {
		for _, bucket := range byName {
			if len(bucket) < 2 {
				continue
			}
			for _, n := range bucket {
				if n.IsTopLevel() || !sharesJoinAlias(bucket, n) {
					continue
				}
				correctStrategy(n)
			}
		}
	}
}

func sharesJoinAlias(bucket []*Node, n *Node) bool {
	for _, other := range bucket {
		if other != n && other.CanBeJoined {
			return true
		}
	}
	return false
}

// correctStrategy demotes n to the select strategy unless it is already
// external or its strategy was chosen explicitly.
func correctStrategy(n *Node) {
	if !n.CanBeJoined || !n.usesDefaultJoin() {
		return
	}
	n.Options.Strategy = ir.StrategySelect
	n.CanBeJoined = false
	slog.Debug("relation demoted to select strategy",
		"relation", n.Name,
		"alias_path", n.AliasPath)
}

type resolution struct {
	joinable []*Node
	external []*Node
	seen     map[string]*Node
}

// add registers a joinable node under its name. A containment node whose
// name is already held by another join cannot reuse the alias; it is
// demoted and loaded separately. Two matching nodes cannot share an alias
// either, and neither can be loaded separately without losing its filter.
func (r *resolution) add(n *Node) error {
	holder, ok := r.seen[n.Name]
	if !ok {
		r.seen[n.Name] = n
		r.joinable = append(r.joinable, n)
		return nil
	}
	if n.isMatching() {
		return &ConfigurationError{
			Code:     ErrCodeAliasCollision,
			Source:   n.Relation.Source().Alias(),
			Relation: n.Name,
			Path:     n.AliasPath,
			Message:  fmt.Sprintf("matching path %s joins %s, already joined by %s", n.AliasPath, n.Name, holder.AliasPath),
		}
	}
	r.demote(n)
	return nil
}

// demote moves n to the external list. A node still on the join strategy
// is switched to select so its loader has keys to work with.
func (r *resolution) demote(n *Node) {
	if n.usesDefaultJoin() {
		n.Options.Strategy = ir.StrategySelect
		slog.Debug("relation demoted to select strategy",
			"relation", n.Name,
			"alias_path", n.AliasPath)
	}
	n.CanBeJoined = false
	r.external = append(r.external, n)
}

func (r *resolution) resolveJoins(nodes []*Node, matching []*Node) error {
	inMatching := make(map[string]bool, len(matching))
	for _, m := range matching {
		inMatching[m.Name] = true
		if err := r.add(m); err != nil {
			return err
		}
		if err := r.resolveJoins(m.Children(), nil); err != nil {
			return err
		}
	}

	for _, n := range nodes {
		switch {
		case inMatching[n.Name]:
			r.demote(n)
		case n.CanBeJoined:
			if err := r.add(n); err != nil {
				return err
			}
			if !n.CanBeJoined {
				continue
			}
			if err := r.resolveJoins(n.Children(), nil); err != nil {
				return err
			}
		default:
			r.external = append(r.external, n)
		}
	}
	return nil
}
