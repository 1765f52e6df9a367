package plan

import (
	"github.com/roach88/fetchplan/internal/ir"
)

// Association tells hydration where one relation's data lives in a flat
// record and where it goes in the nested result.
type Association struct {
	Alias          string         `json:"alias"`
	AliasPath      string         `json:"alias_path"`
	PropertyPath   string         `json:"property_path"`
	TargetProperty string         `json:"target_property"`
	Cardinality    ir.Cardinality `json:"cardinality"`
	CanBeJoined    bool           `json:"can_be_joined"`
	Target         string         `json:"target"`

	// NestKey is the column prefix of joined relations and the record key
	// external loaders write to.
	NestKey  string `json:"nest_key"`
	Matching bool   `json:"matching"`
}

// AssociationsMap lists every relation touched by the plan in hydration
// order: the matching tree, the containment tree, then joins registered
// with AddToJoinsMap. Children are listed only below joined nodes; external
// loaders hydrate their own subtrees.
func (l *Loader) AssociationsMap(owner Source) ([]Association, error) {
	if err := l.resolve(owner); err != nil {
		return nil, err
	}

	var out []Association
	if l.matching != nil {
		matching, err := l.matching.Normalized(owner)
		if err != nil {
			return nil, err
		}
		out = buildAssociationsMap(out, matching, boolPtr(true))
	}
	out = buildAssociationsMap(out, l.normalized, nil)

	joins := make([]*Node, 0, len(l.joinsOrder))
	for _, alias := range l.joinsOrder {
		joins = append(joins, l.joinsMap[alias])
	}
	return buildAssociationsMap(out, joins, nil), nil
}

func buildAssociationsMap(out []Association, nodes []*Node, forMatching *bool) []Association {
	for _, n := range nodes {
		matching := false
		switch {
		case forMatching != nil:
			matching = *forMatching
		case n.ForMatching != nil:
			matching = *n.ForMatching
		}

		nestKey := n.AliasPath
		if n.CanBeJoined {
			nestKey = n.Name
		}

		out = append(out, Association{
			Alias:          n.Name,
			AliasPath:      n.AliasPath,
			PropertyPath:   n.PropertyPath,
			TargetProperty: n.TargetProperty,
			Cardinality:    n.Relation.Cardinality(),
			CanBeJoined:    n.CanBeJoined,
			Target:         n.Relation.Target().Alias(),
			NestKey:        nestKey,
			Matching:       matching,
		})
		if n.CanBeJoined {
			out = buildAssociationsMap(out, n.Children(), forMatching)
		}
	}
	return out
}

// Describe summarizes the resolved plan for display and fingerprinting.
func (l *Loader) Describe(owner Source) (map[string]any, error) {
	if err := l.resolve(owner); err != nil {
		return nil, err
	}

	joinable := make([]any, len(l.joinable))
	for i, n := range l.joinable {
		joinable[i] = n.AliasPath
	}
	external := make([]any, len(l.external))
	for i, n := range l.external {
		external[i] = map[string]any{
			"alias_path":    n.AliasPath,
			"strategy":      string(n.Options.StrategyOr(ir.StrategySelect)),
			"requires_keys": n.Relation.RequiresKeys(n.Options),
		}
	}

	desc := map[string]any{
		"source":   owner.Alias(),
		"contain":  l.contain.Describe(),
		"joinable": joinable,
		"external": external,
	}
	if l.matching != nil {
		desc["matching"] = l.matching.contain.Describe()
	}
	return desc, nil
}
