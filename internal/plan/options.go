package plan

import (
	"github.com/roach88/fetchplan/internal/ir"
)

// Option keys recognized inside a containment entry. Any other key in an
// entry names a nested relation.
const (
	OptAssociations = "associations"
	OptForeignKey   = "foreignKey"
	OptConditions   = "conditions"
	OptFields       = "fields"
	OptSort         = "sort"
	OptMatching     = "matching"
	OptQueryBuilder = "queryBuilder"
	OptFinder       = "finder"
	OptJoinType     = "joinType"
	OptStrategy     = "strategy"
	OptNegateMatch  = "negateMatch"
)

var optionKeys = map[string]bool{
	OptAssociations: true,
	OptForeignKey:   true,
	OptConditions:   true,
	OptFields:       true,
	OptSort:         true,
	OptMatching:     true,
	OptQueryBuilder: true,
	OptFinder:       true,
	OptJoinType:     true,
	OptStrategy:     true,
	OptNegateMatch:  true,
}

// IsOptionKey reports whether key is a recognized containment option.
func IsOptionKey(key string) bool {
	return optionKeys[key]
}

// QueryTransform customizes the fetch issued for one relation.
type QueryTransform func(Fetch) Fetch

// Compose returns a transform that applies first and then second.
func Compose(first, second QueryTransform) QueryTransform {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(f Fetch) Fetch {
		return second(first(f))
	}
}

// Options is the set of recognized options of one containment entry.
// Nested relations live in Entry.Children, not here.
type Options struct {
	ForeignKey   []string
	Conditions   map[string]any
	Fields       []string
	NoFields     bool // fields: false
	Sort         []string
	Matching     *bool
	QueryBuilder QueryTransform
	Finder       string
	JoinType     ir.JoinKind
	Strategy     ir.Strategy
	NegateMatch  bool
}

// Merge returns o overlaid with later. Set fields of later replace those
// of o; query builders compose so the later one sees the earlier result.
// A false NegateMatch never clears a true one.
func (o Options) Merge(later Options) Options {
	out := o
	if later.ForeignKey != nil {
		out.ForeignKey = later.ForeignKey
	}
	if later.Conditions != nil {
		out.Conditions = later.Conditions
	}
	if later.Fields != nil {
		out.Fields = later.Fields
		out.NoFields = false
	}
	if later.NoFields {
		out.NoFields = true
		out.Fields = nil
	}
	if later.Sort != nil {
		out.Sort = later.Sort
	}
	if later.Matching != nil {
		m := *later.Matching
		out.Matching = &m
	}
	out.QueryBuilder = Compose(o.QueryBuilder, later.QueryBuilder)
	if later.Finder != "" {
		out.Finder = later.Finder
	}
	if later.JoinType != "" {
		out.JoinType = later.JoinType
	}
	if later.Strategy != "" {
		out.Strategy = later.Strategy
	}
	if later.NegateMatch {
		out.NegateMatch = true
	}
	return out
}

// IsMatching reports whether the matching flag is set to true.
func (o Options) IsMatching() bool {
	return o.Matching != nil && *o.Matching
}

// StrategyOr returns the configured strategy or def.
func (o Options) StrategyOr(def ir.Strategy) ir.Strategy {
	if o.Strategy != "" {
		return o.Strategy
	}
	return def
}

// JoinTypeOr returns the configured join kind or def.
func (o Options) JoinTypeOr(def ir.JoinKind) ir.JoinKind {
	if o.JoinType != "" {
		return o.JoinType
	}
	return def
}

// describe returns the option set as a plain map for plan descriptions.
// Query builders are reported by presence only.
func (o Options) describe() map[string]any {
	out := map[string]any{}
	if o.ForeignKey != nil {
		out[OptForeignKey] = o.ForeignKey
	}
	if o.Conditions != nil {
		out[OptConditions] = o.Conditions
	}
	if o.NoFields {
		out[OptFields] = false
	} else if o.Fields != nil {
		out[OptFields] = o.Fields
	}
	if o.Sort != nil {
		out[OptSort] = o.Sort
	}
	if o.Matching != nil {
		out[OptMatching] = *o.Matching
	}
	if o.QueryBuilder != nil {
		out[OptQueryBuilder] = true
	}
	if o.Finder != "" {
		out[OptFinder] = o.Finder
	}
	if o.JoinType != "" {
		out[OptJoinType] = string(o.JoinType)
	}
	if o.Strategy != "" {
		out[OptStrategy] = string(o.Strategy)
	}
	if o.NegateMatch {
		out[OptNegateMatch] = true
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
