package ir

import "fmt"

// Cardinality describes how many target rows relate to one source row.
type Cardinality string

const (
	ManyToOne  Cardinality = "manyToOne"
	OneToOne   Cardinality = "oneToOne"
	OneToMany  Cardinality = "oneToMany"
	ManyToMany Cardinality = "manyToMany"
)

// IsToMany reports whether a source row may own a list of target rows.
func (c Cardinality) IsToMany() bool {
	return c == OneToMany || c == ManyToMany
}

// Strategy selects how a relation is loaded.
type Strategy string

const (
	// StrategyJoin folds the relation into the base fetch.
	StrategyJoin Strategy = "join"
	// StrategySelect issues a second fetch filtered by collected keys.
	StrategySelect Strategy = "select"
	// StrategySubquery issues a second fetch correlated through a subquery
	// of the base fetch; no keys are collected.
	StrategySubquery Strategy = "subquery"
)

// ValidStrategies defines allowed loading strategies.
var ValidStrategies = map[Strategy]bool{
	StrategyJoin:     true,
	StrategySelect:   true,
	StrategySubquery: true,
}

// JoinKind is the SQL join flavour used when a relation is attached inline.
type JoinKind string

const (
	JoinLeft  JoinKind = "LEFT"
	JoinInner JoinKind = "INNER"
)

// ValidJoinKinds defines allowed join kinds.
var ValidJoinKinds = map[JoinKind]bool{
	JoinLeft:  true,
	JoinInner: true,
}

// RelationKind is the catalog-level relation variant.
type RelationKind string

const (
	BelongsTo     RelationKind = "belongsTo"
	HasOne        RelationKind = "hasOne"
	HasMany       RelationKind = "hasMany"
	BelongsToMany RelationKind = "belongsToMany"
)

// ValidRelationKinds defines allowed relation kinds.
var ValidRelationKinds = map[RelationKind]bool{
	BelongsTo:     true,
	HasOne:        true,
	HasMany:       true,
	BelongsToMany: true,
}

// Cardinality maps a relation kind to its cardinality.
func (k RelationKind) Cardinality() Cardinality {
	switch k {
	case BelongsTo:
		return ManyToOne
	case HasOne:
		return OneToOne
	case HasMany:
		return OneToMany
	case BelongsToMany:
		return ManyToMany
	default:
		panic(fmt.Sprintf("unknown relation kind %q", string(k)))
	}
}

// Record is one result row. Rows coming out of the store are flat and keyed
// by AliasField names; hydrated rows nest related records under their
// property names.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ResourceSpec is a compiled catalog entry describing one data source.
type ResourceSpec struct {
	Name       string                `json:"name"`
	Table      string                `json:"table"`
	PrimaryKey []string              `json:"primary_key"`
	Columns    []string              `json:"columns"`
	Relations  []RelationSpec        `json:"relations"`
	Finders    map[string]FinderSpec `json:"finders,omitempty"`
}

// Relation returns the relation registered under name.
func (r *ResourceSpec) Relation(name string) (RelationSpec, bool) {
	for _, rel := range r.Relations {
		if rel.Name == name {
			return rel, true
		}
	}
	return RelationSpec{}, false
}

// HasColumn reports whether col is a declared column.
func (r *ResourceSpec) HasColumn(col string) bool {
	for _, c := range r.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// RelationSpec describes one relation edge of a resource.
type RelationSpec struct {
	Name   string       `json:"name"`
	Kind   RelationKind `json:"kind"`
	Target string       `json:"target"`

	// ForeignKey is the column set on the owning side of the key: the
	// source for belongsTo, the target for hasOne/hasMany and the pivot
	// for belongsToMany.
	ForeignKey []string `json:"foreign_key"`

	// BindingKey is the referenced column set. Defaults to the primary key
	// of the target (belongsTo) or of the source (everything else).
	BindingKey []string `json:"binding_key,omitempty"`

	Property   string         `json:"property,omitempty"`
	Strategy   Strategy       `json:"strategy,omitempty"`
	JoinType   JoinKind       `json:"join_type,omitempty"`
	Sort       []string       `json:"sort,omitempty"`
	Conditions map[string]any `json:"conditions,omitempty"`

	// Through and TargetForeignKey are set for belongsToMany only.
	Through          string   `json:"through,omitempty"`
	TargetForeignKey []string `json:"target_foreign_key,omitempty"`
}

// FinderSpec is a named, reusable set of query refinements.
type FinderSpec struct {
	Conditions map[string]any `json:"conditions,omitempty"`
	Sort       []string       `json:"sort,omitempty"`
	Contain    []string       `json:"contain,omitempty"`
}
