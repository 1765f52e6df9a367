package plan

import (
	"context"

	"github.com/roach88/fetchplan/internal/ir"
)

// Source is a data source that owns relations.
type Source interface {
	// Alias identifies the source inside a fetch and in error messages.
	Alias() string

	// Relation resolves a relation by name. The returned relation's Name
	// must equal name for the containment to be valid.
	Relation(name string) (Relation, bool)
}

// Relation describes one relationship edge and knows how to load it.
// Implementations exist per relation variant; the planner never inspects
// concrete types.
type Relation interface {
	Name() string
	Source() Source
	Target() Source
	Cardinality() ir.Cardinality

	// Property is the attachment name on hydrated source records.
	Property() string

	ForeignKey() []string
	BindingKey() []string

	// CanBeJoined reports whether the relation can be folded into the
	// base fetch given the node options.
	CanBeJoined(opts Options) bool

	// RequiresKeys reports whether an external load needs correlation
	// keys collected from the base results.
	RequiresKeys(opts Options) bool

	// AttachTo folds the relation into f. It may register further
	// containments on f.Loader().
	AttachTo(f Fetch, cfg JoinConfig) error

	// EagerLoader runs the external load and returns the transform that
	// folds its results into one base record.
	EagerLoader(ctx context.Context, cfg LoaderConfig) (Transform, error)
}

// Fetch is the in-flight base fetch a plan is attached to.
type Fetch interface {
	Loader() *Loader
}

// Transform enriches one base record with externally loaded data.
type Transform func(ir.Record) (ir.Record, error)

// JoinConfig is passed to Relation.AttachTo.
type JoinConfig struct {
	Options
	AliasPath     string
	PropertyPath  string
	IncludeFields bool

	// KeyFields are target columns that external children of the node
	// correlate on. They are projected along with any explicit fields.
	KeyFields []string
}

// LoaderConfig is passed to Relation.EagerLoader.
type LoaderConfig struct {
	Options

	// Fetch is the base fetch whose results are being enriched.
	Fetch Fetch

	// Contain holds the compiled children of the node; the loader runs
	// them as the containment of its own fetch.
	Contain []*Node

	// Keys is nil when the relation does not require keys.
	Keys *KeySet

	// NestKey is the record key the transform writes loaded data to.
	NestKey string
}

// Stream is a replayable, forward-only sequence of base records.
type Stream interface {
	Next() bool
	Record() ir.Record
	// Replace swaps the record at the current position.
	Replace(ir.Record)
	Err() error
	Rewind()
	Count() int
}

// CorrelationColumns returns the source-side columns that correlate base
// records with an external load: the foreign key for many-to-one relations,
// the binding key otherwise. A foreignKey option overrides the relation's
// own foreign key.
func CorrelationColumns(rel Relation, opts Options) []string {
	if rel.Cardinality() == ir.ManyToOne {
		if len(opts.ForeignKey) > 0 {
			return opts.ForeignKey
		}
		return rel.ForeignKey()
	}
	return rel.BindingKey()
}
