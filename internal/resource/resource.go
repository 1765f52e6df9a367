package resource

import (
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
)

// Resource is a catalog entry seen under an alias. It implements
// plan.Source.
type Resource struct {
	spec    *ir.ResourceSpec
	catalog *Catalog
	alias   string
	rels    map[string]plan.Relation
}

// Name returns the catalog name of the resource.
func (r *Resource) Name() string {
	return r.spec.Name
}

// Alias returns the name the resource goes by inside a fetch.
func (r *Resource) Alias() string {
	return r.alias
}

// Spec returns the compiled catalog entry.
func (r *Resource) Spec() ir.ResourceSpec {
	return *r.spec
}

// Relation returns the relation registered under name. A name that only
// differs in case resolves to the registered relation, whose Name then
// tells the planner the binding does not match.
func (r *Resource) Relation(name string) (plan.Relation, bool) {
	if rel, ok := r.rels[name]; ok {
		return rel, true
	}

	spec, ok := r.spec.Relation(name)
	if !ok {
		for _, candidate := range r.spec.Relations {
			if strings.EqualFold(candidate.Name, name) {
				spec, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return nil, false
	}
	if rel, cached := r.rels[spec.Name]; cached {
		return rel, true
	}

	target, ok := r.catalog.resources[spec.Target]
	if !ok {
		return nil, false
	}
	rel := newRelation(spec, r, target.as(spec.Name))
	if r.rels == nil {
		r.rels = make(map[string]plan.Relation)
	}
	r.rels[spec.Name] = rel
	return rel, true
}

// Query starts a fetch of the resource under its current alias.
func (r *Resource) Query(exec Executor) *Query {
	return newQuery(r, exec)
}

// as returns the same resource under another alias.
func (r *Resource) as(alias string) *Resource {
	return &Resource{spec: r.spec, catalog: r.catalog, alias: alias}
}

func newRelation(spec ir.RelationSpec, source, target *Resource) plan.Relation {
	base := association{spec: spec, source: source, target: target}
	switch spec.Kind {
	case ir.BelongsTo:
		return &BelongsTo{association: base}
	case ir.HasOne:
		return &HasOne{association: base}
	case ir.HasMany:
		return &HasMany{association: base}
	default:
		return &BelongsToMany{association: base}
	}
}
