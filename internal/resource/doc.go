// Package resource binds compiled catalog entries to the fetch planner.
//
// A Catalog turns ir.ResourceSpec values into Resources. A Resource is a
// plan.Source seen under an alias: the catalog entry itself uses the
// resource name, the target of a relation uses the relation name. Each
// relation kind has its own plan.Relation implementation (BelongsTo,
// HasOne, HasMany, BelongsToMany) that knows how to fold itself into a
// base fetch as a join and how to load itself with a second fetch.
//
// Query is the base fetch. It collects filters, ordering and containment,
// builds a queryir.Select with every joinable relation attached, runs it
// through an Executor and hydrates the rows:
//
//	q, _ := catalog.Query("Articles", st)
//	rows, err := q.Contain("Authors.Publishers").
//		Contain(map[string]any{"Comments": map[string]any{"sort": "id DESC"}}).
//		Where(map[string]any{"published": true}).
//		All(ctx)
package resource
