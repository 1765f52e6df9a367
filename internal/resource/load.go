package resource

import (
	"context"
	"fmt"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
	"github.com/roach88/fetchplan/internal/queryir"
)

// loadPlan is what differs between relation kinds when loading with a
// second fetch.
type loadPlan struct {
	strategy ir.Strategy

	// filterAlias owns targetKey in the second fetch: the target itself,
	// or the pivot of a belongsToMany.
	filterAlias string
	targetKey   []string

	// sourceKey is read from the base records.
	sourceKey []string

	single   bool // nest one record (or nil) instead of a list
	joinData bool // targetKey is read from the join data of loaded rows
	prepare  func(*Query)
}

// load runs the second fetch and returns the transform that nests its rows
// under cfg.NestKey of the matching base record.
func (a *association) load(ctx context.Context, cfg plan.LoaderConfig, lp loadPlan) (plan.Transform, error) {
	parent, ok := cfg.Fetch.(*Query)
	if !ok {
		return nil, fmt.Errorf("load %s: unsupported fetch type %T", a.spec.Name, cfg.Fetch)
	}

	q := parent.child(a.target)
	if lp.prepare != nil {
		lp.prepare(q)
	}

	switch {
	case cfg.Keys != nil:
		q.where(queryir.In{Alias: lp.filterAlias, Fields: lp.targetKey, Values: cfg.Keys.Tuples()})
	case lp.strategy == ir.StrategySubquery:
		sub, err := parent.subquery(a.source.alias, lp.sourceKey)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", a.spec.Name, err)
		}
		q.where(queryir.SubqueryIn{Alias: lp.filterAlias, Fields: lp.targetKey, Query: sub})
	default:
		return nil, fmt.Errorf("load %s: no keys collected for the %s strategy", a.spec.Name, lp.strategy)
	}

	alias := a.target.alias
	q.where(conditionsPredicate(alias, a.spec.Conditions))
	q.where(conditionsPredicate(alias, cfg.Conditions))

	sort := cfg.Sort
	if sort == nil {
		sort = a.spec.Sort
	}
	q.OrderBy(sort...)

	if len(cfg.Fields) > 0 {
		q.Select(cfg.Fields...)
		if lp.filterAlias == alias {
			q.Select(lp.targetKey...)
		}
	}
	if cfg.Finder != "" {
		q.Find(cfg.Finder)
	}
	if len(cfg.Contain) > 0 {
		q.Contain(plan.SpecOf(cfg.Contain))
	}
	if cfg.QueryBuilder != nil {
		var err error
		if q, err = applyBuilder(cfg.QueryBuilder, q); err != nil {
			return nil, err
		}
	}

	rows, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.spec.Name, err)
	}

	groups := make(map[string][]ir.Record)
	for _, row := range rows {
		tuple, ok := loadedKey(row, lp)
		if !ok {
			continue
		}
		key := plan.KeyString(tuple)
		groups[key] = append(groups[key], row)
	}

	sourceCols := make([]string, len(lp.sourceKey))
	for i, c := range lp.sourceKey {
		sourceCols[i] = ir.AliasField(a.source.alias, c)
	}
	nestKey := cfg.NestKey

	return func(rec ir.Record) (ir.Record, error) {
		var matches []ir.Record
		if tuple, ok := valuesAt(rec, sourceCols); ok {
			matches = groups[plan.KeyString(tuple)]
		}

		out := rec.Clone()
		if lp.single {
			if len(matches) > 0 {
				out[nestKey] = matches[0].Clone()
			} else {
				out[nestKey] = nil
			}
			return out, nil
		}
		list := make([]any, 0, len(matches))
		for _, m := range matches {
			list = append(list, m)
		}
		out[nestKey] = list
		return out, nil
	}, nil
}

// loadedKey reads the correlation key of one hydrated row of the second
// fetch.
func loadedKey(row ir.Record, lp loadPlan) ([]any, bool) {
	src := row
	if lp.joinData {
		jd, ok := row[ir.JoinDataKey].(ir.Record)
		if !ok {
			return nil, false
		}
		src = jd
	}
	return valuesAt(src, lp.targetKey)
}

// valuesAt returns rec's values for cols, or false if any is missing or
// null.
func valuesAt(rec ir.Record, cols []string) ([]any, bool) {
	tuple := make([]any, len(cols))
	for i, c := range cols {
		v, ok := rec[c]
		if !ok || v == nil {
			return nil, false
		}
		tuple[i] = v
	}
	return tuple, true
}
