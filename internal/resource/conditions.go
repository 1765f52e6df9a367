package resource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
	"github.com/roach88/fetchplan/internal/queryir"
)

// conditionsPredicate turns a column to value mapping into a conjunction.
// Keys are field names on alias or "Alias.field". A nil value matches
// NULL and a list matches any of its values.
func conditionsPredicate(alias string, conds map[string]any) queryir.Predicate {
	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p queryir.Predicate
	for _, k := range keys {
		a, field := splitField(alias, k)
		p = queryir.Conjoin(p, valuePredicate(a, field, conds[k]))
	}
	return p
}

func splitField(alias, key string) (string, string) {
	if a, f, ok := strings.Cut(key, "."); ok {
		return a, f
	}
	return alias, key
}

func valuePredicate(alias, field string, v any) queryir.Predicate {
	var list []any
	switch val := v.(type) {
	case []any:
		list = val
	case []string:
		for _, s := range val {
			list = append(list, s)
		}
	case []int64:
		for _, n := range val {
			list = append(list, n)
		}
	case []int:
		for _, n := range val {
			list = append(list, int64(n))
		}
	default:
		return queryir.Equals{Alias: alias, Field: field, Value: v}
	}

	values := make([][]any, len(list))
	for i, item := range list {
		values[i] = []any{item}
	}
	return queryir.In{Alias: alias, Fields: []string{field}, Values: values}
}

// parseOrder reads "field", "field DESC" or "Alias.field asc".
func parseOrder(alias, term string) (queryir.OrderTerm, error) {
	parts := strings.Fields(term)
	if len(parts) == 0 || len(parts) > 2 {
		return queryir.OrderTerm{}, fmt.Errorf("invalid sort term %q", term)
	}

	a, field := splitField(alias, parts[0])
	t := queryir.OrderTerm{Alias: a, Field: field}
	if len(parts) == 2 {
		switch strings.ToUpper(parts[1]) {
		case "ASC":
		case "DESC":
			t.Desc = true
		default:
			return queryir.OrderTerm{}, fmt.Errorf("invalid sort direction in %q", term)
		}
	}
	return t, nil
}

// applyBuilder runs a relation's query builder and checks it returned a
// query of this package.
func applyBuilder(fn plan.QueryTransform, q *Query) (*Query, error) {
	out, ok := fn(q).(*Query)
	if !ok || out == nil {
		return nil, fmt.Errorf("query builder for %s must return a *resource.Query", q.source.alias)
	}
	if out.err != nil {
		return nil, out.err
	}
	return out, nil
}

// finder returns the named finder of the resource.
func (r *Resource) finder(name string) (ir.FinderSpec, error) {
	f, ok := r.spec.Finders[name]
	if !ok {
		return ir.FinderSpec{}, fmt.Errorf("unknown finder %q on %s", name, r.spec.Name)
	}
	return f, nil
}
