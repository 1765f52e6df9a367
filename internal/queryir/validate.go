package queryir

import (
	"fmt"
)

// ValidationResult lists the structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
}

// Validate checks a query for problems a backend cannot compile:
//
//  1. A select with no base table, alias or projected columns
//  2. Two joins sharing an alias, or a join reusing the base alias
//  3. A join without a condition
//  4. An In tuple whose width differs from its field list
//  5. A subquery projecting a different number of columns than it is
//     compared with
//
// Predicates referencing unknown aliases are reported too.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query, true)
	case *Select:
		v.validateSelect(*query, true)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select, top bool) {
	if sel.From == "" {
		v.addProblem("select has no base table")
	}
	if sel.Alias == "" {
		v.addProblem("select on %s has no alias", sel.From)
	}
	if len(sel.Columns) == 0 {
		v.addProblem("select on %s projects no columns", sel.From)
	}
	if top && len(sel.Key) == 0 {
		v.addProblem("select on %s has no key to order by", sel.From)
	}

	aliases := map[string]bool{sel.Alias: true}
	for _, j := range sel.Joins {
		if aliases[j.Alias] {
			v.addProblem("alias %s is joined more than once", j.Alias)
		}
		aliases[j.Alias] = true
		if j.On == nil {
			v.addProblem("join %s has no condition", j.Alias)
			continue
		}
	}
	for _, j := range sel.Joins {
		if j.On != nil {
			v.validatePredicate(j.On, aliases)
		}
	}

	for _, c := range sel.Columns {
		if !aliases[c.Alias] {
			v.addProblem("column %s references unknown alias %s", c.Field, c.Alias)
		}
	}
	for _, o := range sel.OrderBy {
		if !aliases[o.Alias] {
			v.addProblem("order term %s references unknown alias %s", o.Field, o.Alias)
		}
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter, aliases)
	}
}

func (v *validator) validatePredicate(p Predicate, aliases map[string]bool) {
	checkAlias := func(alias string) {
		if !aliases[alias] {
			v.addProblem("predicate references unknown alias %s", alias)
		}
	}

	switch pred := p.(type) {
	case nil:
	case Equals:
		checkAlias(pred.Alias)
	case *Equals:
		checkAlias(pred.Alias)
	case ColumnEquals:
		checkAlias(pred.LeftAlias)
		checkAlias(pred.RightAlias)
	case *ColumnEquals:
		checkAlias(pred.LeftAlias)
		checkAlias(pred.RightAlias)
	case In:
		checkAlias(pred.Alias)
		v.validateIn(pred)
	case *In:
		checkAlias(pred.Alias)
		v.validateIn(*pred)
	case IsNull:
		checkAlias(pred.Alias)
	case *IsNull:
		checkAlias(pred.Alias)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, aliases)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, aliases)
		}
	case SubqueryIn:
		checkAlias(pred.Alias)
		v.validateSubquery(pred)
	case *SubqueryIn:
		checkAlias(pred.Alias)
		v.validateSubquery(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateIn(in In) {
	if len(in.Fields) == 0 {
		v.addProblem("IN on %s has no fields", in.Alias)
		return
	}
	for i, tuple := range in.Values {
		if len(tuple) != len(in.Fields) {
			v.addProblem("IN on %s: tuple %d has %d values, want %d",
				in.Alias, i, len(tuple), len(in.Fields))
		}
	}
}

func (v *validator) validateSubquery(sq SubqueryIn) {
	if len(sq.Query.Columns) != len(sq.Fields) {
		v.addProblem("subquery on %s projects %d columns, want %d",
			sq.Query.From, len(sq.Query.Columns), len(sq.Fields))
	}
	v.validateSelect(sq.Query, false)
}
