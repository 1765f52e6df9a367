package resource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/fetchplan/internal/hydrate"
	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
	"github.com/roach88/fetchplan/internal/queryir"
	"github.com/roach88/fetchplan/internal/querysql"
)

// Builder customizes the query issued for one relation.
type Builder func(*Query) *Query

func (b Builder) transform() plan.QueryTransform {
	if b == nil {
		return nil
	}
	return func(f plan.Fetch) plan.Fetch {
		q, ok := f.(*Query)
		if !ok {
			return f
		}
		return b(q)
	}
}

// Query is a fetch of one resource. Builder methods return the query for
// chaining; the first error is kept and reported by Build and All.
type Query struct {
	id       string
	parentID string
	source   *Resource
	exec     Executor
	loader   *plan.Loader

	fields []string
	filter queryir.Predicate
	order  []queryir.OrderTerm
	limit  int

	// prepare runs on the base select before relations are attached.
	prepare []func(*queryir.Select)
	err     error

	building *queryir.Select
	built    *queryir.Select
}

func newQuery(source *Resource, exec Executor) *Query {
	return &Query{
		id:     source.catalog.newID(),
		source: source,
		exec:   exec,
		loader: plan.NewLoader(),
	}
}

// child starts the second fetch of an external load.
func (q *Query) child(target *Resource) *Query {
	c := newQuery(target, q.exec)
	c.parentID = q.id
	return c
}

// ID identifies the query in log lines.
func (q *Query) ID() string {
	return q.id
}

// Source returns the resource being fetched.
func (q *Query) Source() *Resource {
	return q.source
}

// Loader implements plan.Fetch.
func (q *Query) Loader() *plan.Loader {
	return q.loader
}

// Err returns the first error recorded by a builder method.
func (q *Query) Err() error {
	return q.err
}

func (q *Query) setErr(err error) {
	if err != nil && q.err == nil {
		q.err = err
	}
}

func (q *Query) where(p queryir.Predicate) {
	q.filter = queryir.Conjoin(q.filter, p)
}

// Select restricts the projected columns of the base resource.
func (q *Query) Select(fields ...string) *Query {
	for _, f := range fields {
		if !q.source.spec.HasColumn(f) {
			q.setErr(fmt.Errorf("unknown column %q on %s", f, q.source.spec.Name))
			continue
		}
		if !containsString(q.fields, f) {
			q.fields = append(q.fields, f)
		}
	}
	return q
}

// Where adds equality conditions. See conditionsPredicate for the shape.
func (q *Query) Where(conds map[string]any) *Query {
	for k := range conds {
		alias, field := splitField(q.source.alias, k)
		if alias == q.source.alias && !q.source.spec.HasColumn(field) {
			q.setErr(fmt.Errorf("unknown column %q on %s", field, q.source.spec.Name))
		}
	}
	q.where(conditionsPredicate(q.source.alias, conds))
	return q
}

// OrderBy appends sort terms such as "title" or "Authors.name DESC".
func (q *Query) OrderBy(terms ...string) *Query {
	for _, term := range terms {
		t, err := parseOrder(q.source.alias, term)
		if err != nil {
			q.setErr(err)
			continue
		}
		q.order = append(q.order, t)
	}
	return q
}

// Limit caps the number of base rows. Zero removes the cap.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.setErr(fmt.Errorf("invalid limit %d", n))
		return q
	}
	q.limit = n
	return q
}

// Find applies a finder declared on the resource.
func (q *Query) Find(name string) *Query {
	f, err := q.source.finder(name)
	if err != nil {
		q.setErr(err)
		return q
	}
	q.where(conditionsPredicate(q.source.alias, f.Conditions))
	q.OrderBy(f.Sort...)
	if len(f.Contain) > 0 {
		q.Contain(f.Contain)
	}
	return q
}

// Contain eager loads relations. v takes any shape plan.ParseSpec accepts.
func (q *Query) Contain(v any) *Query {
	q.setErr(q.loader.Contain(v))
	return q
}

// ContainWith eager loads a dotted relation path and customizes the query
// of its last relation.
func (q *Query) ContainWith(path string, fn Builder) *Query {
	q.setErr(q.loader.ContainWith(path, fn.transform()))
	return q
}

// Matching keeps base rows that have related rows along path. No related
// columns are added unless fn selects some; those are returned under the
// matching data key.
func (q *Query) Matching(path string, fn Builder) *Query {
	q.setErr(q.loader.SetMatching(path, fn.transform(), plan.Options{NoFields: true}))
	return q
}

// InnerJoinWith filters like Matching.
func (q *Query) InnerJoinWith(path string, fn Builder) *Query {
	q.setErr(q.loader.SetMatching(path, fn.transform(), plan.Options{NoFields: true}))
	return q
}

// LeftJoinWith joins path with LEFT joins without selecting related
// columns or filtering base rows.
func (q *Query) LeftJoinWith(path string, fn Builder) *Query {
	q.setErr(q.loader.SetMatching(path, fn.transform(), plan.Options{
		JoinType: ir.JoinLeft,
		NoFields: true,
	}))
	return q
}

// NotMatching keeps base rows that have no related rows along path.
func (q *Query) NotMatching(path string, fn Builder) *Query {
	q.setErr(q.loader.SetMatching(path, fn.transform(), plan.Options{
		JoinType:    ir.JoinLeft,
		NoFields:    true,
		NegateMatch: true,
	}))
	return q
}

// Build returns the base select with every joinable relation attached.
func (q *Query) Build() (queryir.Select, error) {
	if q.err != nil {
		return queryir.Select{}, q.err
	}

	spec := q.source.spec
	sel := queryir.Select{
		From:   spec.Table,
		Alias:  q.source.alias,
		Key:    append([]string(nil), spec.PrimaryKey...),
		Filter: q.filter,
		Limit:  q.limit,
	}
	sel.OrderBy = append(sel.OrderBy, q.order...)
	fields := q.fields
	if len(fields) == 0 {
		fields = spec.Columns
	}
	sel.AddColumns(q.source.alias, fields...)
	for _, fn := range q.prepare {
		fn(&sel)
	}

	q.building = &sel
	err := q.loader.AttachAssociations(q, q.source, true)
	q.building = nil
	if err != nil {
		return queryir.Select{}, err
	}

	if res := queryir.Validate(sel); !res.Valid {
		return queryir.Select{}, fmt.Errorf("invalid fetch of %s: %s", q.source.alias, strings.Join(res.Problems, "; "))
	}
	q.built = &sel
	return sel, nil
}

// SQL builds and compiles the base select.
func (q *Query) SQL() (string, []any, error) {
	sel, err := q.Build()
	if err != nil {
		return "", nil, err
	}
	return querysql.NewSQLCompiler().Compile(sel)
}

// All runs the fetch, loads external relations and returns hydrated
// records. The result is never nil on success.
func (q *Query) All(ctx context.Context) ([]ir.Record, error) {
	if q.exec == nil {
		return nil, fmt.Errorf("fetch %s: no executor", q.source.alias)
	}
	query, params, err := q.SQL()
	if err != nil {
		return nil, err
	}

	slog.Debug("fetch started",
		"query_id", q.id,
		"parent_id", q.parentID,
		"resource", q.source.spec.Name,
		"alias", q.source.alias)

	rs, err := q.exec.Stream(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.source.alias, err)
	}
	defer rs.Close()

	// Drain before external loads; the store runs on a single connection.
	n := rs.Count()
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.source.alias, err)
	}

	if err := q.loader.LoadExternal(ctx, q, q.source, rs); err != nil {
		return nil, err
	}
	rows, err := rs.Records()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.source.alias, err)
	}

	assocs, err := q.loader.AssociationsMap(q.source)
	if err != nil {
		return nil, err
	}

	slog.Debug("fetch finished", "query_id", q.id, "rows", n)
	return hydrate.Records(q.source.alias, assocs, rows), nil
}

// Describe returns the resolved plan summary of the query.
func (q *Query) Describe() (map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.loader.Describe(q.source)
}

// Associations returns the hydration map of the query.
func (q *Query) Associations() ([]plan.Association, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.loader.AssociationsMap(q.source)
}

// subquery turns the built select into a DISTINCT projection of alias.cols
// for correlating a second fetch.
func (q *Query) subquery(alias string, cols []string) (queryir.Select, error) {
	if q.built == nil {
		return queryir.Select{}, fmt.Errorf("fetch of %s has not been built", q.source.alias)
	}
	sub := *q.built
	sub.Columns = nil
	sub.AddColumns(alias, cols...)
	sub.OrderBy = nil
	sub.Limit = 0
	sub.Distinct = true
	return sub, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
