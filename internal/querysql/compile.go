package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/fetchplan/internal/queryir"
)

// SQLCompiler compiles queryir queries to parameterized SQLite SQL.
//
// Every top-level select ends with ORDER BY over the requested terms plus
// the base table key, so results are deterministic. Values are always
// bound as parameters, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query, false)
	case *queryir.Select:
		return c.compileSelect(*query, false)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect renders a select. As a subquery it projects bare columns
// and carries no ORDER BY.
func (c *SQLCompiler) compileSelect(q queryir.Select, subquery bool) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("select on %s projects no columns", q.From)
	}

	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	if subquery && q.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, col := range q.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(qualified(col.Alias, col.Field))
		if !subquery {
			b.WriteString(" AS ")
			b.WriteString(quoteIdent(col.Name()))
		}
	}

	fmt.Fprintf(&b, " FROM %s AS %s", quoteIdent(q.From), quoteIdent(q.Alias))

	for _, j := range q.Joins {
		if j.On == nil {
			return "", nil, fmt.Errorf("join %s has no condition", j.Alias)
		}
		onSQL, onParams, err := c.compilePredicate(j.On)
		if err != nil {
			return "", nil, fmt.Errorf("compile join %s: %w", j.Alias, err)
		}
		kind := string(j.Kind)
		if kind == "" {
			kind = "INNER"
		}
		fmt.Fprintf(&b, " %s JOIN %s AS %s ON %s", kind, quoteIdent(j.Table), quoteIdent(j.Alias), onSQL)
		params = append(params, onParams...)
	}

	if q.Filter != nil {
		whereSQL, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(whereSQL)
		params = append(params, whereParams...)
	}

	if !subquery {
		order, err := stableOrder(q)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return b.String(), params, nil
}

// stableOrder renders the requested order terms followed by every key
// column not already ordered on.
func stableOrder(q queryir.Select) (string, error) {
	if len(q.Key) == 0 {
		return "", fmt.Errorf("select on %s has no key to order by", q.From)
	}

	var parts []string
	seen := make(map[string]bool)
	for _, term := range q.OrderBy {
		dir := "ASC"
		if term.Desc {
			dir = "DESC"
		}
		parts = append(parts, qualified(term.Alias, term.Field)+" "+dir)
		seen[term.Alias+"."+term.Field] = true
	}
	for _, k := range q.Key {
		if seen[q.Alias+"."+k] {
			continue
		}
		parts = append(parts, qualified(q.Alias, k)+" ASC")
	}
	return strings.Join(parts, ", "), nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.ColumnEquals:
		return compileColumnEquals(pred), nil, nil
	case *queryir.ColumnEquals:
		return compileColumnEquals(*pred), nil, nil
	case queryir.In:
		return compileIn(pred)
	case *queryir.In:
		return compileIn(*pred)
	case queryir.IsNull:
		return compileIsNull(pred), nil, nil
	case *queryir.IsNull:
		return compileIsNull(*pred), nil, nil
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	case queryir.SubqueryIn:
		return c.compileSubqueryIn(pred)
	case *queryir.SubqueryIn:
		return c.compileSubqueryIn(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	if eq.Value == nil {
		return qualified(eq.Alias, eq.Field) + " IS NULL", nil, nil
	}
	return qualified(eq.Alias, eq.Field) + " = ?", []any{eq.Value}, nil
}

func compileColumnEquals(ce queryir.ColumnEquals) string {
	return qualified(ce.LeftAlias, ce.LeftField) + " = " + qualified(ce.RightAlias, ce.RightField)
}

func compileIsNull(n queryir.IsNull) string {
	if n.Negate {
		return qualified(n.Alias, n.Field) + " IS NOT NULL"
	}
	return qualified(n.Alias, n.Field) + " IS NULL"
}

// compileIn renders a single column IN list, or a row value compared with
// a VALUES table for composite keys. An empty list matches nothing.
func compileIn(in queryir.In) (string, []any, error) {
	if len(in.Fields) == 0 {
		return "", nil, fmt.Errorf("IN on %s has no fields", in.Alias)
	}
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}

	width := len(in.Fields)
	params := make([]any, 0, len(in.Values)*width)
	for i, tuple := range in.Values {
		if len(tuple) != width {
			return "", nil, fmt.Errorf("IN on %s: tuple %d has %d values, want %d", in.Alias, i, len(tuple), width)
		}
		params = append(params, tuple...)
	}

	if width == 1 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
		return fmt.Sprintf("%s IN (%s)", qualified(in.Alias, in.Fields[0]), marks), params, nil
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	rows := make([]string, len(in.Values))
	for i := range rows {
		rows[i] = row
	}
	return fmt.Sprintf("%s IN (VALUES %s)", rowValue(in.Alias, in.Fields), strings.Join(rows, ", ")), params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested && len(and.Predicates) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *SQLCompiler) compileSubqueryIn(sq queryir.SubqueryIn) (string, []any, error) {
	if len(sq.Fields) != len(sq.Query.Columns) {
		return "", nil, fmt.Errorf("subquery on %s projects %d columns, want %d",
			sq.Query.From, len(sq.Query.Columns), len(sq.Fields))
	}
	sub, params, err := c.compileSelect(sq.Query, true)
	if err != nil {
		return "", nil, fmt.Errorf("compile subquery: %w", err)
	}
	op := "IN"
	if sq.Negate {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", rowValue(sq.Alias, sq.Fields), op, sub), params, nil
}

func rowValue(alias string, fields []string) string {
	if len(fields) == 1 {
		return qualified(alias, fields[0])
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = qualified(alias, f)
	}
	return "(" + strings.Join(cols, ", ") + ")"
}

func qualified(alias, field string) string {
	return quoteIdent(alias) + "." + quoteIdent(field)
}

// quoteIdent quotes an SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
