package queryir

import "github.com/roach88/fetchplan/internal/ir"

// Query is a sealed query node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Select reads rows from one base table plus any number of joined tables.
//
//	SELECT <columns> FROM <from> AS <alias> <joins> WHERE <filter>
//	ORDER BY <order>, <key> LIMIT <limit>
type Select struct {
	From    string
	Alias   string
	Columns []Column
	Joins   []Join
	Filter  Predicate // nil = no filter
	OrderBy []OrderTerm

	// Key is the primary key of From, used as the ordering tiebreaker.
	Key []string

	// Distinct is honored only when the select is used as a subquery.
	Distinct bool

	Limit int // 0 = no limit
}

func (Select) queryNode() {}

// Column is one projected column. It is returned as AliasField(Alias, Field).
type Column struct {
	Alias string
	Field string
}

// Name returns the projected column name.
func (c Column) Name() string {
	return ir.AliasField(c.Alias, c.Field)
}

// Join adds a table to a Select.
type Join struct {
	Kind  ir.JoinKind
	Table string
	Alias string
	On    Predicate
}

// OrderTerm is one ORDER BY term.
type OrderTerm struct {
	Alias string
	Field string
	Desc  bool
}

// Equals compares a column with a literal. A nil Value matches NULL.
type Equals struct {
	Alias string
	Field string
	Value any
}

func (Equals) predicateNode() {}

// ColumnEquals compares two columns, the usual join condition.
type ColumnEquals struct {
	LeftAlias  string
	LeftField  string
	RightAlias string
	RightField string
}

func (ColumnEquals) predicateNode() {}

// In matches rows whose Fields tuple is one of Values. Each tuple must have
// len(Fields) values. An empty Values list matches nothing.
type In struct {
	Alias  string
	Fields []string
	Values [][]any
}

func (In) predicateNode() {}

// IsNull matches rows where the column is NULL, or not NULL when Negate is set.
type IsNull struct {
	Alias  string
	Field  string
	Negate bool
}

func (IsNull) predicateNode() {}

// And is a conjunction. An empty And is true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// SubqueryIn matches rows whose Fields tuple is produced by Query, or is
// not when Negate is set. The subquery must project exactly len(Fields)
// columns.
type SubqueryIn struct {
	Alias  string
	Fields []string
	Query  Select
	Negate bool
}

func (SubqueryIn) predicateNode() {}

// Conjoin returns p and q joined by And, flattening nested conjunctions and
// dropping nil operands.
func Conjoin(p, q Predicate) Predicate {
	var preds []Predicate
	for _, x := range []Predicate{p, q} {
		switch v := x.(type) {
		case nil:
		case And:
			preds = append(preds, v.Predicates...)
		case *And:
			preds = append(preds, v.Predicates...)
		default:
			preds = append(preds, x)
		}
	}
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	return And{Predicates: preds}
}

// HasJoin reports whether alias is already joined into s.
func (s *Select) HasJoin(alias string) bool {
	for _, j := range s.Joins {
		if j.Alias == alias {
			return true
		}
	}
	return false
}

// HasColumn reports whether the column is already projected.
func (s *Select) HasColumn(alias, field string) bool {
	for _, c := range s.Columns {
		if c.Alias == alias && c.Field == field {
			return true
		}
	}
	return false
}

// AddColumns appends the columns not yet projected.
func (s *Select) AddColumns(alias string, fields ...string) {
	for _, f := range fields {
		if !s.HasColumn(alias, f) {
			s.Columns = append(s.Columns, Column{Alias: alias, Field: f})
		}
	}
}

// Where adds p to the filter with AND.
func (s *Select) Where(p Predicate) {
	s.Filter = Conjoin(s.Filter, p)
}
