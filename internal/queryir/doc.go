// Package queryir is the relational intermediate representation a fetch is
// built into before it reaches a SQL backend.
//
// A fetch starts as a Select over the base table. Attaching a relation adds
// a Join; loading one separately builds a new Select filtered by an In or
// SubqueryIn predicate over the correlation keys. Every projected column is
// qualified by its source alias so rows can be split back into relations
// after the query runs.
//
// # Sealed Interfaces
//
// Query and Predicate are sealed with marker methods. Backends can switch
// over them exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case ColumnEquals:
//	case In:
//	...
//	}
//
// Both value and pointer forms are accepted everywhere.
//
// # Ordering
//
// Every Select carries the primary key of its base table. Backends append
// it to the ORDER BY clause so results are deterministic even when the
// caller asked for no order at all.
package queryir
