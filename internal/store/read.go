package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/resultset"
)

// Stream runs a query and returns its rows as a lazily read result set.
// The rows are closed once the set is drained or closed.
func (s *Store) Stream(ctx context.Context, query string, args ...any) (*resultset.ResultSet, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	slog.Debug("query", "sql", query, "params", len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}

	next := func() (ir.Record, bool, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, false, fmt.Errorf("iterate rows: %w", err)
			}
			return nil, false, nil
		}
		rec, err := scanRecord(rows, cols)
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}
	return resultset.FromIterator(next, rows.Close), nil
}

// QueryRecords runs a query and reads every row.
//
// Returns an empty slice (not nil) if the query matches nothing.
func (s *Store) QueryRecords(ctx context.Context, query string, args ...any) ([]ir.Record, error) {
	rs, err := s.Stream(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	return rs.Records()
}

// scanRecord reads the current row into a record keyed by column name.
func scanRecord(rows *sql.Rows, cols []string) (ir.Record, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	rec := make(ir.Record, len(cols))
	for i, col := range cols {
		rec[col] = normalizeValue(values[i])
	}
	return rec, nil
}

// normalizeValue converts driver values to the types records carry.
// SQLite returns TEXT as []byte through some drivers and INTEGER as int64.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}
