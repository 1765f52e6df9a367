// Package hydrate turns flat fetch rows into nested records.
//
// A flat row holds every projected column under AliasField(alias, field)
// plus one raw entry per external load, keyed by the load's nest key.
// Hydration groups the columns by alias, then places each association's
// group (or loaded value) at its property path on the base record.
package hydrate

import (
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
)

// Records hydrates every row. The result is never nil.
func Records(baseAlias string, assocs []plan.Association, rows []ir.Record) []ir.Record {
	out := make([]ir.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record(baseAlias, assocs, row))
	}
	return out
}

// Record hydrates one row. Associations are placed in order, so a parent
// must come before its children; a child whose parent is empty is dropped.
func Record(baseAlias string, assocs []plan.Association, row ir.Record) ir.Record {
	groups := groupColumns(row)

	out := groups[baseAlias]
	if out == nil {
		out = ir.Record{}
	}

	for _, a := range assocs {
		value, ok := associationValue(a, row, groups)
		if !ok {
			continue
		}
		if a.Matching {
			matching, _ := out[ir.MatchingDataKey].(ir.Record)
			if matching == nil {
				matching = ir.Record{}
				out[ir.MatchingDataKey] = matching
			}
			matching[a.Alias] = value
			continue
		}
		place(out, a.PropertyPath, value)
	}
	return out
}

// associationValue picks the data for a: the column group of a joined
// relation or the value an external loader nested. An external load that
// was skipped leaves nothing, even when a join of the same alias fetched
// columns.
func associationValue(a plan.Association, row ir.Record, groups map[string]ir.Record) (any, bool) {
	if a.CanBeJoined {
		g, ok := groups[a.NestKey]
		if !ok {
			return nil, false
		}
		return nilIfEmpty(g), true
	}
	v, ok := row[a.NestKey]
	return v, ok
}

// groupColumns splits aliased columns into one record per alias. Entries
// without an alias separator are external payloads and are skipped.
func groupColumns(row ir.Record) map[string]ir.Record {
	groups := make(map[string]ir.Record)
	for col, v := range row {
		alias, field, ok := ir.SplitAliasField(col)
		if !ok {
			continue
		}
		g := groups[alias]
		if g == nil {
			g = ir.Record{}
			groups[alias] = g
		}
		g[field] = v
	}
	return groups
}

// nilIfEmpty maps a group whose columns are all NULL, the shape of an
// unmatched LEFT join, to nil.
func nilIfEmpty(g ir.Record) any {
	for _, v := range g {
		if v != nil {
			return g
		}
	}
	return nil
}

// place sets value at a dotted property path below rec. Intermediate
// values must already be records.
func place(rec ir.Record, path string, value any) {
	parts := strings.Split(path, ".")
	cur := rec
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(ir.Record)
		if !ok {
			return
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
