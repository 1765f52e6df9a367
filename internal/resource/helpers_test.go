package resource

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/store"
	"github.com/roach88/fetchplan/internal/testutil"
)

func newBlogCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog(testutil.BlogCatalog(t), WithIDGenerator(testutil.NewSequenceIDs("q").Next))
	require.NoError(t, err)
	return cat
}

func newBlog(t *testing.T) (*Catalog, *store.Store) {
	t.Helper()
	return newBlogCatalog(t), testutil.BlogStore(t)
}

func articles(t *testing.T, cat *Catalog, exec Executor) *Query {
	t.Helper()
	q, err := cat.Query("Articles", exec)
	require.NoError(t, err)
	return q
}

func idsOf(rows []ir.Record) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r["id"]
	}
	return out
}

func recordAt(t *testing.T, v any) ir.Record {
	t.Helper()
	rec, ok := v.(ir.Record)
	require.Truef(t, ok, "expected a record, got %T", v)
	return rec
}

func listAt(t *testing.T, v any) []any {
	t.Helper()
	list, ok := v.([]any)
	require.Truef(t, ok, "expected a list, got %T", v)
	return list
}
