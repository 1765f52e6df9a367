package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchNestedJSON(t *testing.T) {
	out, _, err := execute(NewFetchCommand(blogOptions(t, "json")),
		"Articles", "--finder", "published", "--select", "id,title", "--contain", "Authors,Comments")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Resource string           `json:"resource"`
			Count    int              `json:"count"`
			Records  []map[string]any `json:"records"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Articles", resp.Data.Resource)
	require.Equal(t, 2, resp.Data.Count)

	first := resp.Data.Records[0]
	assert.Equal(t, "First", first["title"])
	assert.Equal(t, "ann", first["Authors"].(map[string]any)["name"])
	assert.Len(t, first["Comments"], 2)

	second := resp.Data.Records[1]
	assert.Equal(t, "bob", second["Authors"].(map[string]any)["name"])
	assert.Empty(t, second["Comments"])
}

func TestFetchTextPrintsRecords(t *testing.T) {
	out, _, err := execute(NewFetchCommand(blogOptions(t, "text")),
		"Articles", "--where", "published=false", "--contain", "Authors")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Draft", records[0]["title"])
	assert.Nil(t, records[0]["Authors"])
}

func TestFetchNotMatching(t *testing.T) {
	out, _, err := execute(NewFetchCommand(blogOptions(t, "text")),
		"Articles", "--select", "id", "--not-matching", "Comments")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.EqualValues(t, 2, records[0]["id"])
	assert.EqualValues(t, 3, records[1]["id"])
}

func TestFetchFileDatabase(t *testing.T) {
	opts := blogOptions(t, "json")
	opts.Database = filepath.Join(t.TempDir(), "blog.db")

	_, _, err := execute(NewFetchCommand(opts), "Tags")
	require.NoError(t, err)

	// The seed already ran; the tables exist without it.
	opts.Seed = ""
	out, _, err := execute(NewFetchCommand(opts), "Tags", "--order", "label")
	require.NoError(t, err)
	assert.Contains(t, out, `"count": 2`)
}

func TestFetchErrors(t *testing.T) {
	t.Run("no tables", func(t *testing.T) {
		opts := blogOptions(t, "text")
		opts.Seed = ""
		out, _, err := execute(NewFetchCommand(opts), "Articles")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), ErrCodeDatabase)
		assert.Contains(t, out, "no such table")
	})

	t.Run("missing seed", func(t *testing.T) {
		opts := blogOptions(t, "text")
		opts.Seed = "/nonexistent/seed.sql"
		_, _, err := execute(NewFetchCommand(opts), "Articles")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading seed")
	})

	t.Run("bad database path", func(t *testing.T) {
		opts := blogOptions(t, "text")
		opts.Database = "/nonexistent/dir/blog.db"
		_, _, err := execute(NewFetchCommand(opts), "Articles")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrCodeDatabase)
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, _, err := execute(NewFetchCommand(blogOptions(t, "json")), "Nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrCodeNotFound)
	})
}
