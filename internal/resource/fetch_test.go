package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
)

func TestFetch_Plain(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, ir.Record{
		"id":        int64(1),
		"author_id": int64(1),
		"editor_id": nil,
		"title":     "First",
		"published": int64(1),
	}, rows[0])
}

func TestFetch_EmptyResultNotNil(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).Where(map[string]any{"title": "missing"}).Contain("Comments").All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFetch_ContainMixedStrategies(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Contain([]string{"Authors.Publishers", "Comments", "Tags"}).
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, ir.Record{
		"id":           int64(1),
		"name":         "ann",
		"publisher_id": int64(1),
		"Publishers":   ir.Record{"id": int64(1), "name": "Acme"},
	}, first["Authors"])
	assert.Equal(t, []any{
		ir.Record{"id": int64(1), "article_id": int64(1), "author_id": int64(2), "body": "nice", "approved": int64(1)},
		ir.Record{"id": int64(2), "article_id": int64(1), "author_id": int64(1), "body": "thanks", "approved": int64(0)},
	}, first["Comments"])
	assert.Equal(t, []any{
		ir.Record{"id": int64(1), "label": "go", ir.JoinDataKey: ir.Record{"article_id": int64(1), "tag_id": int64(1)}},
		ir.Record{"id": int64(2), "label": "db", ir.JoinDataKey: ir.Record{"article_id": int64(1), "tag_id": int64(2)}},
	}, first["Tags"])

	second := rows[1]
	author := recordAt(t, second["Authors"])
	assert.Equal(t, "bob", author["name"])
	assert.Nil(t, author["Publishers"])
	assert.Equal(t, []any{}, second["Comments"])
	tags := listAt(t, second["Tags"])
	require.Len(t, tags, 1)
	assert.Equal(t, "db", recordAt(t, tags[0])["label"])

	third := rows[2]
	assert.Nil(t, third["Authors"])
	assert.Equal(t, []any{}, third["Comments"])
	assert.Equal(t, []any{}, third["Tags"])
}

func TestFetch_SameTableUnderTwoAliases(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).Contain([]string{"Authors", "Editors"}).All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "bob", recordAt(t, rows[1]["Authors"])["name"])
	assert.Equal(t, "ann", recordAt(t, rows[1]["Editors"])["name"])
	assert.Nil(t, rows[0]["Editors"])
}

func TestFetch_CollidingAliasIsLoadedSeparately(t *testing.T) {
	cat, st := newBlog(t)
	q := articles(t, cat, st).Contain([]string{"Authors.Publishers", "Editors.Publishers"})

	desc, err := q.Describe()
	require.NoError(t, err)
	assert.Equal(t, []any{"Authors", "Editors", "Editors.Publishers"}, desc["joinable"])

	rows, err := q.All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := recordAt(t, rows[0]["Authors"])
	assert.Equal(t, ir.Record{"id": int64(1), "name": "Acme"}, first["Publishers"])

	second := rows[1]
	assert.Nil(t, recordAt(t, second["Authors"])["Publishers"])
	editor := recordAt(t, second["Editors"])
	assert.Equal(t, ir.Record{"id": int64(1), "name": "Acme"}, editor["Publishers"])
}

func TestFetch_NestedExternal(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Contain([]string{"Authors.Books", "Comments.Authors"}).
		All(context.Background())
	require.NoError(t, err)

	books := listAt(t, recordAt(t, rows[0]["Authors"])["Books"])
	require.Len(t, books, 2)
	assert.Equal(t, "Go", recordAt(t, books[0])["title"])
	assert.Equal(t, "SQL", recordAt(t, books[1])["title"])

	books = listAt(t, recordAt(t, rows[1]["Authors"])["Books"])
	require.Len(t, books, 1)
	assert.Equal(t, "CUE", recordAt(t, books[0])["title"])

	comments := listAt(t, rows[0]["Comments"])
	require.Len(t, comments, 2)
	assert.Equal(t, "bob", recordAt(t, recordAt(t, comments[0])["Authors"])["name"])
	assert.Equal(t, "ann", recordAt(t, recordAt(t, comments[1])["Authors"])["name"])
}

func TestFetch_HasOneJoined(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).Contain("Summary").All(context.Background())
	require.NoError(t, err)

	assert.Nil(t, rows[0]["Summary"])
	assert.Equal(t, ir.Record{"id": int64(1), "article_id": int64(2), "body": "short"}, rows[1]["Summary"])
}

func TestFetch_HasOneSelectStrategy(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Contain(map[string]any{"Summary": map[string]any{"strategy": "select"}}).
		All(context.Background())
	require.NoError(t, err)

	assert.Nil(t, rows[0]["Summary"])
	assert.Equal(t, "short", recordAt(t, rows[1]["Summary"])["body"])
}

func TestFetch_SubqueryStrategy(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Find("published").
		Contain(map[string]any{
			"Comments": map[string]any{"strategy": "subquery"},
			"Tags":     map[string]any{"strategy": "subquery"},
		}).
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Len(t, listAt(t, rows[0]["Comments"]), 2)
	assert.Equal(t, []any{}, rows[1]["Comments"])
	assert.Len(t, listAt(t, rows[0]["Tags"]), 2)
	assert.Len(t, listAt(t, rows[1]["Tags"]), 1)
}

func TestFetch_ExternalOptions(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Contain(map[string]any{"Comments": map[string]any{
			"fields":     []any{"body"},
			"conditions": map[string]any{"approved": true},
		}}).
		All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{
		ir.Record{"body": "nice", "article_id": int64(1)},
	}, rows[0]["Comments"])
}

func TestFetch_ContainWith(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		ContainWith("Comments", func(q *Query) *Query {
			return q.Where(map[string]any{"approved": false})
		}).
		All(context.Background())
	require.NoError(t, err)

	comments := listAt(t, rows[0]["Comments"])
	require.Len(t, comments, 1)
	assert.Equal(t, "thanks", recordAt(t, comments[0])["body"])
}

func TestFetch_MissingKeyColumn(t *testing.T) {
	cat, st := newBlog(t)
	_, err := articles(t, cat, st).Select("title").Contain("Comments").All(context.Background())
	require.Error(t, err)
	assert.Equal(t, plan.ErrCodeMissingKey, plan.ErrorCodeOf(err))
	assert.Contains(t, err.Error(), "unable to load Comments: ensure Articles__id is selected")
}

func TestFetch_Matching(t *testing.T) {
	cat, st := newBlog(t)
	approved := func(q *Query) *Query {
		return q.Where(map[string]any{"approved": true})
	}

	rows, err := articles(t, cat, st).Matching("Comments", approved).All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.NotContains(t, rows[0], ir.MatchingDataKey)
	assert.NotContains(t, rows[0], "Comments")

	rows, err = articles(t, cat, st).
		Matching("Comments", func(q *Query) *Query {
			return approved(q).Select("body")
		}).
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	matching := recordAt(t, rows[0][ir.MatchingDataKey])
	assert.Equal(t, ir.Record{"body": "nice"}, matching["Comments"])
}

func TestFetch_MatchingThroughPivot(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Matching("Tags", func(q *Query) *Query {
			return q.Where(map[string]any{"label": "db"}).Select("id", "label")
		}).
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, idsOf(rows))

	matching := recordAt(t, rows[1][ir.MatchingDataKey])
	assert.Equal(t, ir.Record{"id": int64(2), "label": "db"}, matching["Tags"])
	assert.Equal(t, ir.Record{"article_id": int64(2), "tag_id": int64(2)}, matching["ArticlesTags"])
}

func TestFetch_ContainSharingMatchingAliasLoadsOwnRows(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Matching("Comments.Authors", func(q *Query) *Query {
			return q.Where(map[string]any{"name": "bob"}).Select("name")
		}).
		Contain("Authors").
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Article 1 is written by ann; bob only wrote the matched comment.
	assert.Equal(t, "ann", recordAt(t, rows[0]["Authors"])["name"])
	matching := recordAt(t, rows[0][ir.MatchingDataKey])
	assert.Equal(t, ir.Record{"name": "bob"}, matching["Authors"])
}

func TestFetch_MatchedContainLoadsChildren(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Matching("Authors", nil).
		Contain("Authors.Publishers").
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, idsOf(rows))

	first := recordAt(t, rows[0]["Authors"])
	assert.Equal(t, "ann", first["name"])
	assert.Equal(t, ir.Record{"id": int64(1), "name": "Acme"}, first["Publishers"])
	assert.Nil(t, recordAt(t, rows[1]["Authors"])["Publishers"])
	assert.NotContains(t, rows[0], ir.MatchingDataKey)
}

func TestFetch_ProjectedJoinKeepsNestedKeys(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).
		Contain(map[string]any{
			"Authors":       map[string]any{"fields": []string{"name"}},
			"Authors.Books": map[string]any{"strategy": "select"},
		}).
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := recordAt(t, rows[0]["Authors"])
	assert.Equal(t, "ann", first["name"])
	assert.Len(t, listAt(t, first["Books"]), 2)
	second := recordAt(t, rows[1]["Authors"])
	assert.Len(t, listAt(t, second["Books"]), 1)
}

func TestFetch_NotMatching(t *testing.T) {
	cat, st := newBlog(t)

	rows, err := articles(t, cat, st).NotMatching("Comments", nil).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, idsOf(rows))
	assert.NotContains(t, rows[0], ir.MatchingDataKey)

	rows, err = articles(t, cat, st).
		NotMatching("Tags", func(q *Query) *Query {
			return q.Where(map[string]any{"label": "go"})
		}).
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, idsOf(rows))
}

func TestFetch_InnerJoinWith(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).InnerJoinWith("Authors.Publishers", nil).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, idsOf(rows))
	assert.NotContains(t, rows[0], ir.MatchingDataKey)
}

func TestFetch_LeftJoinWithKeepsRows(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).LeftJoinWith("Summary", nil).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, idsOf(rows))
}

func TestFetch_LimitAndFinder(t *testing.T) {
	cat, st := newBlog(t)
	rows, err := articles(t, cat, st).Find("published").Limit(1).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, idsOf(rows))
}

func TestFetch_NoExecutor(t *testing.T) {
	cat := newBlogCatalog(t)
	_, err := articles(t, cat, nil).All(context.Background())
	assert.EqualError(t, err, "fetch Articles: no executor")
}
