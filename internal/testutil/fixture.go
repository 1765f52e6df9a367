// Package testutil provides shared fixtures for tests: a small blog
// catalog, a seeded SQLite database and deterministic query ids.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/compiler"
	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/store"
)

// BlogCatalogCUE is the blog catalog used across tests.
//
//	Articles -> Authors      belongsTo
//	Articles -> Editors      belongsTo (Authors table)
//	Articles -> Comments     hasMany
//	Articles -> Tags         belongsToMany through articles_tags
//	Articles -> Summary      hasOne
//	Authors  -> Publishers   belongsTo
//	Authors  -> Books        hasMany
//	Comments -> Authors      belongsTo
const BlogCatalogCUE = `
resource: Articles: {
	columns: ["id", "author_id", "editor_id", "title", "published"]
	relations: {
		Authors: {kind: "belongsTo", foreignKey: "author_id"}
		Editors: {kind: "belongsTo", target: "Authors", foreignKey: "editor_id"}
		Comments: {kind: "hasMany", foreignKey: "article_id", sort: "id"}
		Tags: {
			kind:             "belongsToMany"
			through:          "articles_tags"
			foreignKey:       "article_id"
			targetForeignKey: "tag_id"
			sort:             "id"
		}
		Summary: {kind: "hasOne", target: "Summaries", foreignKey: "article_id"}
	}
	finders: published: {
		conditions: {published: true}
		sort: ["id"]
	}
}
resource: Authors: {
	columns: ["id", "name", "publisher_id"]
	relations: {
		Publishers: {kind: "belongsTo", foreignKey: "publisher_id"}
		Books: {kind: "hasMany", foreignKey: "author_id", sort: "id"}
	}
}
resource: Publishers: {
	columns: ["id", "name"]
}
resource: Books: {
	columns: ["id", "author_id", "title"]
}
resource: Comments: {
	columns: ["id", "article_id", "author_id", "body", "approved"]
	relations: Authors: {kind: "belongsTo", foreignKey: "author_id"}
	finders: approved: conditions: approved: true
}
resource: Tags: {
	columns: ["id", "label"]
}
resource: Summaries: {
	columns: ["id", "article_id", "body"]
}
`

// BlogSeedSQL creates and fills the blog tables.
//
// Article 1 (published) is by author 1 (publisher 1) with two comments and
// tags 1, 2. Article 2 (published) is by author 2 (no publisher), edited
// by author 1, with tag 2 and no comments. Article 3 (draft) has no author.
const BlogSeedSQL = `
CREATE TABLE publishers (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT NOT NULL, publisher_id INTEGER);
CREATE TABLE books (id INTEGER PRIMARY KEY, author_id INTEGER NOT NULL, title TEXT NOT NULL);
CREATE TABLE articles (
	id INTEGER PRIMARY KEY,
	author_id INTEGER,
	editor_id INTEGER,
	title TEXT NOT NULL,
	published INTEGER NOT NULL
);
CREATE TABLE comments (
	id INTEGER PRIMARY KEY,
	article_id INTEGER NOT NULL,
	author_id INTEGER,
	body TEXT NOT NULL,
	approved INTEGER NOT NULL
);
CREATE TABLE tags (id INTEGER PRIMARY KEY, label TEXT NOT NULL);
CREATE TABLE articles_tags (article_id INTEGER NOT NULL, tag_id INTEGER NOT NULL);
CREATE TABLE summaries (id INTEGER PRIMARY KEY, article_id INTEGER NOT NULL, body TEXT NOT NULL);

INSERT INTO publishers (id, name) VALUES (1, 'Acme');
INSERT INTO authors (id, name, publisher_id) VALUES (1, 'ann', 1), (2, 'bob', NULL);
INSERT INTO books (id, author_id, title) VALUES (1, 1, 'Go'), (2, 1, 'SQL'), (3, 2, 'CUE');
INSERT INTO articles (id, author_id, editor_id, title, published) VALUES
	(1, 1, NULL, 'First', 1),
	(2, 2, 1, 'Second', 1),
	(3, NULL, NULL, 'Draft', 0);
INSERT INTO comments (id, article_id, author_id, body, approved) VALUES
	(1, 1, 2, 'nice', 1),
	(2, 1, 1, 'thanks', 0);
INSERT INTO tags (id, label) VALUES (1, 'go'), (2, 'db');
INSERT INTO articles_tags (article_id, tag_id) VALUES (1, 1), (1, 2), (2, 2);
INSERT INTO summaries (id, article_id, body) VALUES (1, 2, 'short');
`

// BlogCatalog compiles BlogCatalogCUE.
func BlogCatalog(t *testing.T) []ir.ResourceSpec {
	t.Helper()
	return CompileCatalog(t, BlogCatalogCUE)
}

// CompileCatalog compiles a CUE catalog source and fails the test on error.
func CompileCatalog(t *testing.T, src string) []ir.ResourceSpec {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	specs, err := compiler.CompileCatalog(v)
	require.NoError(t, err)
	return specs
}

// OpenStore opens a SQLite store in a temp dir, runs seed and closes the
// store when the test ends.
func OpenStore(t *testing.T, seed string) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "fetchplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	if seed != "" {
		require.NoError(t, st.Exec(context.Background(), seed))
	}
	return st
}

// BlogStore opens a store seeded with BlogSeedSQL.
func BlogStore(t *testing.T) *store.Store {
	t.Helper()
	return OpenStore(t, BlogSeedSQL)
}
