package plan

import (
	"context"

	"github.com/roach88/fetchplan/internal/ir"
)

// fakeSource is an in-memory Source. aliases maps a requested name to a
// relation registered under another name.
type fakeSource struct {
	alias   string
	rels    map[string]*fakeRelation
	aliases map[string]string
}

func newFakeSource(alias string) *fakeSource {
	return &fakeSource{alias: alias, rels: map[string]*fakeRelation{}, aliases: map[string]string{}}
}

func (s *fakeSource) Alias() string { return s.alias }

func (s *fakeSource) Relation(name string) (Relation, bool) {
	if r, ok := s.rels[name]; ok {
		return r, true
	}
	if real, ok := s.aliases[name]; ok {
		return s.rels[real], true
	}
	return nil, false
}

type fakeRelation struct {
	name     string
	source   *fakeSource
	target   *fakeSource
	card     ir.Cardinality
	joinable bool
	fk       []string
	bk       []string

	onAttach     func(f Fetch, cfg JoinConfig) error
	loadErr      error
	transformErr error
	loaded       []LoaderConfig
}

func (r *fakeRelation) Name() string                { return r.name }
func (r *fakeRelation) Source() Source              { return r.source }
func (r *fakeRelation) Target() Source              { return r.target }
func (r *fakeRelation) Cardinality() ir.Cardinality { return r.card }
func (r *fakeRelation) Property() string            { return r.name }
func (r *fakeRelation) ForeignKey() []string        { return r.fk }
func (r *fakeRelation) BindingKey() []string        { return r.bk }

func (r *fakeRelation) CanBeJoined(opts Options) bool {
	return r.joinable && opts.StrategyOr(ir.StrategyJoin) == ir.StrategyJoin
}

func (r *fakeRelation) RequiresKeys(opts Options) bool {
	return !r.CanBeJoined(opts) && opts.Strategy != ir.StrategySubquery
}

func (r *fakeRelation) AttachTo(f Fetch, cfg JoinConfig) error {
	ff := f.(*fakeFetch)
	ff.attached = append(ff.attached, cfg.AliasPath)
	if r.onAttach != nil {
		return r.onAttach(f, cfg)
	}
	return nil
}

// EagerLoader nests the correlation key string of each record under the
// nest key, so tests can see which records were enriched.
func (r *fakeRelation) EagerLoader(_ context.Context, cfg LoaderConfig) (Transform, error) {
	r.loaded = append(r.loaded, cfg)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	cols := CorrelationColumns(r, cfg.Options)
	alias := r.source.Alias()
	return func(rec ir.Record) (ir.Record, error) {
		if r.transformErr != nil {
			return nil, r.transformErr
		}
		tuple := make([]any, len(cols))
		for i, c := range cols {
			v, ok := rec[ir.AliasField(alias, c)]
			if !ok || v == nil {
				return rec, nil
			}
			tuple[i] = v
		}
		out := rec.Clone()
		out[cfg.NestKey] = "loaded:" + KeyString(tuple)
		return out, nil
	}, nil
}

type fakeFetch struct {
	loader   *Loader
	attached []string
}

func newFakeFetch() *fakeFetch {
	return &fakeFetch{loader: NewLoader()}
}

func (f *fakeFetch) Loader() *Loader { return f.loader }

type fakeStream struct {
	records []ir.Record
	pos     int
	err     error
}

func newFakeStream(records ...ir.Record) *fakeStream {
	return &fakeStream{records: records, pos: -1}
}

func (s *fakeStream) Next() bool {
	if s.pos+1 >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Record() ir.Record   { return s.records[s.pos] }
func (s *fakeStream) Replace(r ir.Record) { s.records[s.pos] = r }
func (s *fakeStream) Err() error          { return s.err }
func (s *fakeStream) Rewind()             { s.pos = -1 }
func (s *fakeStream) Count() int          { return len(s.records) }

// blogSchema wires a small catalog:
//
//	Articles -> Authors (belongsTo, joinable)
//	Articles -> Editors (belongsTo, joinable)
//	Articles -> Publishers (belongsTo, joinable)
//	Articles -> Comments (hasMany)
//	Articles -> Tags (belongsToMany)
//	Articles -> Translations (hasMany on a composite key)
//	Authors  -> Publishers (belongsTo, joinable)
//	Authors  -> Books (hasMany)
//	Editors  -> Publishers (belongsTo, joinable)
//	Comments -> Authors (belongsTo, joinable)
type blogSchema struct {
	articles, authors, editors, publishers *fakeSource
	comments, tags, books, translations    *fakeSource
}

func newBlogSchema() *blogSchema {
	s := &blogSchema{
		articles:     newFakeSource("Articles"),
		authors:      newFakeSource("Authors"),
		editors:      newFakeSource("Editors"),
		publishers:   newFakeSource("Publishers"),
		comments:     newFakeSource("Comments"),
		tags:         newFakeSource("Tags"),
		books:        newFakeSource("Books"),
		translations: newFakeSource("Translations"),
	}
	belongsTo := func(src, dst *fakeSource, fk string) {
		src.rels[dst.alias] = &fakeRelation{
			name: dst.alias, source: src, target: dst, card: ir.ManyToOne,
			joinable: true, fk: []string{fk}, bk: []string{"id"},
		}
	}
	hasMany := func(src, dst *fakeSource, fk string, bk ...string) {
		if len(bk) == 0 {
			bk = []string{"id"}
		}
		src.rels[dst.alias] = &fakeRelation{
			name: dst.alias, source: src, target: dst, card: ir.OneToMany,
			fk: []string{fk}, bk: bk,
		}
	}

	belongsTo(s.articles, s.authors, "author_id")
	belongsTo(s.articles, s.editors, "editor_id")
	belongsTo(s.articles, s.publishers, "publisher_id")
	hasMany(s.articles, s.comments, "article_id")
	s.articles.rels["Tags"] = &fakeRelation{
		name: "Tags", source: s.articles, target: s.tags, card: ir.ManyToMany,
		fk: []string{"article_id"}, bk: []string{"id"},
	}
	hasMany(s.articles, s.translations, "article_id", "id", "lang")
	belongsTo(s.authors, s.publishers, "publisher_id")
	hasMany(s.authors, s.books, "author_id")
	belongsTo(s.editors, s.publishers, "publisher_id")
	belongsTo(s.comments, s.authors, "author_id")
	return s
}

func (s *blogSchema) rel(src *fakeSource, name string) *fakeRelation {
	return src.rels[name]
}

func aliasPaths(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.AliasPath
	}
	return out
}
