package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/ir"
)

func TestParseSpec_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  map[string]any
	}{
		{
			name:  "single name",
			input: "Authors",
			want:  map[string]any{"Authors": map[string]any{}},
		},
		{
			name:  "dotted path",
			input: "Authors.Books",
			want:  map[string]any{"Authors": map[string]any{"Books": map[string]any{}}},
		},
		{
			name:  "list",
			input: []any{"Tags", []string{"Authors"}},
			want:  map[string]any{"Tags": map[string]any{}, "Authors": map[string]any{}},
		},
		{
			name:  "nested list value",
			input: map[string]any{"Authors": []string{"Books", "Publishers"}},
			want: map[string]any{"Authors": map[string]any{
				"Books":      map[string]any{},
				"Publishers": map[string]any{},
			}},
		},
		{
			name: "options and relations",
			input: map[string]any{"Comments": map[string]any{
				"sort":    "id",
				"Authors": nil,
			}},
			want: map[string]any{"Comments": map[string]any{
				"sort":    []string{"id"},
				"Authors": map[string]any{},
			}},
		},
		{
			name: "associations key",
			input: map[string]any{"Comments": map[string]any{
				"associations": []any{"Authors"},
			}},
			want: map[string]any{"Comments": map[string]any{"Authors": map[string]any{}}},
		},
		{
			name:  "nil",
			input: nil,
			want:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseSpec(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Describe())
		})
	}
}

func TestParseSpec_Order(t *testing.T) {
	spec, err := ParseSpec(map[string]any{"Tags": nil, "Authors": nil, "Comments": nil})
	require.NoError(t, err)
	assert.Equal(t, []string{"Authors", "Comments", "Tags"}, spec.Names())

	spec, err = ParseSpec(Ordered{{Key: "Tags"}, {Key: "Authors"}, {Key: "Comments"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tags", "Authors", "Comments"}, spec.Names())
}

func TestParseSpec_Options(t *testing.T) {
	spec, err := ParseSpec(map[string]any{"Comments": map[string]any{
		"foreignKey":  []any{"article_id"},
		"conditions":  map[string]any{"published": true},
		"fields":      false,
		"matching":    true,
		"finder":      "recent",
		"joinType":    "inner",
		"strategy":    "subquery",
		"negateMatch": true,
	}})
	require.NoError(t, err)

	e, ok := spec.Get("Comments")
	require.True(t, ok)
	opts := e.Options
	assert.Equal(t, []string{"article_id"}, opts.ForeignKey)
	assert.Equal(t, map[string]any{"published": true}, opts.Conditions)
	assert.True(t, opts.NoFields)
	assert.Nil(t, opts.Fields)
	assert.True(t, opts.IsMatching())
	assert.Equal(t, "recent", opts.Finder)
	assert.Equal(t, ir.JoinInner, opts.JoinType)
	assert.Equal(t, ir.StrategySubquery, opts.Strategy)
	assert.True(t, opts.NegateMatch)
}

func TestParseSpec_QueryBuilderValues(t *testing.T) {
	fn := func(f Fetch) Fetch { return f }

	spec, err := ParseSpec(map[string]any{
		"Authors":  fn,
		"Comments": map[string]any{"queryBuilder": QueryTransform(fn)},
	})
	require.NoError(t, err)

	authors, _ := spec.Get("Authors")
	assert.NotNil(t, authors.Options.QueryBuilder)
	comments, _ := spec.Get("Comments")
	assert.NotNil(t, comments.Options.QueryBuilder)
	assert.Equal(t, true, spec.Describe()["Comments"].(map[string]any)["queryBuilder"])
}

func TestParseSpec_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input any
		path  string
		key   string
	}{
		{"bad top level", 42, "", ""},
		{"empty segment", "Authors..Books", "Authors..Books", ""},
		{"bad entry", map[string]any{"Authors": 3}, "Authors", ""},
		{"bad strategy", map[string]any{"Authors": map[string]any{"strategy": "eager"}}, "Authors", "strategy"},
		{"bad strategy type", map[string]any{"Authors": map[string]any{"strategy": 5}}, "Authors", "strategy"},
		{"bad join type", map[string]any{"Authors": map[string]any{"joinType": "OUTER"}}, "Authors", "joinType"},
		{"bad fields", map[string]any{"Authors": map[string]any{"fields": 1}}, "Authors", "fields"},
		{"bad matching", map[string]any{"Authors": map[string]any{"matching": "yes"}}, "Authors", "matching"},
		{"bad sort", map[string]any{"Authors": map[string]any{"sort": []any{1}}}, "Authors", "sort"},
		{"bad conditions", map[string]any{"Authors": map[string]any{"conditions": "x"}}, "Authors", "conditions"},
		{"nested", map[string]any{"Authors": map[string]any{"Books": map[string]any{"finder": 1}}}, "Authors.Books", "finder"},
		{"bad query builder", map[string]any{"Authors": map[string]any{"queryBuilder": "fn"}}, "Authors", "queryBuilder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(tt.input)
			require.Error(t, err)

			var se *ShapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
			assert.Equal(t, tt.key, se.Key)
		})
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(Ordered{{Key: "sort", Value: "name"}, {Key: "joinType", Value: "left"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, opts.Sort)
	assert.Equal(t, ir.JoinLeft, opts.JoinType)

	_, err = ParseOptions(map[string]any{"bogus": 1})
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bogus", se.Key)
	assert.Equal(t, "invalid bogus option: not a recognized option", se.Error())

	_, err = ParseOptions("sort")
	assert.True(t, IsShapeError(err))
}

func TestParseSpecYAML(t *testing.T) {
	doc := []byte(`
Tags:
Authors:
  sort: [name]
  Books:
    strategy: subquery
    conditions:
      published: true
Comments: {}
`)
	spec, err := ParseSpecYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tags", "Authors", "Comments"}, spec.Names())

	authors, _ := spec.Get("Authors")
	assert.Equal(t, []string{"name"}, authors.Options.Sort)
	books, ok := authors.Children.Get("Books")
	require.True(t, ok)
	assert.Equal(t, ir.StrategySubquery, books.Options.Strategy)
	assert.Equal(t, map[string]any{"published": true}, books.Options.Conditions)
}

func TestParseSpecYAML_Errors(t *testing.T) {
	_, err := ParseSpecYAML([]byte("Authors: [unclosed"))
	assert.Error(t, err)

	_, err = ParseSpecYAML([]byte("Authors:\n  strategy: bogus\n"))
	assert.True(t, IsShapeError(err))
}

func TestOptionsMerge(t *testing.T) {
	t.Run("later values win", func(t *testing.T) {
		base := Options{Sort: []string{"a"}, Finder: "all", Strategy: ir.StrategySelect}
		got := base.Merge(Options{Sort: []string{"b"}, JoinType: ir.JoinInner})
		assert.Equal(t, []string{"b"}, got.Sort)
		assert.Equal(t, "all", got.Finder)
		assert.Equal(t, ir.StrategySelect, got.Strategy)
		assert.Equal(t, ir.JoinInner, got.JoinType)
	})

	t.Run("fields and no fields exclude each other", func(t *testing.T) {
		got := Options{Fields: []string{"id"}}.Merge(Options{NoFields: true})
		assert.True(t, got.NoFields)
		assert.Nil(t, got.Fields)

		got = got.Merge(Options{Fields: []string{"name"}})
		assert.False(t, got.NoFields)
		assert.Equal(t, []string{"name"}, got.Fields)
	})

	t.Run("negate match is sticky", func(t *testing.T) {
		got := Options{NegateMatch: true}.Merge(Options{})
		assert.True(t, got.NegateMatch)
	})

	t.Run("matching can be switched off", func(t *testing.T) {
		got := Options{Matching: boolPtr(true)}.Merge(Options{Matching: boolPtr(false)})
		assert.False(t, got.IsMatching())
	})

	t.Run("query builders compose in order", func(t *testing.T) {
		var calls []string
		step := func(name string) QueryTransform {
			return func(f Fetch) Fetch {
				calls = append(calls, name)
				return f
			}
		}
		got := Options{QueryBuilder: step("first")}.Merge(Options{QueryBuilder: step("second")})
		got.QueryBuilder(newFakeFetch())
		assert.Equal(t, []string{"first", "second"}, calls)
	})
}

func TestCompose_NilSides(t *testing.T) {
	assert.Nil(t, Compose(nil, nil))

	fn := QueryTransform(func(f Fetch) Fetch { return f })
	assert.NotNil(t, Compose(fn, nil))
	assert.NotNil(t, Compose(nil, fn))
}

func TestKeySet(t *testing.T) {
	ks := NewKeySet(1)
	ks.Add(int64(1))
	ks.Add("2")
	ks.Add(int64(1))
	ks.Add([]byte("2"))

	assert.Equal(t, 2, ks.Len())
	assert.Equal(t, 1, ks.Width())
	assert.Equal(t, []string{"1", `"2"`}, ks.Keys())
	assert.Equal(t, []any{int64(1), "2"}, ks.Values())

	tuple, ok := ks.Tuple(`"2"`)
	require.True(t, ok)
	assert.Equal(t, []any{"2"}, tuple)

	assert.Panics(t, func() { ks.Add(1, 2) })

	var empty *KeySet
	assert.Equal(t, 0, empty.Len())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "7", KeyString([]any{int64(7)}))
	assert.Equal(t, "7", KeyString([]any{7}))
	assert.Equal(t, `7;"en"`, KeyString([]any{int64(7), "en"}))
	assert.Equal(t, `"abc"`, KeyString([]any{[]byte("abc")}))
}

func TestKeyString_DistinctTuplesStayDistinct(t *testing.T) {
	tests := []struct {
		name string
		a, b []any
	}{
		{"number and numeric string", []any{int64(1)}, []any{"1"}},
		{"separator inside a value", []any{"a;b", "c"}, []any{"a", "b;c"}},
		{"quote inside a value", []any{`a";"b`}, []any{"a", "b"}},
		{"bool and string", []any{true}, []any{"true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, KeyString(tt.a), KeyString(tt.b))
		})
	}
}

func TestKeySet_KeepsTuplesThatRenderAlike(t *testing.T) {
	ks := NewKeySet(2)
	ks.Add("a;b", "c")
	ks.Add("a", "b;c")
	ks.Add("a;b", "c")

	assert.Equal(t, 2, ks.Len())
	assert.Equal(t, [][]any{{"a;b", "c"}, {"a", "b;c"}}, ks.Tuples())

	ids := NewKeySet(1)
	ids.Add(int64(1))
	ids.Add("1")
	assert.Equal(t, []any{int64(1), "1"}, ids.Values())
}

func TestConfigurationError_Format(t *testing.T) {
	err := &ConfigurationError{Code: ErrCodeUnknownRelation, Message: "Nope is not associated with Articles", Path: "Nope"}
	assert.Equal(t, "UNKNOWN_RELATION: Nope is not associated with Articles (path=Nope)", err.Error())

	err.Path = ""
	assert.Equal(t, "UNKNOWN_RELATION: Nope is not associated with Articles", err.Error())
	assert.Equal(t, ErrorCode(""), ErrorCodeOf(assert.AnError))
}
