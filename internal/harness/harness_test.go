package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PassingAssertions(t *testing.T) {
	s := blogScenario("published_contain",
		Assertion{Type: AssertCount, Count: intPtr(2)},
		Assertion{Type: AssertPathEquals, Path: "0.Authors.name", Value: "ann"},
		Assertion{Type: AssertPathEquals, Path: "0.Comments.1.body", Value: "thanks"},
		Assertion{Type: AssertPathEquals, Path: "1.Comments", Value: []any{}},
		Assertion{Type: AssertPathEquals, Path: "1.Authors.Publishers"},
		Assertion{Type: AssertJoined, Aliases: []string{"Authors", "Authors.Publishers"}},
		Assertion{Type: AssertExternal, Aliases: []string{"Comments"}},
	)
	s.Finder = "published"
	s.Contain = Containment{Value: []any{"Authors.Publishers", "Comments"}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Records, 2)
	assert.Contains(t, result.SQL, `LEFT JOIN "authors" AS "Authors"`)
	assert.Equal(t, []any{true}, result.Params)
	assert.NotEmpty(t, result.Fingerprint)
	assert.Equal(t, "Articles", result.Plan["source"])
}

func TestRun_FailingAssertions(t *testing.T) {
	s := blogScenario("failing",
		Assertion{Type: AssertCount, Count: intPtr(5)},
		Assertion{Type: AssertPathEquals, Path: "0.title", Value: "Nope"},
		Assertion{Type: AssertPathEquals, Path: "9.title", Value: "First"},
		Assertion{Type: AssertJoined, Aliases: []string{"Comments"}},
		Assertion{Type: AssertExternal, Aliases: []string{"Authors"}},
	)
	s.Contain = Containment{Value: []any{"Authors", "Comments"}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "assertions[0]: assertion failed: count: expected 5 records, got 3 records")
	assert.Contains(t, result.Errors[1], `expected 0.title = "Nope", got "First"`)
	assert.Contains(t, result.Errors[2], "path not found")
	assert.Contains(t, result.Errors[3], "joined")
	assert.Contains(t, result.Errors[4], "external")
}

func TestRun_MatchingKinds(t *testing.T) {
	tests := []struct {
		name  string
		step  MatchStep
		count int
		extra []Assertion
	}{
		{
			name:  "matching keeps selected data",
			step:  MatchStep{Path: "Tags", Where: map[string]any{"label": "go"}, Fields: []string{"label"}},
			count: 1,
			extra: []Assertion{
				{Type: AssertPathEquals, Path: "0.id", Value: 1},
				{Type: AssertPathEquals, Path: "0._matchingData.Tags.label", Value: "go"},
			},
		},
		{
			name:  "matching without fields filters only",
			step:  MatchStep{Path: "Tags", Where: map[string]any{"label": "go"}},
			count: 1,
			extra: []Assertion{
				{Type: AssertPathEquals, Path: "0.id", Value: 1},
			},
		},
		{
			name:  "inner join filters only",
			step:  MatchStep{Path: "Tags", Kind: MatchInner, Where: map[string]any{"label": "db"}},
			count: 2,
		},
		{
			name:  "not matching",
			step:  MatchStep{Path: "Comments", Kind: MatchNot},
			count: 2,
			extra: []Assertion{
				{Type: AssertPathEquals, Path: "0.id", Value: 2},
				{Type: AssertPathEquals, Path: "1.id", Value: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertions := append([]Assertion{{Type: AssertCount, Count: intPtr(tt.count)}}, tt.extra...)
			s := blogScenario("matching", assertions...)
			s.Matching = []MatchStep{tt.step}

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{"bad catalog", func(s *Scenario) { s.CatalogSource = "resource: {" }, "failed to compile catalog"},
		{"bad seed", func(s *Scenario) { s.SeedSQL = "CREATE NONSENSE" }, "failed to seed"},
		{"unknown resource", func(s *Scenario) { s.Resource = "Widgets" }, `unknown resource "Widgets"`},
		{"unknown relation", func(s *Scenario) { s.Contain = Containment{Value: "Nope"} }, "failed to plan fetch"},
		{"missing catalog file", func(s *Scenario) {
			s.CatalogSource = ""
			s.Catalog = filepath.Join(t.TempDir(), "missing.cue")
		}, "failed to read catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := blogScenario("setup", Assertion{Type: AssertCount, Count: intPtr(0)})
			tt.mutate(s)

			result, err := Run(context.Background(), s)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_FromFiles(t *testing.T) {
	dir := t.TempDir()
	writeBlogFiles(t, dir)
	path := filepath.Join(dir, "limit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: limited
description: "Limit applies to base rows"
catalog: blog.cue
seed: blog.sql
resource: Articles
order: [title DESC]
limit: 2
contain: Tags
assertions:
  - type: count
    count: 2
  - type: path_equals
    path: 0.title
    value: Second
  - type: path_equals
    path: 0.Tags.0.label
    value: db
  - type: external
    aliases: [Tags]
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
