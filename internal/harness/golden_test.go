package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_PublishedWithAuthors(t *testing.T) {
	s := blogScenario("published_with_authors", Assertion{Type: AssertCount, Count: intPtr(2)})
	s.Select = []string{"id", "title"}
	s.Finder = "published"
	s.Contain = Containment{Value: map[string]any{
		"Authors": map[string]any{"fields": []any{"name"}},
	}}

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Deterministic(t *testing.T) {
	s := blogScenario("snap")
	result := NewResult()
	result.SQL = "SELECT 1"

	first, err := Snapshot(s, result)
	require.NoError(t, err)
	second, err := Snapshot(s, result)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, `{"params":[],"records":[],"scenario":"snap","sql":"SELECT 1"}`, string(first))
}
