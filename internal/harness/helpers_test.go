package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/testutil"
)

func intPtr(n int) *int { return &n }

// blogScenario returns a scenario over the shared blog fixture.
func blogScenario(name string, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:          name,
		Description:   "blog fixture",
		CatalogSource: testutil.BlogCatalogCUE,
		SeedSQL:       testutil.BlogSeedSQL,
		Resource:      "Articles",
		Assertions:    assertions,
	}
}

// writeBlogFiles writes blog.cue and blog.sql into dir.
func writeBlogFiles(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog.cue"), []byte(testutil.BlogCatalogCUE), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog.sql"), []byte(testutil.BlogSeedSQL), 0o644))
}
