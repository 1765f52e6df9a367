package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/testutil"
)

// writeCatalogDir writes src as the only CUE file of a fresh directory.
func writeCatalogDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte("package catalog\n"+src), 0o644))
	return dir
}

// blogOptions returns root options over the blog fixture: a catalog
// directory, a file database and its seed script.
func blogOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	catalogDir := writeCatalogDir(t, testutil.BlogCatalogCUE)
	seed := filepath.Join(t.TempDir(), "seed.sql")
	require.NoError(t, os.WriteFile(seed, []byte(testutil.BlogSeedSQL), 0o644))
	return &RootOptions{
		Format:   format,
		Catalog:  catalogDir,
		Database: ":memory:",
		Seed:     seed,
	}
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// chdir changes the working directory to dir for the duration of the
// test, restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
