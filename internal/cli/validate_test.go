package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchplan/internal/compiler"
	"github.com/roach88/fetchplan/internal/testutil"
)

func TestValidateBlogCatalog(t *testing.T) {
	dir := writeCatalogDir(t, testutil.BlogCatalogCUE)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All resources valid (7)")
}

func TestValidateBlogCatalogJSON(t *testing.T) {
	dir := writeCatalogDir(t, testutil.BlogCatalogCUE)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 7, resp.Data.Resources)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidateNoResources(t *testing.T) {
	dir := writeCatalogDir(t, `other: 1`)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no resources found in catalog")
}

func TestValidateCatalogErrors(t *testing.T) {
	dir := writeCatalogDir(t, `
resource: Articles: {
	columns: ["id", "author_id"]
	relations: {
		Authors: {kind: "belongsTo", foreignKey: "author_id"}
		Comments: {kind: "hasMany", foreignKey: "article_id", strategy: "join"}
	}
}
resource: Comments: columns: ["id", "body"]
`)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrUnknownTarget)
	assert.Contains(t, out, "hasMany relations cannot use the join strategy")
	assert.Contains(t, out, compiler.ErrUnknownColumn)
}

func TestValidateCatalogErrorsJSON(t *testing.T) {
	dir := writeCatalogDir(t, `
resource: Articles: {
	columns: ["id", "author_id"]
	relations: Authors: {kind: "belongsTo", foreignKey: "author_id"}
}
`)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "resource.Articles.relations.Authors.target", resp.Data.Errors[0].Field)
	assert.Equal(t, compiler.ErrUnknownTarget, resp.Error.Code)
}

func TestValidateCompileErrorReportsLine(t *testing.T) {
	dir := writeCatalogDir(t, `
resource: Articles: {
	columns: ["id"]
	relations: Authors: {foreignKey: "author_id"}
}
`)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "relation kind is required")
	assert.Contains(t, out, compiler.ErrInvalidRelationKind)
}

func TestValidateVerboseOutput(t *testing.T) {
	dir := writeCatalogDir(t, testutil.BlogCatalogCUE)

	_, errOut, err := execute(NewValidateCommand(&RootOptions{Format: "text", Verbose: true}), dir)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Found 1 CUE file(s)")
	assert.Contains(t, errOut, "Validating resource: Comments")
}
