package cli

import (
	"github.com/roach88/fetchplan/internal/resource"
)

// openCatalog loads the configured catalog directory into a runtime
// catalog. Failures are printed through formatter and returned as exit
// errors.
func openCatalog(opts *RootOptions, formatter *OutputFormatter) (*resource.Catalog, error) {
	loadResult, loadErrors := LoadCatalog(opts.Catalog, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return nil, formatter.Fail(ExitCommandError, code, message, loadErrors[0])
	}
	formatter.VerboseLog("Loaded %d resource(s) from %s", len(loadResult.Resources), opts.Catalog)

	cat, err := resource.NewCatalog(loadResult.Resources)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}
	return cat, nil
}
