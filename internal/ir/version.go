package ir

// Version constants for the catalog schema and the tool.
const (
	// CatalogVersion is the catalog IR schema version.
	CatalogVersion = "1"

	// Version is the fetchplan release version.
	Version = "0.1.0"
)
