package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario describes one fetch and what its result must look like.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is a CUE file of resource definitions. CatalogSource holds
	// the same inline. Exactly one is required.
	Catalog       string `yaml:"catalog,omitempty"`
	CatalogSource string `yaml:"catalog_source,omitempty"`

	// Seed is a SQL script creating and filling the tables. SeedSQL holds
	// the same inline. Both are optional; both run when set, file first.
	Seed    string `yaml:"seed,omitempty"`
	SeedSQL string `yaml:"seed_sql,omitempty"`

	// Resource is the base resource of the fetch.
	Resource string `yaml:"resource"`

	Select []string       `yaml:"select,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Order  []string       `yaml:"order,omitempty"`
	Limit  int            `yaml:"limit,omitempty"`
	Finder string         `yaml:"finder,omitempty"`

	// Contain takes any containment shape: a name, a dotted path, a list
	// or a nested mapping with options.
	Contain Containment `yaml:"contain,omitempty"`

	// Matching applies filtering joins in order.
	Matching []MatchStep `yaml:"matching,omitempty"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`
}

// MatchStep is one Matching, InnerJoinWith, LeftJoinWith or NotMatching
// call.
type MatchStep struct {
	Path string `yaml:"path"`

	// Kind is one of the Match* constants. Empty means MatchMatching.
	Kind string `yaml:"kind,omitempty"`

	// Where filters the related rows.
	Where map[string]any `yaml:"where,omitempty"`

	// Fields selects related columns into the matching data.
	Fields []string `yaml:"fields,omitempty"`
}

// Match kinds.
const (
	MatchMatching = "matching"
	MatchInner    = "inner"
	MatchLeft     = "left"
	MatchNot      = "not"
)

// Assertion validates the plan or the records.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of base records (count).
	Count *int `yaml:"count,omitempty"`

	// Path is a dotted path into the records, such as "0.Authors.name"
	// (path_equals).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value at Path. A missing value means null.
	Value any `yaml:"value,omitempty"`

	// Aliases lists alias paths (joined, external).
	Aliases []string `yaml:"aliases,omitempty"`
}

// Assertion type constants.
const (
	AssertCount      = "count"
	AssertPathEquals = "path_equals"
	AssertJoined     = "joined"
	AssertExternal   = "external"
)

// LoadScenario reads and parses a scenario YAML file, resolving catalog and
// seed paths against the directory of the file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative catalog and seed paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	scenario.Catalog = resolve(scenario.Catalog, basePath)
	scenario.Seed = resolve(scenario.Seed, basePath)

	if err := validateFiles(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(path, base string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Catalog == "") == (s.CatalogSource == "") {
		return fmt.Errorf("exactly one of catalog or catalog_source is required")
	}
	if s.Resource == "" {
		return fmt.Errorf("resource is required")
	}
	if s.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}

	for i, step := range s.Matching {
		if step.Path == "" {
			return fmt.Errorf("matching[%d]: path is required", i)
		}
		switch step.Kind {
		case "", MatchMatching, MatchInner, MatchLeft, MatchNot:
		default:
			return fmt.Errorf("matching[%d]: unknown kind %q", i, step.Kind)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertPathEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_equals", index)
		}
	case AssertJoined, AssertExternal:
		if len(a.Aliases) == 0 {
			return fmt.Errorf("assertions[%d]: aliases list is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// validateFiles checks that referenced files exist.
func validateFiles(s *Scenario) error {
	for _, path := range []string{s.Catalog, s.Seed} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}
	return nil
}
