package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type for categorization
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in order. An empty slice means all passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	failures := []string{}
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCount:
		return assertCount(result.Records, a)
	case AssertPathEquals:
		return assertPathEquals(result.Records, a)
	case AssertJoined:
		return assertAliases(AssertJoined, joinedPaths(result.Plan), a.Aliases)
	case AssertExternal:
		return assertAliases(AssertExternal, externalPaths(result.Plan), a.Aliases)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCount(records []ir.Record, a Assertion) error {
	want := 0
	if a.Count != nil {
		want = *a.Count
	}
	if len(records) != want {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d records", want),
			Actual:   fmt.Sprintf("%d records", len(records)),
		}
	}
	return nil
}

// assertPathEquals compares canonical JSON encodings, so YAML ints match
// the int64 values read from SQLite.
func assertPathEquals(records []ir.Record, a Assertion) error {
	got, ok := LookupPath(records, a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertPathEquals,
			Expected: fmt.Sprintf("%s = %v", a.Path, a.Value),
			Actual:   "path not found",
		}
	}

	wantJSON, err := ir.MarshalCanonical(a.Value)
	if err != nil {
		return fmt.Errorf("expected value at %s: %w", a.Path, err)
	}
	gotJSON, err := ir.MarshalCanonical(got)
	if err != nil {
		return fmt.Errorf("value at %s: %w", a.Path, err)
	}
	if !bytes.Equal(wantJSON, gotJSON) {
		return &AssertionError{
			Type:     AssertPathEquals,
			Expected: fmt.Sprintf("%s = %s", a.Path, wantJSON),
			Actual:   string(gotJSON),
		}
	}
	return nil
}

func assertAliases(kind string, have, want []string) error {
	set := make(map[string]bool, len(have))
	for _, p := range have {
		set[p] = true
	}
	var missing []string
	for _, p := range want {
		if !set[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s among %v", strings.Join(missing, ", "), have),
			Actual:   "missing",
		}
	}
	return nil
}

// LookupPath walks a dotted path such as "0.Comments.1.body" through
// records, lists and nested records.
func LookupPath(records []ir.Record, path string) (any, bool) {
	var cur any = records
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case []ir.Record:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		case ir.Record:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		default:
			return nil, false
		}
	}
	return cur, true
}

func joinedPaths(desc map[string]any) []string {
	list, _ := desc["joinable"].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func externalPaths(desc map[string]any) []string {
	list, _ := desc["external"].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			if s, ok := m["alias_path"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
