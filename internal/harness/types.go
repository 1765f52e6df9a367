package harness

import (
	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors lists failed assertions. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	SQL         string         `json:"sql"`
	Params      []any          `json:"params"`
	Plan        map[string]any `json:"plan"`
	Fingerprint string         `json:"fingerprint"`
	Records     []ir.Record    `json:"records"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		Params:  []any{},
		Records: []ir.Record{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Containment is a contain value decoded with its key order preserved.
type Containment struct {
	Value any
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Containment) UnmarshalYAML(n *yaml.Node) error {
	v, err := plan.FromYAMLNode(n)
	if err != nil {
		return err
	}
	c.Value = v
	return nil
}

// IsZero reports whether nothing is contained, for omitempty.
func (c Containment) IsZero() bool {
	return c.Value == nil
}
