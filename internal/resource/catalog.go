package resource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/fetchplan/internal/compiler"
	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/resultset"
)

// Executor runs one SQL statement and streams its flat rows.
// *store.Store implements it.
type Executor interface {
	Stream(ctx context.Context, query string, args ...any) (*resultset.ResultSet, error)
}

// IDGenerator returns a unique id for every query, used to correlate log
// lines of one fetch and its external loads.
type IDGenerator func() string

// Option configures a Catalog.
type Option func(*Catalog)

// WithIDGenerator replaces the default UUIDv7 query ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Catalog) {
		c.newID = gen
	}
}

// Catalog is a validated set of resources.
type Catalog struct {
	resources map[string]*Resource
	names     []string
	newID     IDGenerator
}

// NewCatalog validates specs and builds the resources. Relation defaults
// (binding keys, properties) are filled in on a copy; specs is not
// modified.
func NewCatalog(specs []ir.ResourceSpec, opts ...Option) (*Catalog, error) {
	owned := make([]ir.ResourceSpec, len(specs))
	for i, s := range specs {
		s.Relations = append([]ir.RelationSpec(nil), s.Relations...)
		owned[i] = s
	}
	compiler.ApplyDefaults(owned)

	if errs := compiler.Validate(owned); len(errs) > 0 {
		for _, e := range errs[1:] {
			slog.Debug("catalog validation", "code", e.Code, "field", e.Field, "message", e.Message)
		}
		return nil, fmt.Errorf("invalid catalog (%d problems): %w", len(errs), errs[0])
	}

	c := &Catalog{
		resources: make(map[string]*Resource, len(owned)),
		newID:     newUUID,
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range owned {
		spec := &owned[i]
		c.resources[spec.Name] = &Resource{spec: spec, catalog: c, alias: spec.Name}
		c.names = append(c.names, spec.Name)
	}
	return c, nil
}

// Resource returns the resource registered under name, aliased by its name.
func (c *Catalog) Resource(name string) (*Resource, bool) {
	r, ok := c.resources[name]
	return r, ok
}

// Names returns the resource names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Query starts a fetch of the named resource.
func (c *Catalog) Query(name string, exec Executor) (*Query, error) {
	r, ok := c.resources[name]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", name)
	}
	return r.Query(exec), nil
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
