package compiler

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/fetchplan/internal/ir"
)

// CompileCatalog compiles every resource under the top-level "resource"
// field of v and fills in defaults that depend on other resources.
//
//	resource: Articles: {
//		table:      "articles"
//		primaryKey: "id"
//		columns: ["id", "author_id", "title"]
//		relations: Authors: {kind: "belongsTo", foreignKey: "author_id"}
//	}
func CompileCatalog(v cue.Value) ([]ir.ResourceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	resVal := v.LookupPath(cue.ParsePath("resource"))
	if !resVal.Exists() {
		return nil, &CompileError{
			Field:   "resource",
			Message: "catalog declares no resources",
			Pos:     v.Pos(),
		}
	}

	iter, err := resVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.ResourceSpec
	for iter.Next() {
		spec, err := CompileResource(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}

	ApplyDefaults(specs)
	return specs, nil
}

// CompileResource parses one resource struct. The resource name is the
// struct label.
func CompileResource(v cue.Value) (*ir.ResourceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ResourceSpec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	if spec.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if spec.Table == "" {
		spec.Table = strings.ToLower(spec.Name)
	}

	if spec.PrimaryKey, err = optionalKey(v, "primaryKey"); err != nil {
		return nil, err
	}
	if len(spec.PrimaryKey) == 0 {
		spec.PrimaryKey = []string{"id"}
	}

	colVal := v.LookupPath(cue.ParsePath("columns"))
	if !colVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("resource.%s.columns", spec.Name),
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	if spec.Columns, err = stringList(colVal); err != nil {
		return nil, err
	}

	if spec.Relations, err = parseRelations(v, spec.Name); err != nil {
		return nil, err
	}
	if spec.Finders, err = parseFinders(v); err != nil {
		return nil, err
	}

	return spec, nil
}

func parseRelations(v cue.Value, owner string) ([]ir.RelationSpec, error) {
	relations := []ir.RelationSpec{}

	relVal := v.LookupPath(cue.ParsePath("relations"))
	if !relVal.Exists() {
		return relations, nil
	}

	iter, err := relVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		rv := iter.Value()
		field := fmt.Sprintf("resource.%s.relations.%s", owner, name)

		rel := ir.RelationSpec{Name: name}

		kindVal := rv.LookupPath(cue.ParsePath("kind"))
		if !kindVal.Exists() {
			return nil, &CompileError{Field: field + ".kind", Message: "relation kind is required", Pos: rv.Pos()}
		}
		kind, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rel.Kind = ir.RelationKind(kind)

		strFields := []struct {
			name string
			dst  *string
		}{
			{"target", &rel.Target},
			{"property", &rel.Property},
			{"through", &rel.Through},
		}
		for _, f := range strFields {
			if *f.dst, err = optionalString(rv, f.name); err != nil {
				return nil, err
			}
		}
		if rel.Target == "" {
			rel.Target = name
		}

		strategy, err := optionalString(rv, "strategy")
		if err != nil {
			return nil, err
		}
		rel.Strategy = ir.Strategy(strategy)

		joinType, err := optionalString(rv, "joinType")
		if err != nil {
			return nil, err
		}
		rel.JoinType = ir.JoinKind(strings.ToUpper(joinType))

		keyFields := []struct {
			name string
			dst  *[]string
		}{
			{"foreignKey", &rel.ForeignKey},
			{"bindingKey", &rel.BindingKey},
			{"targetForeignKey", &rel.TargetForeignKey},
			{"sort", &rel.Sort},
		}
		for _, f := range keyFields {
			if *f.dst, err = optionalKey(rv, f.name); err != nil {
				return nil, err
			}
		}

		if rel.Conditions, err = parseConditions(rv); err != nil {
			return nil, err
		}

		relations = append(relations, rel)
	}

	return relations, nil
}

func parseFinders(v cue.Value) (map[string]ir.FinderSpec, error) {
	findVal := v.LookupPath(cue.ParsePath("finders"))
	if !findVal.Exists() {
		return nil, nil
	}

	iter, err := findVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	finders := make(map[string]ir.FinderSpec)
	for iter.Next() {
		fv := iter.Value()
		var f ir.FinderSpec
		if f.Conditions, err = parseConditions(fv); err != nil {
			return nil, err
		}
		if f.Sort, err = optionalKey(fv, "sort"); err != nil {
			return nil, err
		}
		if f.Contain, err = optionalKey(fv, "contain"); err != nil {
			return nil, err
		}
		finders[iter.Label()] = f
	}
	return finders, nil
}

// parseConditions reads a struct of column to scalar (or list of scalars).
func parseConditions(v cue.Value) (map[string]any, error) {
	condVal := v.LookupPath(cue.ParsePath("conditions"))
	if !condVal.Exists() {
		return nil, nil
	}

	iter, err := condVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	conds := make(map[string]any)
	for iter.Next() {
		val, err := decodeValue(iter.Value())
		if err != nil {
			return nil, err
		}
		conds[iter.Label()] = val
	}
	return conds, nil
}

// decodeValue converts a concrete CUE scalar or list of scalars.
func decodeValue(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return nil, nil
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(err)
	case cue.IntKind:
		i, err := v.Int64()
		return i, formatCUEError(err)
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return f, formatCUEError(err)
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(err)
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			item, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   "conditions",
			Message: fmt.Sprintf("unsupported condition value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalKey reads a field holding a string or a list of strings.
func optionalKey(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	if s, err := fv.String(); err == nil {
		return []string{s}, nil
	}
	return stringList(fv)
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ApplyDefaults fills relation defaults that need the whole catalog:
// binding keys default to the primary key of the referenced side and
// properties default to the relation name. Unknown targets are left alone
// for Validate to report.
func ApplyDefaults(specs []ir.ResourceSpec) {
	byName := make(map[string]*ir.ResourceSpec, len(specs))
	for i := range specs {
		byName[specs[i].Name] = &specs[i]
	}

	for i := range specs {
		src := &specs[i]
		for j := range src.Relations {
			rel := &src.Relations[j]
			if rel.Property == "" {
				rel.Property = rel.Name
			}
			if len(rel.BindingKey) > 0 {
				continue
			}
			if rel.Kind == ir.BelongsTo {
				if target, ok := byName[rel.Target]; ok {
					rel.BindingKey = append([]string(nil), target.PrimaryKey...)
				}
				continue
			}
			rel.BindingKey = append([]string(nil), src.PrimaryKey...)
		}
	}
}

// SortedNames returns resource names in sorted order.
func SortedNames(specs []ir.ResourceSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
