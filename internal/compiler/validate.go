package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Resource errors (E101-E109)
	ErrNoColumns          = "E101" // resource declares no columns
	ErrUnknownKeyColumn   = "E102" // primary key column not declared
	ErrDuplicateName      = "E103" // duplicate resource or relation name
	ErrUnknownFinderChain = "E104" // finder contains an unknown relation

	// Relation errors (E110-E119)
	ErrInvalidRelationKind = "E110" // kind is not a known relation variant
	ErrUnknownTarget       = "E111" // target resource does not exist
	ErrInvalidStrategy     = "E112" // unknown strategy or join type
	ErrMissingForeignKey   = "E113" // relation has no foreign key
	ErrKeyWidthMismatch    = "E114" // foreign and binding key widths differ
	ErrMissingThrough      = "E115" // belongsToMany without pivot table or key
	ErrUnknownColumn       = "E116" // key column not declared on its resource
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled resources.
// Returns all errors found (does not fail-fast).
// A single resource is checked on its own; a catalog also checks targets
// and cross-resource key columns.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case []ir.ResourceSpec:
		return validateCatalog(spec)
	case *ir.ResourceSpec:
		return validateResource(spec, nil)
	case ir.ResourceSpec:
		return validateResource(&spec, nil)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateCatalog(specs []ir.ResourceSpec) []ValidationError {
	var errs []ValidationError

	byName := make(map[string]*ir.ResourceSpec, len(specs))
	for i := range specs {
		if _, dup := byName[specs[i].Name]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("resource.%s", specs[i].Name),
				Message: fmt.Sprintf("duplicate resource name: %q", specs[i].Name),
				Code:    ErrDuplicateName,
			})
			continue
		}
		byName[specs[i].Name] = &specs[i]
	}

	for i := range specs {
		errs = append(errs, validateResource(&specs[i], byName)...)
	}
	return errs
}

// validateResource checks one resource. Cross-resource checks run only
// when byName is set.
func validateResource(spec *ir.ResourceSpec, byName map[string]*ir.ResourceSpec) []ValidationError {
	var errs []ValidationError
	base := "resource." + spec.Name

	// E101: columns are required
	if len(spec.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   base + ".columns",
			Message: "at least one column is required",
			Code:    ErrNoColumns,
		})
	}

	// E102: primary key columns must be declared
	for _, col := range spec.PrimaryKey {
		if !spec.HasColumn(col) {
			errs = append(errs, ValidationError{
				Field:   base + ".primaryKey",
				Message: fmt.Sprintf("primary key column %q is not declared", col),
				Code:    ErrUnknownKeyColumn,
			})
		}
	}

	names := make(map[string]bool)
	for _, rel := range spec.Relations {
		field := fmt.Sprintf("%s.relations.%s", base, rel.Name)

		// E103: duplicate relation name
		if names[rel.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate relation name: %q", rel.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[rel.Name] = true

		errs = append(errs, validateRelation(spec, rel, field, byName)...)
	}

	if byName != nil {
		for name, finder := range spec.Finders {
			for _, path := range finder.Contain {
				if msg := checkChain(spec, path, byName); msg != "" {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.finders.%s.contain", base, name),
						Message: msg,
						Code:    ErrUnknownFinderChain,
					})
				}
			}
		}
	}

	return errs
}

func validateRelation(src *ir.ResourceSpec, rel ir.RelationSpec, field string, byName map[string]*ir.ResourceSpec) []ValidationError {
	var errs []ValidationError

	// E110: kind
	if !ir.ValidRelationKinds[rel.Kind] {
		return append(errs, ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("invalid relation kind %q, must be belongsTo, hasOne, hasMany or belongsToMany", rel.Kind),
			Code:    ErrInvalidRelationKind,
		})
	}

	// E112: strategy and join type
	if rel.Strategy != "" && !ir.ValidStrategies[rel.Strategy] {
		errs = append(errs, ValidationError{
			Field:   field + ".strategy",
			Message: fmt.Sprintf("invalid strategy %q, must be join, select or subquery", rel.Strategy),
			Code:    ErrInvalidStrategy,
		})
	}
	if rel.JoinType != "" && !ir.ValidJoinKinds[rel.JoinType] {
		errs = append(errs, ValidationError{
			Field:   field + ".joinType",
			Message: fmt.Sprintf("invalid join type %q, must be LEFT or INNER", rel.JoinType),
			Code:    ErrInvalidStrategy,
		})
	}
	if rel.Strategy == ir.StrategyJoin && rel.Kind.Cardinality().IsToMany() {
		errs = append(errs, ValidationError{
			Field:   field + ".strategy",
			Message: fmt.Sprintf("%s relations cannot use the join strategy", rel.Kind),
			Code:    ErrInvalidStrategy,
		})
	}

	// E113: foreign key
	if len(rel.ForeignKey) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".foreignKey",
			Message: "foreignKey is required",
			Code:    ErrMissingForeignKey,
		})
	}

	// E115: pivot for belongsToMany
	if rel.Kind == ir.BelongsToMany {
		if strings.TrimSpace(rel.Through) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".through",
				Message: "belongsToMany requires a through table",
				Code:    ErrMissingThrough,
			})
		}
		if len(rel.TargetForeignKey) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".targetForeignKey",
				Message: "belongsToMany requires a targetForeignKey",
				Code:    ErrMissingThrough,
			})
		}
	}

	// E114: key widths
	if len(rel.ForeignKey) > 0 && len(rel.BindingKey) > 0 && len(rel.ForeignKey) != len(rel.BindingKey) {
		errs = append(errs, ValidationError{
			Field:   field + ".foreignKey",
			Message: fmt.Sprintf("foreignKey has %d columns but bindingKey has %d", len(rel.ForeignKey), len(rel.BindingKey)),
			Code:    ErrKeyWidthMismatch,
		})
	}

	if byName == nil {
		return errs
	}

	// E111: target must exist
	target, ok := byName[rel.Target]
	if !ok {
		return append(errs, ValidationError{
			Field:   field + ".target",
			Message: fmt.Sprintf("unknown target resource %q", rel.Target),
			Code:    ErrUnknownTarget,
		})
	}

	// E116: key columns live on the right side
	fkOwner, bkOwner := target, src
	switch rel.Kind {
	case ir.BelongsTo:
		fkOwner, bkOwner = src, target
	case ir.BelongsToMany:
		fkOwner = nil // pivot columns are not declared
		if len(rel.TargetForeignKey) > 0 && len(rel.TargetForeignKey) != len(target.PrimaryKey) {
			errs = append(errs, ValidationError{
				Field:   field + ".targetForeignKey",
				Message: fmt.Sprintf("targetForeignKey has %d columns but %s's primary key has %d", len(rel.TargetForeignKey), target.Name, len(target.PrimaryKey)),
				Code:    ErrKeyWidthMismatch,
			})
		}
	}
	if fkOwner != nil {
		errs = append(errs, checkColumns(fkOwner, rel.ForeignKey, field+".foreignKey")...)
	}
	errs = append(errs, checkColumns(bkOwner, rel.BindingKey, field+".bindingKey")...)

	return errs
}

func checkColumns(owner *ir.ResourceSpec, cols []string, field string) []ValidationError {
	var errs []ValidationError
	for _, col := range cols {
		if !owner.HasColumn(col) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("column %q is not declared on %s", col, owner.Name),
				Code:    ErrUnknownColumn,
			})
		}
	}
	return errs
}

// checkChain walks a dotted relation path and describes the first broken
// link, or returns "".
func checkChain(spec *ir.ResourceSpec, path string, byName map[string]*ir.ResourceSpec) string {
	cur := spec
	for _, name := range strings.Split(path, ".") {
		rel, ok := cur.Relation(name)
		if !ok {
			return fmt.Sprintf("%s has no relation %q in %q", cur.Name, name, path)
		}
		next, ok := byName[rel.Target]
		if !ok {
			return fmt.Sprintf("relation %q targets unknown resource %q", name, rel.Target)
		}
		cur = next
	}
	return ""
}
