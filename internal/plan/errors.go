package plan

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeUnknownRelation indicates a contained name is not a relation of
	// its owning source.
	ErrCodeUnknownRelation ErrorCode = "UNKNOWN_RELATION"

	// ErrCodeBindingMismatch indicates the relation found for a name is
	// registered under a different binding name.
	ErrCodeBindingMismatch ErrorCode = "BINDING_MISMATCH"

	// ErrCodeMissingKey indicates the correlation column of a top-level
	// external relation was not projected by the base fetch.
	ErrCodeMissingKey ErrorCode = "MISSING_KEY"

	// ErrCodeAliasCollision indicates two matching paths join different
	// relations under the same alias.
	ErrCodeAliasCollision ErrorCode = "ALIAS_COLLISION"
)

// ConfigurationError is a fatal plan error. Compilation stops at the first
// one and no partial tree is kept.
type ConfigurationError struct {
	Code     ErrorCode
	Source   string // alias of the owning source
	Relation string // requested relation name
	Path     string // alias path of the offending node, when known
	Message  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ShapeError reports a malformed containment value or option.
type ShapeError struct {
	Path    string // dotted containment path being parsed
	Key     string // option key, empty when the entry itself is malformed
	Message string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	switch {
	case e.Path != "" && e.Key != "":
		return fmt.Sprintf("invalid %s option on %s: %s", e.Key, e.Path, e.Message)
	case e.Key != "":
		return fmt.Sprintf("invalid %s option: %s", e.Key, e.Message)
	case e.Path != "":
		return fmt.Sprintf("invalid containment %s: %s", e.Path, e.Message)
	default:
		return fmt.Sprintf("invalid containment: %s", e.Message)
	}
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsShapeError returns true if err is or wraps a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// ErrorCodeOf returns the code of a wrapped ConfigurationError, or "".
func ErrorCodeOf(err error) ErrorCode {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
