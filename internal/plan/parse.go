package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
)

// Ordered is a mapping that keeps its key order. Containment read from YAML
// or CUE is decoded into Ordered so the plan follows the author's order;
// plain Go maps are visited in sorted key order instead.
type Ordered []KV

// KV is one key/value pair of an Ordered mapping.
type KV struct {
	Key   string
	Value any
}

// ParseSpec converts a dynamic containment value into a Spec.
//
// Accepted shapes:
//
//	"Authors"                                  a name or dotted path
//	[]string{"Authors", "Tags"}                a list of names
//	map[string]any{"Authors": {...}}           names to entries
//	Ordered{{"Authors.Books", Options{...}}}   ordered names to entries
//	*Spec                                      an already built spec
//
// An entry value is nil, an Options value, a QueryTransform, a nested name
// list, or a mapping whose recognized keys are options and whose other keys
// are nested relations.
func ParseSpec(v any) (*Spec, error) {
	spec := NewSpec()
	if err := parseInto(spec, "", v); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseInto(spec *Spec, parent string, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		_, err := spec.Add(val, Options{})
		return prefixShapeError(err, parent)
	case []string:
		for _, name := range val {
			if err := parseInto(spec, parent, name); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range val {
			if err := parseInto(spec, parent, item); err != nil {
				return err
			}
		}
		return nil
	case *Spec:
		spec.Merge(val)
		return nil
	case map[string]any:
		for _, kv := range sortedPairs(val) {
			if err := parseEntry(spec, parent, kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	case Ordered:
		for _, kv := range val {
			if err := parseEntry(spec, parent, kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ShapeError{Path: parent, Message: fmt.Sprintf("unsupported containment value %T", v)}
	}
}

func parseEntry(spec *Spec, parent, key string, v any) error {
	path := ir.JoinPath(parent, key)
	switch val := v.(type) {
	case nil:
		_, err := spec.Add(key, Options{})
		return prefixShapeError(err, parent)
	case Options:
		_, err := spec.Add(key, val)
		return prefixShapeError(err, parent)
	case QueryTransform:
		_, err := spec.Add(key, Options{QueryBuilder: val})
		return prefixShapeError(err, parent)
	case func(Fetch) Fetch:
		_, err := spec.Add(key, Options{QueryBuilder: val})
		return prefixShapeError(err, parent)
	case string, []string, []any, *Spec:
		leaf, err := spec.Add(key, Options{})
		if err != nil {
			return prefixShapeError(err, parent)
		}
		return parseInto(leaf.children(), path, val)
	case map[string]any:
		return parseEntryPairs(spec, parent, key, sortedPairs(val))
	case Ordered:
		return parseEntryPairs(spec, parent, key, val)
	default:
		return &ShapeError{Path: path, Message: fmt.Sprintf("expected options, a query builder or nested relations, got %T", v)}
	}
}

func parseEntryPairs(spec *Spec, parent, key string, pairs []KV) error {
	path := ir.JoinPath(parent, key)
	opts, nested, err := splitOptions(path, pairs)
	if err != nil {
		return err
	}
	leaf, err := spec.Add(key, opts)
	if err != nil {
		return prefixShapeError(err, parent)
	}
	if nested.Len() > 0 {
		leaf.children().Merge(nested)
	}
	return nil
}

// ParseOptions converts a mapping of option keys into Options. Unknown keys
// are rejected.
func ParseOptions(v any) (Options, error) {
	var pairs []KV
	switch val := v.(type) {
	case nil:
		return Options{}, nil
	case Options:
		return val, nil
	case map[string]any:
		pairs = sortedPairs(val)
	case Ordered:
		pairs = val
	default:
		return Options{}, &ShapeError{Message: fmt.Sprintf("options must be a mapping, got %T", v)}
	}
	for _, kv := range pairs {
		if !IsOptionKey(kv.Key) {
			return Options{}, &ShapeError{Key: kv.Key, Message: "not a recognized option"}
		}
	}
	opts, _, err := splitOptions("", pairs)
	if err != nil {
		return Options{}, err
	}
	return opts, nil
}

// splitOptions separates recognized options from nested relation entries.
func splitOptions(path string, pairs []KV) (Options, *Spec, error) {
	var opts Options
	nested := NewSpec()
	for _, kv := range pairs {
		if !IsOptionKey(kv.Key) {
			if err := parseEntry(nested, path, kv.Key, kv.Value); err != nil {
				return Options{}, nil, err
			}
			continue
		}
		if err := setOption(&opts, nested, path, kv.Key, kv.Value); err != nil {
			return Options{}, nil, err
		}
	}
	return opts, nested, nil
}

func setOption(opts *Options, nested *Spec, path, key string, v any) error {
	bad := func(format string, args ...any) error {
		return &ShapeError{Path: path, Key: key, Message: fmt.Sprintf(format, args...)}
	}

	switch key {
	case OptAssociations:
		return parseInto(nested, path, v)
	case OptForeignKey:
		cols, ok := toStringList(v)
		if !ok {
			return bad("expected a column name or list, got %T", v)
		}
		opts.ForeignKey = cols
	case OptConditions:
		switch c := v.(type) {
		case nil:
		case map[string]any:
			opts.Conditions = c
		case Ordered:
			m := make(map[string]any, len(c))
			for _, kv := range c {
				m[kv.Key] = kv.Value
			}
			opts.Conditions = m
		default:
			return bad("expected a mapping, got %T", v)
		}
	case OptFields:
		if b, ok := v.(bool); ok {
			if !b {
				opts.NoFields = true
			}
			return nil
		}
		cols, ok := toStringList(v)
		if !ok {
			return bad("expected a field list or false, got %T", v)
		}
		opts.Fields = cols
	case OptSort:
		terms, ok := toStringList(v)
		if !ok {
			return bad("expected a sort term or list, got %T", v)
		}
		opts.Sort = terms
	case OptMatching:
		b, ok := v.(bool)
		if !ok {
			return bad("expected a bool, got %T", v)
		}
		opts.Matching = boolPtr(b)
	case OptQueryBuilder:
		switch fn := v.(type) {
		case QueryTransform:
			opts.QueryBuilder = fn
		case func(Fetch) Fetch:
			opts.QueryBuilder = fn
		default:
			return bad("expected a query transform, got %T", v)
		}
	case OptFinder:
		s, ok := v.(string)
		if !ok {
			return bad("expected a finder name, got %T", v)
		}
		opts.Finder = s
	case OptJoinType:
		s, ok := v.(string)
		if !ok {
			return bad("expected LEFT or INNER, got %T", v)
		}
		kind := ir.JoinKind(strings.ToUpper(s))
		if !ir.ValidJoinKinds[kind] {
			return bad("unknown join type %q", s)
		}
		opts.JoinType = kind
	case OptStrategy:
		s, ok := v.(string)
		if !ok {
			return bad("expected a strategy name, got %T", v)
		}
		strategy := ir.Strategy(s)
		if !ir.ValidStrategies[strategy] {
			return bad("unknown strategy %q", s)
		}
		opts.Strategy = strategy
	case OptNegateMatch:
		b, ok := v.(bool)
		if !ok {
			return bad("expected a bool, got %T", v)
		}
		opts.NegateMatch = b
	}
	return nil
}

func toStringList(v any) ([]string, bool) {
	switch val := v.(type) {
	case string:
		return []string{val}, true
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func sortedPairs(m map[string]any) []KV {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]KV, len(keys))
	for i, k := range keys {
		pairs[i] = KV{Key: k, Value: m[k]}
	}
	return pairs
}

func prefixShapeError(err error, parent string) error {
	if err == nil || parent == "" {
		return err
	}
	if se, ok := err.(*ShapeError); ok {
		se.Path = ir.JoinPath(parent, se.Path)
	}
	return err
}
