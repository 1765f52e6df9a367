package plan

import (
	"strings"
)

// Spec is a raw containment specification: an ordered mapping from relation
// name to Entry. The zero value is not usable; call NewSpec.
type Spec struct {
	names   []string
	entries map[string]*Entry
}

// Entry is the configuration of one contained relation.
type Entry struct {
	Options  Options
	Children *Spec
}

// NewSpec creates an empty specification.
func NewSpec() *Spec {
	return &Spec{entries: make(map[string]*Entry)}
}

// Len returns the number of top-level entries.
func (s *Spec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the top-level relation names in insertion order.
func (s *Spec) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the entry for name.
func (s *Spec) Get(name string) (*Entry, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.entries[name]
	return e, ok
}

// Add merges opts into the entry at a dotted path, creating intermediate
// entries as needed, and returns the leaf entry.
func (s *Spec) Add(path string, opts Options) (*Entry, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ShapeError{Path: path, Message: "empty relation name"}
		}
	}

	cur := s
	var leaf *Entry
	for i, name := range parts {
		leaf = cur.entry(name)
		if i < len(parts)-1 {
			cur = leaf.children()
		}
	}
	leaf.Options = leaf.Options.Merge(opts)
	return leaf, nil
}

// Merge folds other into s. Options merge per Options.Merge and nested
// entries merge recursively.
func (s *Spec) Merge(other *Spec) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		src := other.entries[name]
		dst := s.entry(name)
		dst.Options = dst.Options.Merge(src.Options)
		if src.Children.Len() > 0 {
			dst.children().Merge(src.Children)
		}
	}
}

// Clone returns a deep copy of the specification tree. Option values are
// shared.
func (s *Spec) Clone() *Spec {
	out := NewSpec()
	out.Merge(s)
	return out
}

// Describe returns the specification as nested plain maps.
func (s *Spec) Describe() map[string]any {
	out := make(map[string]any, s.Len())
	if s == nil {
		return out
	}
	for _, name := range s.names {
		e := s.entries[name]
		desc := e.Options.describe()
		if e.Children.Len() > 0 {
			for k, v := range e.Children.Describe() {
				desc[k] = v
			}
		}
		out[name] = desc
	}
	return out
}

func (s *Spec) entry(name string) *Entry {
	if e, ok := s.entries[name]; ok {
		return e
	}
	e := &Entry{}
	s.entries[name] = e
	s.names = append(s.names, name)
	return e
}

func (e *Entry) children() *Spec {
	if e.Children == nil {
		e.Children = NewSpec()
	}
	return e.Children
}
