package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fetchplan/internal/ir"
)

// CompositeKeySeparator joins the values of a multi-column key into one
// deduplication key.
const CompositeKeySeparator = ";"

// KeySet is an insertion-ordered, deduplicated set of correlation keys.
// Each key keeps the raw value tuple it was built from.
type KeySet struct {
	width  int
	order  []string
	tuples map[string][]any
}

// NewKeySet creates an empty set of keys with width columns each.
func NewKeySet(width int) *KeySet {
	return &KeySet{width: width, tuples: make(map[string][]any)}
}

// Add inserts a tuple. Duplicates are ignored.
func (k *KeySet) Add(tuple ...any) {
	if len(tuple) != k.width {
		panic(fmt.Sprintf("plan: key tuple has %d values, want %d", len(tuple), k.width))
	}
	key := KeyString(tuple)
	if _, ok := k.tuples[key]; ok {
		return
	}
	raw := make([]any, len(tuple))
	copy(raw, tuple)
	k.tuples[key] = raw
	k.order = append(k.order, key)
}

// Len returns the number of distinct keys.
func (k *KeySet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.order)
}

// Width returns the number of columns per key.
func (k *KeySet) Width() int {
	return k.width
}

// Keys returns the deduplication keys in insertion order.
func (k *KeySet) Keys() []string {
	out := make([]string, len(k.order))
	copy(out, k.order)
	return out
}

// Tuple returns the raw values stored for a deduplication key.
func (k *KeySet) Tuple(key string) ([]any, bool) {
	t, ok := k.tuples[key]
	return t, ok
}

// Tuples returns the raw value tuples in insertion order.
func (k *KeySet) Tuples() [][]any {
	out := make([][]any, len(k.order))
	for i, key := range k.order {
		out[i] = k.tuples[key]
	}
	return out
}

// Values returns the first value of each tuple, the usual shape for
// single-column keys.
func (k *KeySet) Values() []any {
	out := make([]any, len(k.order))
	for i, key := range k.order {
		out[i] = k.tuples[key][0]
	}
	return out
}

// KeyString renders a key tuple as a deduplication key. Loaders use it to
// match loaded rows back to base records.
//
// Strings and byte slices are quoted, so "1" and 1 stay apart and a
// separator inside a value cannot make two tuples collide. Numbers of any
// Go type render as their value.
func KeyString(tuple []any) string {
	if len(tuple) == 1 {
		return keyPart(tuple[0])
	}
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		parts[i] = keyPart(v)
	}
	return strings.Join(parts, CompositeKeySeparator)
}

func keyPart(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case []byte:
		return strconv.Quote(string(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return fmt.Sprint(val)
	default:
		return fmt.Sprintf("%T(%s)", val, strconv.Quote(fmt.Sprint(val)))
	}
}

// keyCollector gathers the keys one external node needs.
type keyCollector struct {
	node    *Node
	alias   string
	columns []string // aliased column names
	keys    *KeySet  // nil until a record carries every column
}

// collectKeys scans the stream once and groups keys by alias path and then by
// the correlating source alias. A record missing a column or holding a null
// in it is skipped for that node only. The stream is rewound afterwards.
func collectKeys(external []*Node, stream Stream) (map[string]map[string]*keyCollector, error) {
	var collectors []*keyCollector
	for _, n := range external {
		if !n.Relation.RequiresKeys(n.Options) {
			continue
		}
		cols := CorrelationColumns(n.Relation, n.Options)
		alias := n.Relation.Source().Alias()
		aliased := make([]string, len(cols))
		for i, c := range cols {
			aliased[i] = ir.AliasField(alias, c)
		}
		collectors = append(collectors, &keyCollector{node: n, alias: alias, columns: aliased})
	}

	out := make(map[string]map[string]*keyCollector)
	for _, c := range collectors {
		bySource := out[c.node.AliasPath]
		if bySource == nil {
			bySource = make(map[string]*keyCollector)
			out[c.node.AliasPath] = bySource
		}
		bySource[c.alias] = c
	}
	if len(collectors) == 0 {
		return out, nil
	}

	stream.Rewind()
	for stream.Next() {
		rec := stream.Record()
		for _, c := range collectors {
			c.observe(rec)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("collect keys: %w", err)
	}
	stream.Rewind()
	return out, nil
}

func (c *keyCollector) observe(rec ir.Record) {
	if len(c.columns) == 1 {
		v, present := rec[c.columns[0]]
		if !present {
			return
		}
		c.ensure()
		if v != nil {
			c.keys.Add(v)
		}
		return
	}

	tuple := make([]any, len(c.columns))
	for i, col := range c.columns {
		v, present := rec[col]
		if !present {
			return
		}
		tuple[i] = v
	}
	c.ensure()
	for _, v := range tuple {
		if v == nil {
			return
		}
	}
	c.keys.Add(tuple...)
}

func (c *keyCollector) ensure() {
	if c.keys == nil {
		c.keys = NewKeySet(len(c.columns))
	}
}
