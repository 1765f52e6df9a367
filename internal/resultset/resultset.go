// Package resultset provides the replayable record stream a fetch produces.
//
// Rows are pulled from the underlying iterator lazily and buffered, so the
// stream can be rewound and scanned again by each external loader without
// re-running the query.
package resultset

import (
	"fmt"

	"github.com/roach88/fetchplan/internal/ir"
)

// Iterator yields the next record. ok is false once the source is exhausted.
type Iterator func() (rec ir.Record, ok bool, err error)

// ResultSet is a lazily buffered, rewindable sequence of records.
// It implements plan.Stream. It is not safe for concurrent use.
type ResultSet struct {
	buf    []ir.Record
	pos    int
	next   Iterator
	closer func() error
	done   bool
	err    error
}

// New returns a result set over records already in memory.
func New(records []ir.Record) *ResultSet {
	buf := make([]ir.Record, len(records))
	copy(buf, records)
	return &ResultSet{buf: buf, pos: -1, done: true}
}

// FromIterator returns a result set that pulls from it on demand. closer,
// if not nil, is called once the iterator is exhausted, fails, or the set
// is closed.
func FromIterator(it Iterator, closer func() error) *ResultSet {
	return &ResultSet{pos: -1, next: it, closer: closer}
}

// Next advances to the next record.
func (r *ResultSet) Next() bool {
	if r.pos+1 < len(r.buf) {
		r.pos++
		return true
	}
	if !r.pull() {
		return false
	}
	r.pos++
	return true
}

// Record returns the record at the current position.
func (r *ResultSet) Record() ir.Record {
	if r.pos < 0 || r.pos >= len(r.buf) {
		panic(fmt.Sprintf("resultset: Record called at position %d", r.pos))
	}
	return r.buf[r.pos]
}

// Replace swaps the record at the current position.
func (r *ResultSet) Replace(rec ir.Record) {
	if r.pos < 0 || r.pos >= len(r.buf) {
		panic(fmt.Sprintf("resultset: Replace called at position %d", r.pos))
	}
	r.buf[r.pos] = rec
}

// Err returns the first error the iterator reported.
func (r *ResultSet) Err() error {
	return r.err
}

// Rewind moves back before the first record. Buffered records are kept.
func (r *ResultSet) Rewind() {
	r.pos = -1
}

// Count drains the iterator and returns the number of records. The
// position is unchanged.
func (r *ResultSet) Count() int {
	for r.pull() {
	}
	return len(r.buf)
}

// Records drains the iterator and returns every record in order.
func (r *ResultSet) Records() ([]ir.Record, error) {
	n := r.Count()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]ir.Record, n)
	copy(out, r.buf)
	return out, nil
}

// Close releases the underlying iterator. Buffered records stay readable.
func (r *ResultSet) Close() error {
	return r.finish()
}

// pull appends one record from the iterator. It returns false when
// nothing was appended.
func (r *ResultSet) pull() bool {
	if r.done {
		return false
	}
	rec, ok, err := r.next()
	if err != nil {
		r.err = err
		_ = r.finish()
		return false
	}
	if !ok {
		if cerr := r.finish(); cerr != nil && r.err == nil {
			r.err = cerr
		}
		return false
	}
	r.buf = append(r.buf, rec)
	return true
}

func (r *ResultSet) finish() error {
	r.done = true
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c()
}
