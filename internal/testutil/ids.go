package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs hands out deterministic query ids: "<prefix>-1", "<prefix>-2", ...
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceIDs creates a generator. An empty prefix becomes "q".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "q"
	}
	return &SequenceIDs{prefix: prefix}
}

// Next returns the next id. Pass the method value as a resource.IDGenerator.
func (g *SequenceIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
