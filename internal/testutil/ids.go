// Package testutil provides deterministic id sources for tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates ids of the form "<prefix>-0001", "<prefix>-0002", ...
//
// The same test with a fresh SequenceIDs produces identical journals, which
// keeps record ids stable across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix defaults to "rec".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "rec"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Count returns how many ids have been generated.
func (g *SequenceIDs) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. The next Generate returns "<prefix>-0001".
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// FixedID returns the same id every time. Used to provoke id collisions.
type FixedID string

// Generate returns the fixed id.
func (f FixedID) Generate() string {
	return string(f)
}
