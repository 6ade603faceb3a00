package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable checkpoint ids for tests, replacing
// the random generator so golden files and assertions stay stable.
//
// Safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequentialIDs creates a generator. An empty prefix defaults to
// "test-ck".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "test-ck"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id, starting at <prefix>-000001.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%06d", g.prefix, g.next)
}
