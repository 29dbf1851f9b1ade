package testutil

import (
	"fmt"
	"sync"
)

// BaseMillis is the fixed epoch all deterministic timestamps count from.
const BaseMillis = int64(1700000000000)

// DeterministicClock is a thread-safe logical clock for tests. Each
// call to Next returns the next millisecond after a fixed base, so
// timestamps are stable across runs and usable in golden files.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next() returns
// BaseMillis + 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next timestamp in unix millis.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return BaseMillis + c.seq
}

// Current returns the last issued timestamp without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BaseMillis + c.seq
}

// Reset rewinds the clock for test reuse. After Reset the next call to
// Next returns BaseMillis + 1 again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// SequentialIDs returns an id generator minting "prefix-1", "prefix-2",
// and so on. Safe for concurrent use.
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	var n int
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
