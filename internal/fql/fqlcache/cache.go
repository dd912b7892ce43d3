// Package fqlcache memoizes parsed subscription trees.
//
// Parsing is deterministic, so a tree produced for a given text can be reused
// for every later event. Trees are shared between callers and must be treated
// as read-only. Failed parses are cached too, as *fql.ErrorNode values.
package fqlcache

import (
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/lru"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
)

// DefaultSize is used when New is given a non-positive size.
const DefaultSize = 1024

// Cache is a bounded LRU in front of an fql.Parser. It implements fql.Parser.
type Cache struct {
	mu    sync.Mutex
	items *lru.Cache
	next  fql.Parser

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// New creates a cache holding at most size trees. A nil next parser falls
// back to fql.DefaultParser.
func New(size int, next fql.Parser) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if next == nil {
		next = fql.DefaultParser
	}
	return &Cache{
		items: lru.New(size),
		next:  next,
	}
}

// Parse returns the cached tree for text, parsing and storing it on a miss.
// Concurrent misses for the same text may both parse; the last one stored wins
// and both results are equivalent.
func (c *Cache) Parse(text string) fql.Node {
	c.mu.Lock()
	v, ok := c.items.Get(text)
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
		return v.(fql.Node)
	}

	c.misses.Add(1)
	n := c.next.Parse(text)

	c.mu.Lock()
	c.items.Add(text, n)
	c.mu.Unlock()
	return n
}

// Purge drops every cached tree. Counters are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.items.Clear()
	c.mu.Unlock()
}

// Stats reports hit and miss counts and the current number of entries.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := c.items.Len()
	c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}
