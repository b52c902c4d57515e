package matcher

import "sync"

type cacheKey struct {
	pattern string
	opts    Options
}

// Cache memoizes compiled matchers by pattern and options.
// It is meant to live for one search invocation.
type Cache struct {
	mu       sync.Mutex
	matchers map[cacheKey]*Matcher
}

// NewCache creates an empty matcher cache.
func NewCache() *Cache {
	return &Cache{matchers: make(map[cacheKey]*Matcher)}
}

// Get returns the cached matcher for pattern and opts, compiling it on first use.
func (c *Cache) Get(pattern string, opts Options) (*Matcher, error) {
	key := cacheKey{pattern: pattern, opts: opts}

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.matchers[key]; ok {
		return m, nil
	}
	m, err := New(pattern, opts)
	if err != nil {
		return nil, err
	}
	c.matchers[key] = m
	return m, nil
}

// Len returns the number of compiled matchers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matchers)
}
