package schema

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/asaidimu/go-daybed/utils"
)

// DefaultCacheSize is the number of compiled validators kept when no size is configured.
const DefaultCacheSize = 256

// cacheEntry pairs a compiled validator with the hash of the stored bytes it was
// compiled from.
type cacheEntry struct {
	source    string
	validator *Validator
}

// Cache keeps compiled validators per model name. An entry is only served when
// the hash of the stored definition matches the one it was compiled from, so a
// validator for a superseded definition is never applied even if an
// invalidation was missed.
type Cache struct {
	compiler *Compiler
	entries  *lru.Cache
}

// NewCache creates a cache holding at most size validators.
func NewCache(compiler *Compiler, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("could not initialize validator cache: %w", err)
	}
	return &Cache{compiler: compiler, entries: entries}, nil
}

// Get returns the validator for model compiled from the stored definition raw,
// compiling and caching it when no matching entry exists. Issues are returned
// when the stored definition no longer satisfies the meta-schema.
func (c *Cache) Get(model string, raw []byte) (*Validator, []Issue) {
	source := utils.ContentHash(raw)
	if cached, ok := c.entries.Get(model); ok {
		if entry := cached.(cacheEntry); entry.source == source {
			return entry.validator, nil
		}
	}

	validator, issues := c.compiler.Compile(raw)
	if len(issues) > 0 {
		c.entries.Remove(model)
		return nil, issues
	}
	c.entries.Add(model, cacheEntry{source: source, validator: validator})
	return validator, nil
}

// Store records an already compiled validator for model, keyed by the stored
// bytes it will be read back as.
func (c *Cache) Store(model string, raw []byte, validator *Validator) {
	c.entries.Add(model, cacheEntry{source: utils.ContentHash(raw), validator: validator})
}

// Invalidate drops the cached validator for model.
func (c *Cache) Invalidate(model string) {
	c.entries.Remove(model)
}

// Len returns the number of cached validators.
func (c *Cache) Len() int {
	return c.entries.Len()
}
