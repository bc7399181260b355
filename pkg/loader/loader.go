package loader

import (
	"context"
	"sync"

	"github.com/docsage-ai/docsage/pkg/common"

	"golang.org/x/sync/singleflight"
)

// TextUnit is one extracted piece of a file with its positional metadata.
// Page and Row are 1-based; zero means the position is unknown or does
// not apply to the format.
type TextUnit struct {
	Text   string
	Page   int
	Row    int
	Source string
}

// Loader extracts the ordered text units of one file category. A loader
// that cannot parse its input returns an error; the pipeline records
// the failure and skips the file instead of retrying, since the bytes
// will not parse differently next time.
type Loader interface {
	Load(ctx context.Context, doc common.Document, data []byte) ([]TextUnit, error)
}

// CacheInvalidator is implemented by loaders that cache per-file
// results, such as Cached.
type CacheInvalidator interface {
	Invalidate(fileID string)
}

// Registry maps a detected file category to the loader responsible for it.
type Registry map[common.FileCategory]Loader

// For returns the loader for the given category, if one is registered.
func (r Registry) For(category common.FileCategory) (Loader, bool) {
	l, ok := r[category]
	return l, ok
}

// Invalidate drops any cached units for the file across all registered
// loaders, so a re-ingest or delete never serves stale content.
func (r Registry) Invalidate(fileID string) {
	for _, l := range r {
		if c, ok := l.(CacheInvalidator); ok {
			c.Invalidate(fileID)
		}
	}
}

// Cached wraps a Loader with a per-file result cache. Concurrent loads of
// the same file collapse into one underlying call via singleflight, so a
// file queued twice is only parsed once.
type Cached struct {
	inner Loader

	cache   map[string][]TextUnit
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewCached wraps inner with load deduplication keyed by file id.
func NewCached(inner Loader) *Cached {
	return &Cached{
		inner: inner,
		cache: make(map[string][]TextUnit),
	}
}

// Load returns the cached units for doc.FileID or delegates to the
// wrapped loader. Errors are not cached so a transient failure can be
// retried on the next attempt.
func (c *Cached) Load(ctx context.Context, doc common.Document, data []byte) ([]TextUnit, error) {
	key := doc.FileID

	c.cacheMu.RLock()
	if units, ok := c.cache[key]; ok {
		c.cacheMu.RUnlock()
		return units, nil
	}
	c.cacheMu.RUnlock()

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.cacheMu.RLock()
		if units, ok := c.cache[key]; ok {
			c.cacheMu.RUnlock()
			return units, nil
		}
		c.cacheMu.RUnlock()

		units, err := c.inner.Load(ctx, doc, data)
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.cache[key] = units
		c.cacheMu.Unlock()

		return units, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]TextUnit), nil
}

// Invalidate drops the cached units for a file, used on re-ingest and
// delete so stale content is never served.
func (c *Cached) Invalidate(fileID string) {
	c.cacheMu.Lock()
	delete(c.cache, fileID)
	c.cacheMu.Unlock()
}
