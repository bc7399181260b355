// Package answercache stores generated answers and refusals in redis,
// keyed by scope, folder, file and normalized query, so repeated
// questions skip retrieval and generation entirely.
package answercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "answer"

// DefaultTTL bounds how long a cached answer stays valid.
const DefaultTTL = 24 * time.Hour

// Entry is one cached outcome. Refusals are cached too, flagged with
// NoAnswer, so unanswerable queries do not repeat the expensive path.
type Entry struct {
	Answer         string            `json:"answer"`
	Citations      []common.Citation `json:"citations,omitempty"`
	Confidence     float64           `json:"confidence"`
	RewrittenQuery string            `json:"rewritten_query,omitempty"`
	NoAnswer       bool              `json:"no_answer,omitempty"`
	GraphEnhanced  bool              `json:"graph_enhanced,omitempty"`
	CachedAt       time.Time         `json:"cached_at"`
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache over the given redis client. A nil client
// disables caching; every method becomes a no-op miss.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Key builds the namespaced cache key. The query is folded so casing
// and spacing variants of the same question share one entry.
func Key(scope common.Scope, query string) string {
	return strings.Join([]string{
		keyPrefix,
		string(scope.Level),
		scope.OwnerID,
		scope.FolderID,
		scope.FileID,
		util.FoldKey(query),
	}, "|")
}

// Get returns the cached entry for the key, or a miss. Backend errors
// are logged and reported as misses; the cache never fails a query.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	if c == nil || c.client == nil {
		return Entry{}, false
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("[Cache] read failed", "error", err)
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Warn("[Cache] corrupt entry dropped", "key", key, "error", err)
		return Entry{}, false
	}
	return entry, true
}

// Set stores an entry under the key. Concurrent writers racing on the
// same key is benign; last write wins and both values are valid.
func (c *Cache) Set(ctx context.Context, key string, entry Entry) error {
	if c == nil || c.client == nil {
		return nil
	}

	entry.CachedAt = time.Now().UTC()
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// InvalidateFile drops every cached answer whose key references the
// file, called when the file is deleted or re-ingested.
func (c *Cache) InvalidateFile(ctx context.Context, fileID string) error {
	if c == nil || c.client == nil || fileID == "" {
		return nil
	}

	pattern := keyPrefix + "|*" + fileID + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}

	logger.Debug("[Cache] invalidated entries", "file_id", fileID, "count", len(keys))
	return nil
}
