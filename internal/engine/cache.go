package engine

import (
	"context"
	"encoding/json"
	"time"
)

// Result lists are cached keyed by model version, so a swap naturally
// invalidates every cached entry from the previous generation.
const cacheTTL = 15 * time.Minute

func (e *Engine) cachedList(ctx context.Context, key string) ([]ScoredItem, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, err := e.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var items []ScoredItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (e *Engine) cacheList(ctx context.Context, key string, items []ScoredItem) {
	if e.cache == nil || len(items) == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		e.logger.WithError(err).Debug("failed to cache result list")
	}
}
