package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deal-underwriter/domain"
	"deal-underwriter/repository"
)

// ResultsInvalidator drops a deal's cached results view.
type ResultsInvalidator interface {
	InvalidateResults(ctx context.Context, dealID string)
}

// resultsCache is the read-through cache of deal result views. Every
// invalidation bumps the deal's generation, and a view is stored only if its
// generation is unchanged since the build started.
type resultsCache struct {
	cache repository.CacheRepository
	ttl   time.Duration
	log   zerolog.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

func newResultsCache(cache repository.CacheRepository, ttl time.Duration, log zerolog.Logger) *resultsCache {
	return &resultsCache{
		cache:       cache,
		ttl:         ttl,
		log:         log,
		generations: make(map[string]uint64),
	}
}

func (c *resultsCache) get(ctx context.Context, dealID string) (domain.DealResults, bool) {
	cached, ok := c.cache.Get(ctx, resultsCacheKey(dealID))
	if !ok {
		return domain.DealResults{}, false
	}

	var view domain.DealResults
	if err := json.Unmarshal([]byte(cached), &view); err != nil {
		c.log.Warn().Str("deal_id", dealID).Msg("discarding undecodable cached results")
		return domain.DealResults{}, false
	}
	return view, true
}

func (c *resultsCache) generation(dealID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[dealID]
}

// store caches view unless the deal was invalidated after gen was read.
func (c *resultsCache) store(ctx context.Context, dealID string, gen uint64, view domain.DealResults) {
	data, err := json.Marshal(view)
	if err != nil {
		c.log.Warn().Err(err).Str("deal_id", dealID).Msg("failed to encode deal results")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[dealID] != gen {
		return
	}
	if err := c.cache.Set(ctx, resultsCacheKey(dealID), string(data), c.ttl); err != nil {
		c.log.Warn().Err(err).Str("deal_id", dealID).Msg("failed to cache deal results")
	}
}

func (c *resultsCache) invalidate(ctx context.Context, dealID string) {
	c.mu.Lock()
	c.generations[dealID]++
	c.mu.Unlock()

	if err := c.cache.Delete(ctx, resultsCacheKey(dealID)); err != nil {
		c.log.Warn().Err(err).Str("deal_id", dealID).Msg("failed to invalidate cached results")
	}
}

func resultsCacheKey(dealID string) string {
	return fmt.Sprintf(resultsCacheKeyFormat, dealID)
}
