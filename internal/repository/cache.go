package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"josekiminer/internal/adapters"
	"josekiminer/internal/apperrors"
	"josekiminer/internal/domain"
)

// AnalysisCache keeps engine responses in Redis keyed by board fingerprint.
// Joseki trees transpose heavily and reruns revisit the same positions, so a
// cache hit saves a full engine search.
type AnalysisCache struct {
	redis *adapters.AdapterRedis
	ttl   time.Duration
	log   *zap.SugaredLogger
}

func NewAnalysisCache(redis *adapters.AdapterRedis, ttl time.Duration, log *zap.SugaredLogger) *AnalysisCache {
	return &AnalysisCache{
		redis: redis,
		ttl:   ttl,
		log:   log,
	}
}

func cacheKey(moves []domain.Move, maxVisits int) string {
	return fmt.Sprintf("joseki:analysis:%016x:%d", domain.Fingerprint(moves), maxVisits)
}

func (c *AnalysisCache) Get(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error) {
	val, err := c.redis.GetClient().Get(ctx, cacheKey(moves, maxVisits)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var resp domain.AnalysisResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, fmt.Errorf("corrupt cached analysis: %w", err)
	}
	return &resp, nil
}

func (c *AnalysisCache) Put(ctx context.Context, moves []domain.Move, maxVisits int, resp *domain.AnalysisResponse) error {
	bytes, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.redis.GetClient().Set(ctx, cacheKey(moves, maxVisits), bytes, c.ttl).Err()
}

type analyzer interface {
	Analyze(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error)
}

type responseCache interface {
	Get(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error)
	Put(ctx context.Context, moves []domain.Move, maxVisits int, resp *domain.AnalysisResponse) error
}

// CachedEvaluator wraps an engine with the analysis cache. Cache failures are
// logged and fall through to the engine.
type CachedEvaluator struct {
	engine analyzer
	cache  responseCache
	log    *zap.SugaredLogger
}

func NewCachedEvaluator(engine analyzer, cache responseCache, log *zap.SugaredLogger) *CachedEvaluator {
	return &CachedEvaluator{
		engine: engine,
		cache:  cache,
		log:    log,
	}
}

func (e *CachedEvaluator) Analyze(ctx context.Context, moves []domain.Move, maxVisits int) (*domain.AnalysisResponse, error) {
	cached, err := e.cache.Get(ctx, moves, maxVisits)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrCacheMiss) {
		e.log.Warnw("analysis cache read failed", "error", err)
	}

	resp, err := e.engine.Analyze(ctx, moves, maxVisits)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Put(ctx, moves, maxVisits, resp); err != nil {
		e.log.Warnw("analysis cache write failed", "error", err)
	}
	return resp, nil
}
