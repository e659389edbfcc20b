package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/core"
)

// Backend names accepted in configuration.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New builds the result cache selected by cfg.Backend. It returns nil for the
// "none" backend.
func New(ctx context.Context, cfg config.CacheConfig) (core.ResultCache, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(cfg.TTL, cfg.MaxEntries), nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, cfg.RedisURL, cfg.TTL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// Key identifies a result by the digest of the input and the target size.
func Key(payload []byte, params core.Params) string {
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%dx%d", hex.EncodeToString(sum[:]), params.Width, params.Height)
}

// Processor wraps an ImageProcessor with a result cache. It runs inside the
// worker lane, so cache hits still respect queue order.
type Processor struct {
	next   core.ImageProcessor
	cache  core.ResultCache
	logger *slog.Logger
}

// NewProcessor decorates next with cache. Cache failures are logged and
// treated as misses.
func NewProcessor(next core.ImageProcessor, cache core.ResultCache, logger *slog.Logger) *Processor {
	return &Processor{next: next, cache: cache, logger: logger}
}

// Process returns a cached result when available, otherwise delegates and
// stores the successful result.
func (p *Processor) Process(ctx context.Context, payload []byte, params core.Params) ([]byte, error) {
	key := Key(payload, params)

	data, ok, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		p.logger.Warn("result cache lookup failed", "error", err)
	case ok:
		p.logger.Debug("result cache hit", "key", key)
		return data, nil
	}

	data, err = p.next.Process(ctx, payload, params)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, data); err != nil {
		p.logger.Warn("failed to store resize result", "error", err)
	}
	return data, nil
}
