package llm

import (
	"context"
	"log/slog"
	"time"
)

// Gateway fronts every model call with the response cache and the rate
// limiter. A cache hit returns without invoking the provider and without
// charging the limiter. The gateway never retries; that policy belongs to
// the orchestrator.
type Gateway struct {
	registry *Registry
	cache    *Cache
	limiter  *RateLimiter
	logger   *slog.Logger
}

// Result is a gateway response plus whether it was served from cache.
type Result struct {
	Response
	Cached bool
}

// NewGateway assembles a gateway from its parts.
func NewGateway(registry *Registry, cache *Cache, limiter *RateLimiter, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		cache:    cache,
		limiter:  limiter,
		logger:   logger.With("component", "llm_gateway"),
	}
}

// Complete serves one request on behalf of the named pipeline component.
func (g *Gateway) Complete(ctx context.Context, component string, req Request) (Result, error) {
	log := g.logger.With("pipeline_component", component, "provider", req.Model.Provider, "model", req.Model.Name)

	if resp, ok := g.cache.Get(req); ok {
		log.Debug("Cache hit")
		return Result{Response: resp, Cached: true}, nil
	}

	provider, err := g.registry.Get(req.Model.Provider)
	if err != nil {
		return Result{}, err
	}

	if err := g.limiter.Acquire(ctx, req.TokenCost()); err != nil {
		return Result{}, err
	}

	start := time.Now()
	resp, err := provider.Complete(ctx, req)
	if err != nil {
		log.Warn("Provider call failed", "error", err)
		return Result{}, err
	}
	log.Debug("Provider call completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.Total)

	g.cache.Put(req, resp)
	return Result{Response: resp}, nil
}
