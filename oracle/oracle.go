// Package oracle adapts an external travel-cost provider behind a
// read-through cache. All other packages obtain travel costs only
// through the Adapter; provider failures surface as ErrOracleUnavailable
// and are never folded into a zero or infinite cost.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"appointment-dispatch/errors"
	"appointment-dispatch/metrics"
	"appointment-dispatch/models"

	"golang.org/x/time/rate"
)

// Provider computes the travel cost between two points. Implementations
// perform the (possibly network-bound) lookup and must honor ctx.
type Provider interface {
	Cost(ctx context.Context, from, to models.Coordinate) (float64, error)
}

// Config tunes the adapter around a provider.
type Config struct {
	// Timeout bounds each provider call. Zero means no per-call timeout.
	Timeout time.Duration
	// RatePerSecond throttles provider calls against quota. Zero means
	// unlimited. Burst defaults to 1 when a rate is set.
	RatePerSecond float64
	Burst         int
	// OrderedCache keeps (from, to) distinct from (to, from) for
	// asymmetric providers. Default caches pairs unordered.
	OrderedCache bool
}

// Adapter is the process-scoped caching front of a Provider. The cache
// starts empty at construction, i.e. at run start.
type Adapter struct {
	provider Provider
	cfg      Config
	limiter  *rate.Limiter

	mu    sync.Mutex
	cache map[pairKey]float64
}

type pairKey struct {
	a, b models.Coordinate
}

// NewAdapter wraps provider with a fresh cache.
func NewAdapter(provider Provider, cfg Config) *Adapter {
	a := &Adapter{
		provider: provider,
		cfg:      cfg,
		cache:    make(map[pairKey]float64),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return a
}

// Cost returns the travel cost from -> to, serving repeated pairs from
// the cache. Concurrent callers are safe; cache writes are serialized.
func (a *Adapter) Cost(ctx context.Context, from, to models.Coordinate) (float64, error) {
	key := a.key(from, to)

	a.mu.Lock()
	if v, ok := a.cache[key]; ok {
		a.mu.Unlock()
		metrics.OracleCacheHitsTotal.Inc()
		return v, nil
	}
	a.mu.Unlock()

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			metrics.OracleErrorsTotal.Inc()
			return 0, fmt.Errorf("%w: %v", errors.ErrOracleUnavailable, err)
		}
	}

	callCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	metrics.OracleCallsTotal.Inc()
	v, err := a.provider.Cost(callCtx, from, to)
	if err != nil {
		metrics.OracleErrorsTotal.Inc()
		return 0, fmt.Errorf("%w: %v", errors.ErrOracleUnavailable, err)
	}

	a.mu.Lock()
	a.cache[key] = v
	a.mu.Unlock()
	return v, nil
}

// CacheSize reports the number of distinct pairs cached so far.
func (a *Adapter) CacheSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cache)
}

func (a *Adapter) key(from, to models.Coordinate) pairKey {
	if a.cfg.OrderedCache {
		return pairKey{from, to}
	}
	if to.Lat < from.Lat || (to.Lat == from.Lat && to.Lng < from.Lng) {
		from, to = to, from
	}
	return pairKey{from, to}
}
