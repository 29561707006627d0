package evo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"grammateus/internal/tree"
)

// Evaluator is the external fitness function. The engine treats it as
// opaque: a returned error marks the individual with sentinel worst fitness
// and never aborts the run.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, t *tree.Node) (Fitness, error)
}

type funcEvaluator struct {
	name string
	fn   func(ctx context.Context, t *tree.Node) (Fitness, error)
}

// EvaluatorFunc adapts a plain function into an Evaluator.
func EvaluatorFunc(name string, fn func(ctx context.Context, t *tree.Node) (Fitness, error)) Evaluator {
	return &funcEvaluator{name: name, fn: fn}
}

func (e *funcEvaluator) Name() string { return e.name }

func (e *funcEvaluator) Evaluate(ctx context.Context, t *tree.Node) (Fitness, error) {
	return e.fn(ctx, t)
}

// CachingEvaluator memoizes results by structural fingerprint. Identical
// derivations produced across generations (elites, crossover echoes) skip
// the wrapped evaluator entirely. Failures are not cached so a flaky
// evaluator gets retried on the next encounter.
type CachingEvaluator struct {
	inner Evaluator
	cache *gocache.Cache

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachingEvaluator(inner Evaluator, ttl time.Duration) (*CachingEvaluator, error) {
	if inner == nil {
		return nil, fmt.Errorf("caching evaluator requires a wrapped evaluator")
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &CachingEvaluator{
		inner: inner,
		cache: gocache.New(ttl, 10*time.Minute),
	}, nil
}

func (e *CachingEvaluator) Name() string {
	return e.inner.Name() + "+cache"
}

func (e *CachingEvaluator) Evaluate(ctx context.Context, t *tree.Node) (Fitness, error) {
	key := t.Fingerprint()
	if cached, ok := e.cache.Get(key); ok {
		e.hits.Add(1)
		return cached.(Fitness), nil
	}
	f, err := e.inner.Evaluate(ctx, t)
	if err != nil {
		return Worst(), err
	}
	e.misses.Add(1)
	e.cache.Set(key, f, gocache.DefaultExpiration)
	return f, nil
}

// Stats reports cache hits and misses since construction.
func (e *CachingEvaluator) Stats() (hits, misses int64) {
	return e.hits.Load(), e.misses.Load()
}
