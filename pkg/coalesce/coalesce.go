// Package coalesce collapses concurrent lookups of the same key into one call and
// remembers successful results until Clear is called.
package coalesce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 30 * time.Second

type Group[V any] struct {
	flight  singleflight.Group
	timeout time.Duration

	mu    sync.RWMutex
	cache map[string]V
}

// New returns a group whose lookups run for at most timeout, or DefaultTimeout when
// timeout is not positive.
func New[V any](timeout time.Duration) *Group[V] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Group[V]{timeout: timeout, cache: make(map[string]V)}
}

// Do returns the cached value for key, or runs fn once for all concurrent callers of
// the same key. Errors are not cached, so the next caller retries.
//
// fn is shared by every waiter, so it runs detached from the caller that started it
// and is bounded by the group timeout instead. A canceled caller stops waiting; the
// lookup keeps going for the others.
func (g *Group[V]) Do(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := g.Get(key); ok {
		return v, nil
	}

	ch := g.flight.DoChan(key, func() (any, error) {
		if v, ok := g.Get(key); ok {
			return v, nil
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		v, err := fn(runCtx)
		if err != nil {
			return v, err
		}
		g.mu.Lock()
		g.cache[key] = v
		g.mu.Unlock()
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(V)
		if !ok {
			return zero, fmt.Errorf("coalesce: unexpected result type %T", res.Val)
		}
		return v, nil
	}
}

func (g *Group[V]) Get(key string) (V, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.cache[key]
	return v, ok
}

func (g *Group[V]) Forget(key string) {
	g.flight.Forget(key)
	g.mu.Lock()
	delete(g.cache, key)
	g.mu.Unlock()
}

func (g *Group[V]) Clear() {
	g.mu.Lock()
	g.cache = make(map[string]V)
	g.mu.Unlock()
}

func (g *Group[V]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}
