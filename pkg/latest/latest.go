// Package latest runs keyed fetches where only the newest request per key may
// win. Starting a new load cancels the one in flight for the same key, and the
// superseded call gets ErrStale instead of its result.
package latest

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned to a caller whose load was superseded or cancelled.
var ErrStale = errors.New("latest: result superseded by a newer load")

type call struct {
	gen    uint64
	cancel context.CancelFunc
}

// Loader is safe for concurrent use. The zero value is not usable; use New.
type Loader[K comparable, V any] struct {
	mu       sync.Mutex
	gens     map[K]uint64
	inflight map[K]*call
	values   map[K]V
}

func New[K comparable, V any]() *Loader[K, V] {
	return &Loader[K, V]{
		gens:     make(map[K]uint64),
		inflight: make(map[K]*call),
		values:   make(map[K]V),
	}
}

// Load runs fetch for key. If another Load or Cancel for the same key starts
// before fetch returns, this call's result is discarded and ErrStale returned.
func (l *Loader[K, V]) Load(ctx context.Context, key K, fetch func(ctx context.Context) (V, error)) (V, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if prev, ok := l.inflight[key]; ok {
		prev.cancel()
	}
	l.gens[key]++
	c := &call{gen: l.gens[key], cancel: cancel}
	l.inflight[key] = c
	l.mu.Unlock()

	v, err := fetch(fetchCtx)

	l.mu.Lock()
	defer l.mu.Unlock()

	var zero V
	if l.inflight[key] != c {
		return zero, ErrStale
	}
	delete(l.inflight, key)
	if err != nil {
		return zero, err
	}
	l.values[key] = v
	return v, nil
}

// Cancel aborts the in-flight load for key, if any; its result is discarded.
func (l *Loader[K, V]) Cancel(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.inflight[key]; ok {
		prev.cancel()
		delete(l.inflight, key)
		l.gens[key]++
	}
}

// Latest returns the last committed value for key.
func (l *Loader[K, V]) Latest(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.values[key]
	return v, ok
}

// Generation reports how many loads or cancellations key has seen.
func (l *Loader[K, V]) Generation(key K) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[key]
}

// Forget drops everything held for key. An in-flight load is cancelled.
func (l *Loader[K, V]) Forget(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.inflight[key]; ok {
		prev.cancel()
	}
	delete(l.inflight, key)
	delete(l.values, key)
	delete(l.gens, key)
}
