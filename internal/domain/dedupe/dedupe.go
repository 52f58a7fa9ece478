// Package dedupe tracks identities already seen during a load so duplicate
// (event, participant) rows can be detected or dropped.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys.
type Deduper[K comparable] interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key K) bool

	// Unrecord forgets key so a later SeenAndRecord reports it as new.
	Unrecord(ctx context.Context, key K)

	// Duplicates reports how many SeenAndRecord calls hit an existing key.
	Duplicates() int64

	Size() int64
}

// inMemoryDeduper implements Deduper with a mutex-guarded set.
type inMemoryDeduper[K comparable] struct {
	mu         sync.Mutex
	seen       map[K]struct{}
	size       atomic.Int64
	duplicates atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper[K comparable](opts ...Option) Deduper[K] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &inMemoryDeduper[K]{seen: make(map[K]struct{}, o.capacity)}
}

func (d *inMemoryDeduper[K]) SeenAndRecord(_ context.Context, key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		d.duplicates.Add(1)
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper[K]) Unrecord(_ context.Context, key K) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper[K]) Duplicates() int64 {
	return d.duplicates.Load()
}

func (d *inMemoryDeduper[K]) Size() int64 {
	return d.size.Load()
}
