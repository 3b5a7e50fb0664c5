// Package state implements the state-store capability: bucket-scoped
// key/value storage with an optional advisory TTL, backed by either an
// in-memory map (the default) or Redis.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/sandhost/capahost/internal/logger"
)

// Backend opens named buckets. Opening the same name twice returns a handle
// to the same underlying storage.
type Backend interface {
	Open(ctx context.Context, bucket string) (Bucket, error)
	Close() error
}

// Bucket is a single namespaced key/value store.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. ttl of zero means no expiry. Backends that
	// cannot honour TTL (the in-memory backend) accept and ignore it.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// InMemoryBackend is the default state-store backend: process-local,
// bucket-scoped maps, each guarded by its own mutex, with one more mutex
// guarding the map of buckets. Opening a bucket is
// idempotent, mirroring the reference implementation's
// `entry(name).or_default()` behaviour on its shared map.
//
// TTL is accepted but not enforced: there is no reaper and no passive
// expiry check on Get. Callers needing real expiry should configure the
// Redis backend instead.
type InMemoryBackend struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
}

// NewInMemoryBackend creates an empty in-memory state store.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{buckets: make(map[string]*memBucket)}
}

func (b *InMemoryBackend) Open(_ context.Context, bucket string) (Bucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	mb, ok := b.buckets[bucket]
	if !ok {
		mb = &memBucket{name: bucket, data: make(map[string][]byte)}
		b.buckets[bucket] = mb
	}
	return mb, nil
}

func (b *InMemoryBackend) Close() error { return nil }

type memBucket struct {
	mu   sync.Mutex
	name string
	data map[string][]byte
}

func (m *memBucket) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *memBucket) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	logger.StateStore().Debug().Str("bucket", m.name).Str("key", key).Msg("set")
	return nil
}

func (m *memBucket) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memBucket) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memBucket) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}
