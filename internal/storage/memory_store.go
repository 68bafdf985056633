package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// memoryStore is a process-local LRU; contents are lost on restart.
type memoryStore struct {
	mu         sync.Mutex
	cache      *lru.Cache[string, memoryEntry]
	defaultTTL time.Duration
	now        func() time.Time
}

func newMemoryStore(opts Options) (Store, error) {
	cache, err := lru.New[string, memoryEntry](opts.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("init memory cache: %w", err)
	}
	return &memoryStore{cache: cache, defaultTTL: opts.DefaultTTL, now: opts.Now}, nil
}

func (m *memoryStore) Close() error {
	m.cache.Purge()
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expires.After(m.now()) {
		m.cache.Remove(key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *memoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Add(key, memoryEntry{
		value:   append([]byte(nil), value...),
		expires: m.now().Add(ttlOrDefault(ttl, m.defaultTTL)),
	})
	return nil
}
