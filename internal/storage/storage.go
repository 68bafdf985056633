package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Package storage provides the key/value cache backends behind the news cache.

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache entry not found")

// Store is a TTL key/value cache. Put overwrites unconditionally.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MemoryEntries   int
	Now             func() time.Time
}

// Backend names accepted by NewStore.
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"
)

const (
	defaultTTL             = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
	defaultMemoryEntries   = 16
)

// NewStore creates the configured storage backend. path is ignored by the
// memory and none backends.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeMemory, "lru":
		return newMemoryStore(opts)
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case TypeSQLite:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.MemoryEntries <= 0 {
		opts.MemoryEntries = defaultMemoryEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

func ttlOrDefault(ttl, def time.Duration) time.Duration {
	if ttl <= 0 {
		return def
	}
	return ttl
}

type noopStore struct{}

func (noopStore) Close() error                                             { return nil }
func (noopStore) Get(context.Context, string) ([]byte, error)              { return nil, ErrNotFound }
func (noopStore) Put(context.Context, string, []byte, time.Duration) error { return nil }
