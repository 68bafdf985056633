package newscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
	"github.com/captainnews-gr/captainnews-harvester/internal/sources"
	"github.com/captainnews-gr/captainnews-harvester/internal/storage"
	"github.com/captainnews-gr/captainnews-harvester/pkg/publishers"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrEmptyResult marks a rebuild in which no source produced an article
	// while a cached snapshot still exists. The cached value is kept.
	ErrEmptyResult = errors.New("aggregation produced no articles from any source")
	// ErrCacheWrite marks a rebuild whose result could not be stored.
	ErrCacheWrite = errors.New("cache write failed")
)

// Aggregator produces a fresh snapshot from the registry.
type Aggregator interface {
	Run(ctx context.Context, reg *sources.Registry) (domain.AggregateResult, error)
}

// Notifier is told about every snapshot written to the cache.
type Notifier interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Recorder receives cache protocol outcomes.
type Recorder interface {
	ObserveLookup(hit bool)
	ObserveRefresh(trigger string, ok bool, elapsed time.Duration)
}

// Options tune a Service.
type Options struct {
	Key      string
	TTL      time.Duration
	Notifier Notifier
	Recorder Recorder
	Log      logger.Logger
}

// Service implements the cache population protocol around a single key: a
// scheduled unconditional refresh and a lazy rebuild on miss.
type Service struct {
	agg      Aggregator
	store    storage.Store
	reg      *sources.Registry
	key      string
	ttl      time.Duration
	notifier Notifier
	recorder Recorder
	log      logger.Logger

	group singleflight.Group
}

// New wires the cache protocol.
func New(agg Aggregator, store storage.Store, reg *sources.Registry, opts Options) *Service {
	if opts.Key == "" {
		opts.Key = "news"
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Service{
		agg:      agg,
		store:    store,
		reg:      reg,
		key:      opts.Key,
		ttl:      opts.TTL,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		log:      logger.Ensure(opts.Log),
	}
}

// Key returns the cache key the service owns.
func (s *Service) Key() string { return s.key }

// Refresh rebuilds the snapshot unconditionally and overwrites the cache on
// success. A failed rebuild, or an empty one while a snapshot is cached, leaves
// the cached value untouched. An empty rebuild over an empty cache is written.
func (s *Service) Refresh(ctx context.Context) (domain.AggregateResult, error) {
	res, _, err := s.rebuild(ctx, publishers.TriggerScheduled)
	return res, err
}

// Snapshot rebuilds without touching the cache.
func (s *Service) Snapshot(ctx context.Context) (domain.AggregateResult, []byte, error) {
	res, err := s.agg.Run(ctx, s.reg)
	if err != nil {
		return domain.AggregateResult{}, nil, err
	}
	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return domain.AggregateResult{}, nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return res, payload, nil
}

// Latest returns the cached snapshot payload. On a miss, or when the store
// cannot be read, it rebuilds synchronously; concurrent misses share one
// rebuild. The rebuild is not cancelled when ctx is: only this caller stops
// waiting. A payload may accompany an ErrCacheWrite error.
func (s *Service) Latest(ctx context.Context) ([]byte, error) {
	payload, err := s.store.Get(ctx, s.key)
	if err == nil {
		s.observeLookup(true)
		return payload, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.log.WarnObj("cache read failed; rebuilding", "cache_error", map[string]any{
			"key":   s.key,
			"error": err.Error(),
		})
	}
	s.observeLookup(false)

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.key, func() (any, error) {
		_, payload, err := s.rebuild(detached, publishers.TriggerLazy)
		return payload, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		payload, _ := r.Val.([]byte)
		return payload, r.Err
	}
}

func (s *Service) rebuild(ctx context.Context, trigger string) (res domain.AggregateResult, payload []byte, err error) {
	start := time.Now()
	defer func() {
		if s.recorder != nil {
			s.recorder.ObserveRefresh(trigger, err == nil, time.Since(start))
		}
	}()

	res, err = s.agg.Run(ctx, s.reg)
	if err != nil {
		return domain.AggregateResult{}, nil, fmt.Errorf("aggregate: %w", err)
	}
	if res.SuccessfulSources == 0 {
		if !s.cacheEmpty(ctx) {
			s.log.WarnObj("rebuild produced no articles; cache left untouched", "cache_rebuild", map[string]any{
				"key":         s.key,
				"trigger":     trigger,
				"total_feeds": res.TotalSources,
			})
			return res, nil, ErrEmptyResult
		}
		s.log.WarnObj("rebuild produced no articles; caching empty snapshot", "cache_rebuild", map[string]any{
			"key":         s.key,
			"trigger":     trigger,
			"total_feeds": res.TotalSources,
		})
	}

	payload, err = json.Marshal(res)
	if err != nil {
		return res, nil, fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.store.Put(ctx, s.key, payload, s.ttl); err != nil {
		s.log.ErrorObj("cache write failed", "cache_error", map[string]any{
			"key":     s.key,
			"trigger": trigger,
			"error":   err.Error(),
		})
		return res, payload, fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}

	s.log.InfoObj("cache refreshed", "cache_rebuild", map[string]any{
		"key":              s.key,
		"trigger":          trigger,
		"successful_feeds": res.SuccessfulSources,
		"total_feeds":      res.TotalSources,
		"total_articles":   res.TotalArticles,
		"elapsed_ms":       time.Since(start).Milliseconds(),
	})
	s.notify(ctx, trigger, res)
	return res, payload, nil
}

// cacheEmpty reports whether the store holds no live value for the key. A read
// error counts as not empty so an unreadable snapshot is never replaced by an
// empty one.
func (s *Service) cacheEmpty(ctx context.Context) bool {
	_, err := s.store.Get(ctx, s.key)
	return errors.Is(err, storage.ErrNotFound)
}

func (s *Service) notify(ctx context.Context, trigger string, res domain.AggregateResult) {
	if s.notifier == nil {
		return
	}
	delivered, err := s.notifier.Publish(ctx, publishers.NewEvent(s.key, trigger, res))
	if err != nil {
		s.log.WarnObj("snapshot notification failed", "publish_error", map[string]any{
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

func (s *Service) observeLookup(hit bool) {
	if s.recorder != nil {
		s.recorder.ObserveLookup(hit)
	}
}
