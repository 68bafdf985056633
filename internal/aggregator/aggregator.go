package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
	"github.com/captainnews-gr/captainnews-harvester/internal/extract"
	"github.com/captainnews-gr/captainnews-harvester/internal/fetcher"
	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
	"github.com/captainnews-gr/captainnews-harvester/internal/sources"
	conciter "github.com/sourcegraph/conc/iter"
)

// FeedFetcher downloads one feed document.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Enricher fills in missing article metadata after ranking.
type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// Recorder receives per-source and per-category outcomes.
type Recorder interface {
	ObserveFetch(source string, ok bool, elapsed time.Duration)
	ObserveCategory(category string, articles int)
}

// Options tune a Service.
type Options struct {
	Limit      int
	Retries    int
	RetryDelay time.Duration
	Enricher   Enricher
	Recorder   Recorder
	Now        func() time.Time
}

// Service runs the fetch → extract → reduce pipeline over a registry.
type Service struct {
	fetcher  FeedFetcher
	enricher Enricher
	recorder Recorder
	log      logger.Logger

	limit      int
	retries    int
	retryDelay time.Duration
	now        func() time.Time
}

// NewService wires an orchestrator around the given fetcher.
func NewService(f FeedFetcher, log logger.Logger, opts Options) *Service {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		fetcher:    f,
		enricher:   opts.Enricher,
		recorder:   opts.Recorder,
		log:        logger.Ensure(log),
		limit:      opts.Limit,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		now:        opts.Now,
	}
}

// sourceOutcome is the captured result of one feed.
type sourceOutcome struct {
	url      string
	source   string
	articles []domain.Article
	err      error
}

// Run aggregates every category of reg. Individual feed failures are logged and
// contribute zero articles; only an invalid registry fails the run.
func (s *Service) Run(ctx context.Context, reg *sources.Registry) (domain.AggregateResult, error) {
	if s == nil || s.fetcher == nil {
		return domain.AggregateResult{}, fmt.Errorf("aggregator service is not initialized")
	}
	if err := reg.Validate(); err != nil {
		return domain.AggregateResult{}, err
	}

	start := s.now().UTC()
	resolver := reg.Resolver()
	categories := reg.Categories()

	result := domain.AggregateResult{
		GeneratedAt: start,
		Categories:  make(map[string]domain.CategorySummary, len(categories)),
		Order:       make([]string, 0, len(categories)),
	}

	for _, cat := range categories {
		mapper := conciter.Mapper[string, sourceOutcome]{MaxGoroutines: len(cat.Feeds)}
		outcomes := mapper.Map(cat.Feeds, func(feed *string) sourceOutcome {
			return s.collect(ctx, resolver, *feed)
		})

		var merged []domain.Article
		for _, out := range outcomes {
			result.TotalSources++
			if out.err != nil {
				s.log.WarnObj("feed fetch failed", "feed_error", map[string]any{
					"category": cat.Key,
					"url":      out.url,
					"source":   out.source,
					"error":    out.err.Error(),
				})
				continue
			}
			if len(out.articles) > 0 {
				result.SuccessfulSources++
			}
			merged = append(merged, out.articles...)
		}

		ranked := Reduce(merged, s.limit)
		if s.enricher != nil && len(ranked) > 0 {
			ranked = s.enricher.Enrich(ctx, ranked)
		}
		if s.recorder != nil {
			s.recorder.ObserveCategory(cat.Key, len(ranked))
		}

		result.Categories[cat.Key] = domain.CategorySummary{
			Title:    cat.Title,
			Color:    cat.Color,
			Articles: ranked,
		}
		result.Order = append(result.Order, cat.Key)
		result.TotalArticles += len(ranked)

		s.log.DebugObj("category aggregated", "category_result", map[string]any{
			"category":  cat.Key,
			"sources":   len(cat.Feeds),
			"collected": len(merged),
			"kept":      len(ranked),
		})
	}

	s.log.InfoObj("aggregation completed", "aggregate_meta", map[string]any{
		"successful_feeds": result.SuccessfulSources,
		"total_feeds":      result.TotalSources,
		"total_articles":   result.TotalArticles,
		"elapsed_ms":       s.now().Sub(start).Milliseconds(),
	})
	return result, nil
}

// collect fetches and extracts one feed. Panics are confined to the feed.
func (s *Service) collect(ctx context.Context, resolver *sources.Resolver, url string) (out sourceOutcome) {
	out = sourceOutcome{url: url, source: resolver.Resolve(url)}
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.articles = nil
			out.err = fmt.Errorf("feed %s panicked: %v", url, r)
		}
		if s.recorder != nil {
			s.recorder.ObserveFetch(out.source, out.err == nil, time.Since(started))
		}
	}()

	body, err := s.fetch(ctx, url)
	if err != nil {
		out.err = err
		return out
	}
	out.articles = extract.Collect(body, out.source, s.now().UTC())
	return out
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	if s.retries == 0 {
		return s.fetcher.Fetch(ctx, url)
	}

	var body []byte
	err := retry.Do(
		func() error {
			b, err := s.fetcher.Fetch(ctx, url)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Attempts(uint(s.retries+1)),
		retry.Delay(s.retryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(fetcher.Retryable),
	)
	return body, err
}
