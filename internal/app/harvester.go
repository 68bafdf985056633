package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/captainnews-gr/captainnews-harvester/internal/aggregator"
	"github.com/captainnews-gr/captainnews-harvester/internal/config"
	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
	"github.com/captainnews-gr/captainnews-harvester/internal/enricher"
	"github.com/captainnews-gr/captainnews-harvester/internal/fetcher"
	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
	"github.com/captainnews-gr/captainnews-harvester/internal/metrics"
	"github.com/captainnews-gr/captainnews-harvester/internal/newscache"
	"github.com/captainnews-gr/captainnews-harvester/internal/scheduler"
	"github.com/captainnews-gr/captainnews-harvester/internal/server"
	"github.com/captainnews-gr/captainnews-harvester/internal/sources"
	"github.com/captainnews-gr/captainnews-harvester/internal/storage"
	"github.com/captainnews-gr/captainnews-harvester/pkg/publishers"
)

const refreshJobName = "refresh-news"

// Harvester represents the news harvester runtime. It owns the cache, the
// scheduled refresh, the read endpoint and the publishers notified after each
// refresh.
type Harvester struct {
	cfg       *config.Config
	registry  *sources.Registry
	fanout    *publishers.Fanout
	store     storage.Store
	cache     *newscache.Service
	metrics   *metrics.Metrics
	scheduler *scheduler.Scheduler
	server    *server.Server
	sentry    bool
	log       logger.Logger
}

// NewHarvester builds a harvester runtime from config.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := LoadRegistry(cfg, log)
	if err != nil {
		return nil, err
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		DefaultTTL:    cfg.CacheTTL,
		MemoryEntries: cfg.MemoryEntries,
	}
	store, err := storage.NewStore(cfg.StorageType, storePath(cfg), storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":              cfg.StorageType,
		"path":              storePath(cfg),
		"cache_key":         cfg.CacheKey,
		"cache_ttl_seconds": int(cfg.CacheTTL.Seconds()),
	})

	m := metrics.New()
	agg, err := buildAggregator(cfg, log, m)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, err
	}

	cache := newscache.New(agg, store, reg, newscache.Options{
		Key:      cfg.CacheKey,
		TTL:      cfg.CacheTTL,
		Notifier: fanout,
		Recorder: m,
		Log:      log,
	})

	sched, err := scheduler.New(log)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, err
	}

	h := &Harvester{
		cfg:       cfg,
		registry:  reg,
		fanout:    fanout,
		store:     store,
		cache:     cache,
		metrics:   m,
		scheduler: sched,
		server:    server.New(cfg.HTTPAddr, cache, m.Handler(), log),
		log:       log,
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			ServerName:  cfg.AppName,
		}); err != nil {
			log.WarnObj("sentry init failed; continuing without error reporting", "error", err)
		} else {
			h.sentry = true
		}
	}

	var jobOpts []scheduler.JobOption
	if cfg.RefreshOnStart {
		jobOpts = append(jobOpts, scheduler.RunImmediately())
	}
	if err := sched.AddCron(refreshJobName, cfg.RefreshCron, h.refresh, jobOpts...); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("schedule refresh: %w", err)
	}

	return h, nil
}

// Run starts the scheduler and the read endpoint and blocks until ctx is
// cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.cache == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.Close()

	h.log.InfoObj("harvester starting", "harvester_state", map[string]any{
		"categories":       len(h.registry.Categories()),
		"feeds":            h.registry.FeedCount(),
		"publishers_count": h.fanout.Size(),
		"refresh_cron":     h.cfg.RefreshCron,
		"http_addr":        h.cfg.HTTPAddr,
	})

	h.scheduler.Start()

	err := h.server.Start(ctx)
	h.log.InfoObj("harvester exiting", "reason", ctx.Err())
	return err
}

// Close stops the scheduler and releases the store and publishers.
func (h *Harvester) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	if h.scheduler != nil {
		if err := h.scheduler.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		h.scheduler = nil
	}
	if h.fanout != nil {
		if err := h.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
		h.fanout = nil
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.log.ErrorObj("storage close failed", "error", err)
			errs = append(errs, err)
		}
		h.store = nil
	}
	if h.sentry {
		sentry.Flush(2 * time.Second)
	}
	return errors.Join(errs...)
}

// refresh is the scheduled trigger: it rebuilds the cache unconditionally.
func (h *Harvester) refresh(ctx context.Context) error {
	start := time.Now()
	res, err := h.cache.Refresh(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.report(err)
		}
		return fmt.Errorf("refresh: %w", err)
	}
	h.log.InfoObj("scheduled refresh completed", "refresh_meta", map[string]any{
		"articles":   res.TotalArticles,
		"feeds":      res.TotalSources,
		"successful": res.SuccessfulSources,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (h *Harvester) report(err error) {
	if !h.sentry {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "scheduler",
		Message:  "Scheduled news refresh failed",
		Level:    sentry.LevelError,
	}, nil)
	hub.CaptureException(err)
}

// Snapshot runs the pipeline once and writes the indented JSON document to
// out. The cache and publishers are not touched.
func Snapshot(ctx context.Context, cfg *config.Config, log logger.Logger, out string) (domain.AggregateResult, error) {
	if cfg == nil {
		return domain.AggregateResult{}, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	reg, err := LoadRegistry(cfg, log)
	if err != nil {
		return domain.AggregateResult{}, err
	}
	agg, err := buildAggregator(cfg, log, nil)
	if err != nil {
		return domain.AggregateResult{}, err
	}
	store, err := storage.NewStore(storage.TypeNone, "", storage.Options{})
	if err != nil {
		return domain.AggregateResult{}, err
	}
	defer store.Close()

	svc := newscache.New(agg, store, reg, newscache.Options{Key: cfg.CacheKey, Log: log})
	res, payload, err := svc.Snapshot(ctx)
	if err != nil {
		return domain.AggregateResult{}, err
	}

	if dir := filepath.Dir(out); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.AggregateResult{}, fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return domain.AggregateResult{}, fmt.Errorf("write snapshot: %w", err)
	}
	log.InfoObj("snapshot written", "snapshot_meta", map[string]any{
		"path":       out,
		"articles":   res.TotalArticles,
		"feeds":      res.TotalSources,
		"successful": res.SuccessfulSources,
	})
	return res, nil
}

// LoadRegistry returns the registry named by cfg, or the built-in one.
func LoadRegistry(cfg *config.Config, log logger.Logger) (*sources.Registry, error) {
	reg := sources.Default()
	if cfg.RegistryFile != "" {
		loaded, err := sources.LoadRegistry(cfg.RegistryFile)
		if err != nil {
			return nil, fmt.Errorf("load source registry: %w", err)
		}
		reg = loaded
	}
	keys := make([]string, 0, len(reg.Categories()))
	for _, cat := range reg.Categories() {
		keys = append(keys, cat.Key)
	}
	logger.Ensure(log).InfoObj("source registry loaded", "registry_meta", map[string]any{
		"file":       cfg.RegistryFile,
		"categories": keys,
		"feeds":      reg.FeedCount(),
	})
	return reg, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(), nil
	}
	cfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers file: %w", err)
	}

	enabled := publishers.Enabled(cfgs)
	fanout, err := publishers.BuildAll(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]any{
			"id":       pubCfg.ID,
			"type":     pubCfg.Type,
			"triggers": pubCfg.Triggers,
		})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"disabled":   len(cfgs) - len(enabled),
		"publishers": summaries,
	})
	return fanout, nil
}

func buildAggregator(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*aggregator.Service, error) {
	f := fetcher.New(nil, fetcher.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	})

	opts := aggregator.Options{
		Limit:   cfg.MaxArticles,
		Retries: cfg.FetchRetries,
	}
	if m != nil {
		opts.Recorder = m
	}
	if cfg.EnrichThumbnails {
		scraper, err := enricher.New(nil, log, enricher.Options{
			Timeout:   cfg.FetchTimeout,
			UserAgent: cfg.UserAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("init enricher: %w", err)
		}
		opts.Enricher = scraper
	}
	return aggregator.NewService(f, log, opts), nil
}

func storePath(cfg *config.Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageType)) {
	case storage.TypeSQLite:
		return cfg.SQLitePath
	case storage.TypeBBolt:
		return cfg.BBoltPath
	default:
		return ""
	}
}
