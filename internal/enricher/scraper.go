package enricher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
	"github.com/captainnews-gr/captainnews-harvester/pkg/httpclient"
	lru "github.com/hashicorp/golang-lru/v2"
	conciter "github.com/sourcegraph/conc/iter"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	defaultWorkers   = 4
	defaultCacheSize = 512
)

// Options tune a Scraper.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Workers   int
	CacheSize int
}

// Scraper fills missing article thumbnails from the page's OG tags.
type Scraper struct {
	client  httpclient.Client
	workers int
	// seen maps article links to the image found for them, including misses.
	seen *lru.Cache[string, string]
	log  logger.Logger
}

// New constructs a scraper with the provided HTTP client (or default).
func New(client httpclient.Client, log logger.Logger, opts Options) (*Scraper, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if client == nil {
		client = httpclient.NewRestyClient(opts.Timeout, httpclient.WithUserAgent(opts.UserAgent))
	}
	seen, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("init enrichment cache: %w", err)
	}
	return &Scraper{client: client, workers: opts.Workers, seen: seen, log: logger.Ensure(log)}, nil
}

// Enrich returns a copy of articles where entries without a thumbnail get the
// page's og:image when one exists. Failures leave the article unchanged.
func (s *Scraper) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	mapper := conciter.Mapper[domain.Article, domain.Article]{MaxGoroutines: s.workers}
	return mapper.Map(articles, func(a *domain.Article) domain.Article {
		art := *a
		if art.HasThumbnail() || ctx.Err() != nil {
			return art
		}
		if img, ok := s.seen.Get(art.Link); ok {
			art.Thumbnail = img
			return art
		}

		img, err := s.fetchImage(ctx, art.Link)
		if err != nil {
			s.log.DebugObj("article metadata scrape failed", "metadata_error", map[string]any{
				"url":   art.Link,
				"error": err.Error(),
			})
			return art
		}
		s.seen.Add(art.Link, img)
		art.Thumbnail = img
		return art
	})
}

func (s *Scraper) fetchImage(ctx context.Context, pageURL string) (string, error) {
	resp, err := s.client.Get(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return "", fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	image, err := parseImage(body)
	if err != nil {
		return "", err
	}
	return resolveURL(image, pageURL), nil
}

// parseImage returns the preview image declared in the page head.
func parseImage(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return firstNonEmpty(
		extract(`meta[property="og:image"]`),
		extract(`meta[property="og:image:url"]`),
		extract(`meta[name="twitter:image"]`),
	), nil
}

// resolveURL makes ref absolute against base.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
