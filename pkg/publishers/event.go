package publishers

import (
	"time"

	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
)

// Trigger names the path that produced a snapshot.
const (
	TriggerScheduled = "scheduled"
	TriggerLazy      = "lazy"
)

// Event is the snapshot notification published downstream after the cache is
// rewritten. It carries counts, not articles; consumers read the cache itself.
type Event struct {
	CacheKey        string         `json:"cache_key"`
	Trigger         string         `json:"trigger"`
	GeneratedAt     time.Time      `json:"generated_at"`
	TotalArticles   int            `json:"total_articles"`
	TotalFeeds      int            `json:"total_feeds"`
	SuccessfulFeeds int            `json:"successful_feeds"`
	Categories      map[string]int `json:"categories"`
	PublishedAt     time.Time      `json:"published_at"`
}

// NewEvent summarizes an aggregate result for publishing.
func NewEvent(cacheKey, trigger string, res domain.AggregateResult) Event {
	cats := make(map[string]int, len(res.Categories))
	for key, cat := range res.Categories {
		cats[key] = len(cat.Articles)
	}
	return Event{
		CacheKey:        cacheKey,
		Trigger:         trigger,
		GeneratedAt:     res.GeneratedAt.UTC(),
		TotalArticles:   res.TotalArticles,
		TotalFeeds:      res.TotalSources,
		SuccessfulFeeds: res.SuccessfulSources,
		Categories:      cats,
		PublishedAt:     time.Now().UTC(),
	}
}
