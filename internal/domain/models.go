package domain

import "time"

// Domain contains core models shared by the harvester pipeline.

// Article is one normalized news item extracted from a feed entry.
type Article struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Summary     string
	Thumbnail   string // empty when the entry carried no usable image
	Source      string
}

// HasThumbnail reports whether the article carries an image URL.
func (a Article) HasThumbnail() bool { return a.Thumbnail != "" }

// CategorySummary is the ranked, capped article list of one category.
type CategorySummary struct {
	Title    string
	Color    string
	Articles []Article
}

// AggregateResult is an immutable snapshot produced by one pipeline run.
type AggregateResult struct {
	GeneratedAt       time.Time
	TotalArticles     int
	TotalSources      int
	SuccessfulSources int
	Categories        map[string]CategorySummary
	// Order keeps registry order for callers that iterate categories.
	Order []string
}
