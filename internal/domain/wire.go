package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// wireSnapshot mirrors the JSON document served to readers. Field names are fixed.
type wireSnapshot struct {
	LastUpdated     string                  `json:"lastUpdated"`
	TotalArticles   int                     `json:"totalArticles"`
	TotalFeeds      int                     `json:"totalFeeds"`
	SuccessfulFeeds int                     `json:"successfulFeeds"`
	Categories      wireCategories          `json:"categories"`
}

// wireCategories is a JSON object whose keys keep insertion order.
type wireCategories struct {
	keys []string
	vals map[string]wireCategory
}

func (c *wireCategories) add(key string, cat wireCategory) {
	if c.vals == nil {
		c.vals = make(map[string]wireCategory)
	}
	if _, ok := c.vals[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = cat
}

func (c wireCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.vals[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *wireCategories) UnmarshalJSON(data []byte) error {
	*c = wireCategories{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("categories must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected categories key %v", tok)
		}
		var cat wireCategory
		if err := dec.Decode(&cat); err != nil {
			return fmt.Errorf("decode category %q: %w", key, err)
		}
		c.add(key, cat)
	}
	_, err = dec.Token()
	return err
}

type wireCategory struct {
	Title    string        `json:"title"`
	Color    string        `json:"color"`
	Articles []wireArticle `json:"articles"`
}

type wireArticle struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	PubDate     string  `json:"pubDate"`
	Description string  `json:"description"`
	Thumbnail   *string `json:"thumbnail"`
	Source      string  `json:"source"`
}

const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON encodes the snapshot in the reader-facing shape.
func (r AggregateResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toWire())
}

// UnmarshalJSON decodes a snapshot previously produced by MarshalJSON.
func (r *AggregateResult) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	generated, err := time.Parse(time.RFC3339Nano, w.LastUpdated)
	if err != nil {
		return fmt.Errorf("decode lastUpdated: %w", err)
	}

	out := AggregateResult{
		GeneratedAt:       generated,
		TotalArticles:     w.TotalArticles,
		TotalSources:      w.TotalFeeds,
		SuccessfulSources: w.SuccessfulFeeds,
		Categories:        make(map[string]CategorySummary, len(w.Categories.keys)),
	}
	for _, key := range w.Categories.keys {
		cat := w.Categories.vals[key]
		articles := make([]Article, 0, len(cat.Articles))
		for _, a := range cat.Articles {
			published, err := time.Parse(time.RFC3339Nano, a.PubDate)
			if err != nil {
				return fmt.Errorf("decode pubDate for %q: %w", a.Link, err)
			}
			art := Article{
				Title:       a.Title,
				Link:        a.Link,
				PublishedAt: published,
				Summary:     a.Description,
				Source:      a.Source,
			}
			if a.Thumbnail != nil {
				art.Thumbnail = *a.Thumbnail
			}
			articles = append(articles, art)
		}
		out.Categories[key] = CategorySummary{Title: cat.Title, Color: cat.Color, Articles: articles}
		out.Order = append(out.Order, key)
	}
	*r = out
	return nil
}

func (r AggregateResult) toWire() wireSnapshot {
	w := wireSnapshot{
		LastUpdated:     r.GeneratedAt.UTC().Format(wireTimeLayout),
		TotalArticles:   r.TotalArticles,
		TotalFeeds:      r.TotalSources,
		SuccessfulFeeds: r.SuccessfulSources,
	}
	for _, key := range r.categoryKeys() {
		cat := r.Categories[key]
		articles := make([]wireArticle, 0, len(cat.Articles))
		for _, a := range cat.Articles {
			wa := wireArticle{
				Title:       a.Title,
				Link:        a.Link,
				PubDate:     a.PublishedAt.UTC().Format(wireTimeLayout),
				Description: a.Summary,
				Source:      a.Source,
			}
			if a.HasThumbnail() {
				thumb := a.Thumbnail
				wa.Thumbnail = &thumb
			}
			articles = append(articles, wa)
		}
		w.Categories.add(key, wireCategory{Title: cat.Title, Color: cat.Color, Articles: articles})
	}
	return w
}

// categoryKeys lists Order first, then any category missing from it in
// sorted order.
func (r AggregateResult) categoryKeys() []string {
	keys := make([]string, 0, len(r.Categories))
	seen := make(map[string]struct{}, len(r.Categories))
	for _, key := range r.Order {
		if _, ok := r.Categories[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	var rest []string
	for key := range r.Categories {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
