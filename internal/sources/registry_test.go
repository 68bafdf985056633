package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "registry.yaml")
	content := `
categories:
  - key: tech
    title: "  Τεχνολογία  "
    color: pink
    feeds:
      - https://www.techgear.gr/feed
      - "   "
      - https://gr.pcmag.com/feed.xml
  - key: sports
    title: Sports
    color: green
    feeds:
      - https://www.sdna.gr/rss/
domains:
  techgear.gr: Techgear
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write registry file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	cats := reg.Categories()
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Key != "tech" || cats[1].Key != "sports" {
		t.Fatalf("registry order not preserved: %#v", cats)
	}
	if cats[0].Title != "Τεχνολογία" {
		t.Fatalf("title not trimmed: %q", cats[0].Title)
	}
	if len(cats[0].Feeds) != 2 {
		t.Fatalf("expected blank feed to be dropped, got %#v", cats[0].Feeds)
	}
	if reg.FeedCount() != 3 {
		t.Fatalf("FeedCount = %d want 3", reg.FeedCount())
	}
	if got := reg.Resolver().Resolve("https://www.techgear.gr/feed"); got != "Techgear" {
		t.Fatalf("resolver from file table = %q", got)
	}
	// Keys outside the file's table are derived, not taken from the defaults.
	if got := reg.Resolver().Resolve("https://www.sdna.gr/rss/"); got != "Sdna" {
		t.Fatalf("expected derived name, got %q", got)
	}
}

func TestLoadRegistryJSONWithoutDomainsUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "registry.json")
	content := `{"categories":[{"key":"world","title":"World","color":"blue","feeds":["https://rss.dw.com/rdf/rss-gr-all"]}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write registry file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := reg.Resolver().Resolve("https://rss.dw.com/rdf/rss-gr-all"); got != "DW" {
		t.Fatalf("Resolve = %q want DW", got)
	}
}

func TestNewRegistryRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cats []Category
	}{
		{name: "empty", cats: nil},
		{name: "missing key", cats: []Category{{Title: "x", Feeds: []string{"https://a.gr/feed"}}}},
		{name: "missing title", cats: []Category{{Key: "k", Feeds: []string{"https://a.gr/feed"}}}},
		{name: "no feeds", cats: []Category{{Key: "k", Title: "t"}}},
		{name: "bad url", cats: []Category{{Key: "k", Title: "t", Feeds: []string{"ftp://a.gr/feed"}}}},
		{name: "duplicate key", cats: []Category{
			{Key: "k", Title: "t", Feeds: []string{"https://a.gr/feed"}},
			{Key: "k", Title: "t2", Feeds: []string{"https://b.gr/feed"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.cats, nil)
			if !errors.Is(err, ErrInvalidRegistry) {
				t.Fatalf("expected ErrInvalidRegistry, got %v", err)
			}
		})
	}
}

func TestCategoriesReturnsCopies(t *testing.T) {
	reg := Default()
	cats := reg.Categories()
	cats[0].Feeds[0] = "https://mutated.example/feed"
	cats[0].Title = "mutated"

	again := reg.Categories()
	if again[0].Feeds[0] == "https://mutated.example/feed" || again[0].Title == "mutated" {
		t.Fatalf("registry was mutated through returned categories")
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := len(reg.Categories()); got != 6 {
		t.Fatalf("expected 6 default categories, got %d", got)
	}
	if reg.FeedCount() != 24 {
		t.Fatalf("expected 24 default feeds, got %d", reg.FeedCount())
	}

	var nilReg *Registry
	if err := nilReg.Validate(); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("nil registry Validate = %v", err)
	}
}
