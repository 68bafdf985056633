package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package sources holds the category registry and the publisher-name resolver.

// ErrInvalidRegistry marks configuration failures: an empty or malformed registry.
var ErrInvalidRegistry = errors.New("invalid source registry")

// Category groups feed sources under shared display metadata.
type Category struct {
	Key   string   `json:"key" yaml:"key"`
	Title string   `json:"title" yaml:"title"`
	Color string   `json:"color" yaml:"color"`
	Feeds []string `json:"feeds" yaml:"feeds"`
}

// Registry is the immutable category configuration plus the domain-name table.
// Build it with NewRegistry, LoadRegistry or Default; it is never mutated afterwards.
type Registry struct {
	categories []Category
	resolver   *Resolver
}

type registryFile struct {
	Categories []Category        `json:"categories" yaml:"categories"`
	Domains    map[string]string `json:"domains" yaml:"domains"`
}

// NewRegistry sanitizes and validates categories and builds a registry. A nil or
// empty domain table falls back to DefaultDomains.
func NewRegistry(categories []Category, domains map[string]string) (*Registry, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories configured", ErrInvalidRegistry)
	}

	seen := make(map[string]struct{}, len(categories))
	out := make([]Category, 0, len(categories))
	for i, c := range categories {
		c = sanitizeCategory(c)
		if err := validateCategory(c); err != nil {
			return nil, fmt.Errorf("%w: categories[%d]: %v", ErrInvalidRegistry, i, err)
		}
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate category key %q", ErrInvalidRegistry, c.Key)
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
	}

	if len(domains) == 0 {
		domains = DefaultDomains()
	}

	return &Registry{
		categories: out,
		resolver:   NewResolver(domains),
	}, nil
}

// LoadRegistry loads categories and the optional domain table from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("registry file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Categories, parsed.Domains)
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("registry file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s registry: %w", name, err)
	}
	return reg, nil
}

func sanitizeCategory(c Category) Category {
	c.Key = strings.TrimSpace(c.Key)
	c.Title = strings.TrimSpace(c.Title)
	c.Color = strings.TrimSpace(c.Color)

	feeds := make([]string, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	c.Feeds = feeds
	return c
}

func validateCategory(c Category) error {
	if c.Key == "" {
		return errors.New("key is required")
	}
	if c.Title == "" {
		return fmt.Errorf("title is required for category %q", c.Key)
	}
	if len(c.Feeds) == 0 {
		return fmt.Errorf("category %q has no feeds", c.Key)
	}
	for _, f := range c.Feeds {
		u, err := url.Parse(f)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("category %q has invalid feed url %q", c.Key, f)
		}
	}
	return nil
}

// Validate reports whether the registry can drive a pipeline run.
func (r *Registry) Validate() error {
	if r == nil || len(r.categories) == 0 {
		return fmt.Errorf("%w: registry is empty", ErrInvalidRegistry)
	}
	if r.resolver == nil {
		return fmt.Errorf("%w: resolver is not initialized", ErrInvalidRegistry)
	}
	return nil
}

// Categories returns a copy of the categories in registry order.
func (r *Registry) Categories() []Category {
	if r == nil {
		return nil
	}
	out := make([]Category, len(r.categories))
	for i, c := range r.categories {
		c.Feeds = append([]string(nil), c.Feeds...)
		out[i] = c
	}
	return out
}

// Resolver returns the publisher-name resolver built from the domain table.
func (r *Registry) Resolver() *Resolver {
	if r == nil {
		return nil
	}
	return r.resolver
}

// FeedCount returns the number of configured feed URLs across all categories.
func (r *Registry) FeedCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.categories {
		n += len(c.Feeds)
	}
	return n
}
