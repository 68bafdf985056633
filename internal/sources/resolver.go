package sources

import (
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownSource is returned when a feed URL cannot be parsed at all.
const UnknownSource = "Άγνωστη πηγή"

// Resolver maps feed URLs to canonical publisher names.
type Resolver struct {
	table map[string]string
	// longestFirst drives subdomain matching, shortestFirst drives apex aliasing.
	longestFirst  []string
	shortestFirst []string
}

// Overlap describes two table keys where one is a label-suffix of the other.
type Overlap struct {
	Key      string `json:"key"`
	Shadows  string `json:"shadows"`
	SameName bool   `json:"same_name"`
}

// NewResolver builds a resolver from a domain -> name table.
func NewResolver(table map[string]string) *Resolver {
	r := &Resolver{table: make(map[string]string, len(table))}
	for k, v := range table {
		key := normalizeHost(k)
		name := strings.TrimSpace(v)
		if key == "" || name == "" {
			continue
		}
		r.table[key] = name
	}

	keys := make([]string, 0, len(r.table))
	for k := range r.table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	r.longestFirst = keys

	short := append([]string(nil), keys...)
	sort.Slice(short, func(i, j int) bool {
		if len(short[i]) != len(short[j]) {
			return len(short[i]) < len(short[j])
		}
		return short[i] < short[j]
	})
	r.shortestFirst = short
	return r
}

// Resolve returns the publisher name for a feed URL. It never fails.
func (r *Resolver) Resolve(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return UnknownSource
	}
	host := normalizeHost(u.Hostname())
	if host == "" {
		return UnknownSource
	}

	if r != nil {
		if name, ok := r.table[host]; ok {
			return name
		}
		for _, key := range r.longestFirst {
			if strings.HasSuffix(host, "."+key) {
				return r.table[key]
			}
		}
		if strings.Contains(host, ".") {
			for _, key := range r.shortestFirst {
				if strings.HasSuffix(key, "."+host) {
					return r.table[key]
				}
			}
		}
	}

	return deriveName(host)
}

// Lint reports table keys that shadow each other on a label boundary.
func (r *Resolver) Lint() []Overlap {
	if r == nil {
		return nil
	}
	var out []Overlap
	for _, a := range r.longestFirst {
		for _, b := range r.longestFirst {
			if a != b && strings.HasSuffix(a, "."+b) {
				out = append(out, Overlap{Key: a, Shadows: b, SameName: r.table[a] == r.table[b]})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Shadows < out[j].Shadows
	})
	return out
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

// deriveName capitalizes the second-to-last label, e.g. "newsit" from "newsit.gr".
func deriveName(host string) string {
	labels := strings.Split(host, ".")
	label := labels[0]
	if len(labels) >= 2 {
		label = labels[len(labels)-2]
	}
	if label == "" {
		return UnknownSource
	}
	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + label[size:]
}
