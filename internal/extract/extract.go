package extract

import (
	"iter"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
)

// MaxSummaryRunes caps the plain-text description of an article.
const MaxSummaryRunes = 500

var (
	itemPattern  = regexp.MustCompile(`(?is)<item(?:\s[^>]*)?>(.*?)</item\s*>`)
	entryPattern = regexp.MustCompile(`(?is)<entry(?:\s[^>]*)?>(.*?)</entry\s*>`)

	imgSrcPattern    = regexp.MustCompile(`(?is)<img\s[^>]*?\bsrc\s*=\s*["']([^"']+)["']`)
	enclosurePattern = regexp.MustCompile(`(?is)<enclosure\s[^>]*>`)

	titleTags   = []string{"title"}
	dateTags    = []string{"pubDate", "dc:date", "published", "updated"}
	summaryTags = []string{"description", "content:encoded", "summary", "content"}
	contentTags = []string{"content:encoded", "content"}
	mediaTags   = []string{"media:content", "media:thumbnail"}
)

// Items lazily yields one Article per usable entry found in markup. Entries
// without a title or link are skipped; nothing in the markup can make it fail.
// now is stamped on entries whose publication date is absent or unparseable.
func Items(markup []byte, source string, now time.Time) iter.Seq[domain.Article] {
	return func(yield func(domain.Article) bool) {
		pattern := itemPattern
		if !itemPattern.Match(markup) {
			pattern = entryPattern
		}

		rest := markup
		for len(rest) > 0 {
			loc := pattern.FindSubmatchIndex(rest)
			if loc == nil {
				return
			}
			block := string(rest[loc[2]:loc[3]])
			rest = rest[loc[1]:]

			art, ok := parseEntry(block, source, now)
			if !ok {
				continue
			}
			if !yield(art) {
				return
			}
		}
	}
}

// Collect extracts every usable entry into a slice.
func Collect(markup []byte, source string, now time.Time) []domain.Article {
	return slices.Collect(Items(markup, source, now))
}

func parseEntry(block, source string, now time.Time) (domain.Article, bool) {
	title := PlainText(firstTag(block, titleTags...))
	link := entryLink(block)
	if title == "" || link == "" {
		return domain.Article{}, false
	}

	published := now
	if raw := CleanText(firstTag(block, dateTags...)); raw != "" {
		if t, ok := ParseDate(raw); ok {
			published = t
		}
	}

	rawSummary := firstTag(block, summaryTags...)

	return domain.Article{
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Summary:     Truncate(PlainText(rawSummary), MaxSummaryRunes),
		Thumbnail:   thumbnail(block, rawSummary),
		Source:      source,
	}, true
}

func entryLink(block string) string {
	if link := stripTags(CleanText(firstTag(block, "link"))); link != "" {
		return link
	}
	if href := CleanText(firstAttr(block, "link", "href")); href != "" {
		return href
	}
	guid := stripTags(CleanText(firstTag(block, "guid")))
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}

// thumbnail walks the fallback chain: media attachment, image enclosure, then the
// first inline image of the description or content.
func thumbnail(block, rawSummary string) string {
	for _, tag := range mediaTags {
		if u := CleanText(firstAttr(block, tag, "url")); u != "" {
			return u
		}
	}

	if enc := enclosurePattern.FindString(block); enc != "" {
		u := CleanText(attrValue(enc, "url"))
		typ := strings.ToLower(strings.TrimSpace(attrValue(enc, "type")))
		if u != "" && (typ == "" || strings.HasPrefix(typ, "image/")) {
			return u
		}
	}

	candidates := []string{rawSummary}
	for _, tag := range contentTags {
		candidates = append(candidates, firstTag(block, tag))
	}
	for _, text := range candidates {
		if text == "" {
			continue
		}
		if m := imgSrcPattern.FindStringSubmatch(DecodeEntities(UnwrapCDATA(text))); m != nil {
			if u := strings.TrimSpace(m[1]); u != "" {
				return u
			}
		}
	}
	return ""
}

// firstTag returns the inner text of the first non-empty element among names.
func firstTag(block string, names ...string) string {
	for _, name := range names {
		m := tagPattern(name).FindStringSubmatch(block)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// firstAttr returns attr of the first name element carrying it.
func firstAttr(block, name, attr string) string {
	m := attrPattern(name, attr).FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return m[1]
}

var attrValuePatterns sync.Map

func attrValue(tag, attr string) string {
	re, ok := attrValuePatterns.Load(attr)
	if !ok {
		re, _ = attrValuePatterns.LoadOrStore(attr,
			regexp.MustCompile(`(?is)\b`+regexp.QuoteMeta(attr)+`\s*=\s*["']([^"']*)["']`))
	}
	m := re.(*regexp.Regexp).FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	tagPatterns     sync.Map
	attrTagPatterns sync.Map
)

// tagPattern matches <name ...>inner</name>, case-insensitive and tolerant of
// attributes. Self-closing elements never match.
func tagPattern(name string) *regexp.Regexp {
	if re, ok := tagPatterns.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?is)<` + q + `(?:\s[^>]*[^/>])?\s*>(.*?)</` + q + `\s*>`)
	actual, _ := tagPatterns.LoadOrStore(name, re)
	return actual.(*regexp.Regexp)
}

func attrPattern(name, attr string) *regexp.Regexp {
	key := name + "\x00" + attr
	if re, ok := attrTagPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(name) + `\s[^>]*?\b` + regexp.QuoteMeta(attr) + `\s*=\s*["']([^"']+)["']`)
	actual, _ := attrTagPatterns.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}
