package aggregator

import (
	"slices"
	"strings"
	"unicode"

	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLimit is the per-category article cap.
const DefaultLimit = 30

// DedupKey normalizes a title for duplicate detection: accents removed, case
// folded (final sigma included), whitespace collapsed.
func DedupKey(title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, title)
	if err != nil {
		s = title
	}
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Reduce keeps the first article per DedupKey, orders the survivors newest
// first (stable for equal timestamps) and caps the list at limit. A
// non-positive limit means DefaultLimit. The input is not modified.
func Reduce(articles []domain.Article, limit int) []domain.Article {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := lo.UniqBy(articles, func(a domain.Article) string {
		return DedupKey(a.Title)
	})
	slices.SortStableFunc(out, func(a, b domain.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
