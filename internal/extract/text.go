package extract

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	tagStrip     = regexp.MustCompile(`<[^>]*>`)

	entityPattern = regexp.MustCompile(`&(?:lt|gt|amp|quot|apos|#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6});`)

	namedEntities = map[string]string{
		"&lt;":   "<",
		"&gt;":   ">",
		"&amp;":  "&",
		"&quot;": `"`,
		"&apos;": "'",
	}

	stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
)

// UnwrapCDATA replaces every CDATA section with its raw content.
func UnwrapCDATA(s string) string {
	if !strings.Contains(s, "<![CDATA[") {
		return s
	}
	return cdataPattern.ReplaceAllString(s, "$1")
}

// DecodeEntities decodes the five XML entities and numeric character
// references in a single pass. Decoded text is never decoded again.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityPattern.ReplaceAllStringFunc(s, decodeEntity)
}

func decodeEntity(ref string) string {
	if v, ok := namedEntities[ref]; ok {
		return v
	}
	digits, base := ref[2:len(ref)-1], 10
	if digits[0] == 'x' || digits[0] == 'X' {
		digits, base = digits[1:], 16
	}
	n, err := strconv.ParseInt(digits, base, 32)
	if err != nil || n == 0 || !utf8.ValidRune(rune(n)) {
		return ref
	}
	return string(rune(n))
}

// CleanText unwraps CDATA, decodes entities and trims.
func CleanText(s string) string {
	return strings.TrimSpace(DecodeEntities(UnwrapCDATA(s)))
}

// PlainText turns feed text into a single line of readable text with all
// markup removed.
func PlainText(s string) string {
	s = CleanText(s)
	if s == "" {
		return ""
	}
	// Entities are decoded once above; literal '&' must survive the sanitizer.
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}

func stripTags(s string) string {
	return strings.TrimSpace(tagStrip.ReplaceAllString(s, ""))
}
