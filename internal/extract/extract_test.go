package extract

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

var fixedNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Newsit</title>
  <link>https://www.newsit.gr/</link>
  <item>
    <title><![CDATA[Τίτλος & Νέα]]></title>
    <link>https://www.newsit.gr/a1</link>
    <pubDate>Mon, 02 Jan 2006 15:04:05 +0200</pubDate>
    <description><![CDATA[<p>Πρώτη <b>παράγραφος</b></p>]]></description>
    <media:content url="https://img.newsit.gr/1.jpg" medium="image"/>
    <enclosure url="https://img.newsit.gr/enc.jpg" type="image/jpeg"/>
  </item>
  <ITEM>
    <Title type="text">Tom &amp; Jerry</Title>
    <LINK><![CDATA[https://www.newsit.gr/a2]]></LINK>
    <pubDate>not a date</pubDate>
    <description>&lt;p&gt;&lt;img src=&quot;https://img.newsit.gr/inline.jpg&quot;/&gt;Body&lt;/p&gt;</description>
    <enclosure url="https://cdn.newsit.gr/podcast.mp3" type="audio/mpeg" length="1"/>
  </ITEM>
  <item>
    <title>No link here</title>
    <guid isPermaLink="false">abc-123</guid>
  </item>
  <item>
    <title>Guid link</title>
    <guid>https://www.newsit.gr/a3</guid>
    <enclosure url="https://img.newsit.gr/untyped.jpg"/>
  </item>
  <item>
    <title>   </title>
    <link>https://www.newsit.gr/a4</link>
  </item>
</channel>
</rss>`

func TestCollectRSS(t *testing.T) {
	got := Collect([]byte(rssFixture), "NewsIT", fixedNow)
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d: %#v", len(got), got)
	}

	first := got[0]
	if first.Title != "Τίτλος & Νέα" {
		t.Fatalf("CDATA title = %q", first.Title)
	}
	if first.Link != "https://www.newsit.gr/a1" {
		t.Fatalf("link = %q", first.Link)
	}
	want := time.Date(2006, 1, 2, 13, 4, 5, 0, time.UTC)
	if !first.PublishedAt.Equal(want) || first.PublishedAt.Location() != time.UTC {
		t.Fatalf("published = %v want %v", first.PublishedAt, want)
	}
	if first.Summary != "Πρώτη παράγραφος" {
		t.Fatalf("summary = %q", first.Summary)
	}
	if first.Thumbnail != "https://img.newsit.gr/1.jpg" {
		t.Fatalf("media attachment should win, got %q", first.Thumbnail)
	}
	if first.Source != "NewsIT" {
		t.Fatalf("source = %q", first.Source)
	}

	second := got[1]
	if second.Title != "Tom & Jerry" {
		t.Fatalf("attribute-tolerant title = %q", second.Title)
	}
	if second.Link != "https://www.newsit.gr/a2" {
		t.Fatalf("CDATA link = %q", second.Link)
	}
	if !second.PublishedAt.Equal(fixedNow) {
		t.Fatalf("unparseable date should fall back to now, got %v", second.PublishedAt)
	}
	if second.Thumbnail != "https://img.newsit.gr/inline.jpg" {
		t.Fatalf("non-image enclosure must be skipped, got %q", second.Thumbnail)
	}
	if second.Summary != "Body" {
		t.Fatalf("escaped markup summary = %q", second.Summary)
	}

	third := got[2]
	if third.Link != "https://www.newsit.gr/a3" {
		t.Fatalf("guid link = %q", third.Link)
	}
	if third.Thumbnail != "https://img.newsit.gr/untyped.jpg" {
		t.Fatalf("untyped enclosure = %q", third.Thumbnail)
	}
	if third.Summary != "" || !third.PublishedAt.Equal(fixedNow) {
		t.Fatalf("missing fields should be empty/now: %#v", third)
	}
}

func TestCollectAtom(t *testing.T) {
	feed := `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example</title>
  <entry>
    <title type="html">Atom title</title>
    <link rel="alternate" href="https://example.org/atom/1"/>
    <updated>2024-03-01T10:00:00Z</updated>
    <content type="html">&lt;img src=&quot;https://example.org/i.png&quot;&gt; hello</content>
  </entry>
  <entry>
    <title>Second</title>
    <link href="https://example.org/atom/2" />
    <published>2024-03-02T08:30:00+02:00</published>
    <summary>Short</summary>
    <media:thumbnail url="https://example.org/t.png"/>
  </entry>
</feed>`

	got := Collect([]byte(feed), "Example", fixedNow)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Link != "https://example.org/atom/1" || got[0].Title != "Atom title" {
		t.Fatalf("unexpected first entry: %#v", got[0])
	}
	if !got[0].PublishedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("updated date = %v", got[0].PublishedAt)
	}
	if got[0].Thumbnail != "https://example.org/i.png" || got[0].Summary != "hello" {
		t.Fatalf("content fallback: %#v", got[0])
	}
	if got[1].Link != "https://example.org/atom/2" {
		t.Fatalf("second link = %q", got[1].Link)
	}
	if !got[1].PublishedAt.Equal(time.Date(2024, 3, 2, 6, 30, 0, 0, time.UTC)) {
		t.Fatalf("published date = %v", got[1].PublishedAt)
	}
	if got[1].Thumbnail != "https://example.org/t.png" {
		t.Fatalf("media thumbnail = %q", got[1].Thumbnail)
	}
}

func TestSummaryIsCapped(t *testing.T) {
	long := strings.Repeat("α", 600)
	feed := `<rss><channel><item><title>t</title><link>https://a.gr/1</link><description>` + long + `</description></item></channel></rss>`

	got := Collect([]byte(feed), "A", fixedNow)
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	if n := utf8.RuneCountInString(got[0].Summary); n != MaxSummaryRunes {
		t.Fatalf("summary length = %d want %d", n, MaxSummaryRunes)
	}
}

func TestItemsMalformedInput(t *testing.T) {
	inputs := map[string]string{
		"empty":        "",
		"html page":    "<html><body><h1>502 Bad Gateway</h1></body></html>",
		"garbage":      "<<<<item>>>> </ item",
		"unclosed":     "<rss><item><title>x</title><link>https://a.gr</link>",
		"invalid utf8": "\xff\xfe<item>\xff</item>",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if got := Collect([]byte(in), "A", fixedNow); len(got) != 0 {
				t.Fatalf("expected no articles, got %#v", got)
			}
		})
	}
}

func TestItemsStopsEarly(t *testing.T) {
	calls := 0
	for range Items([]byte(rssFixture), "NewsIT", fixedNow) {
		calls++
		break
	}
	if calls != 1 {
		t.Fatalf("expected iteration to stop after first yield, got %d", calls)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "<![CDATA[<b>Γεια</b> σου]]>", want: "Γεια σου"},
		{in: "a&lt;br&gt;b", want: "a b"},
		{in: "  spaced \n\t out  ", want: "spaced out"},
		{in: "<script>alert(1)</script>visible", want: "visible"},
		{in: "AT&amp;amp;T", want: "AT&amp;T"},
		{in: "&amp;lt;b&amp;gt;bold", want: "&lt;b&gt;bold"},
		{in: "<![CDATA[Τίτλος & Νέα]]>", want: "Τίτλος & Νέα"},
		{in: "l&#8217;&#x3A9;", want: "l\u2019\u03a9"},
		{in: "&#0;&bogus;", want: "&#0;&bogus;"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollectDecodesEntitiesOnce(t *testing.T) {
	feed := `<rss><channel><item><title>AT&amp;amp;T &amp;lt;b&amp;gt;</title><link>https://a.gr/1</link></item></channel></rss>`

	got := Collect([]byte(feed), "A", fixedNow)
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	if got[0].Title != "AT&amp;T &lt;b&gt;" {
		t.Fatalf("title = %q", got[0].Title)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{in: "Tue, 10 Jun 2025 09:15:00 GMT", want: time.Date(2025, 6, 10, 9, 15, 0, 0, time.UTC), ok: true},
		{in: "Tue, 10 Jun 2025 12:15:00 +0300", want: time.Date(2025, 6, 10, 9, 15, 0, 0, time.UTC), ok: true},
		{in: "Tue, 3 Jun 2025 12:15:00 +0300", want: time.Date(2025, 6, 3, 9, 15, 0, 0, time.UTC), ok: true},
		{in: "2025-06-10T09:15:00.123Z", want: time.Date(2025, 6, 10, 9, 15, 0, 123000000, time.UTC), ok: true},
		{in: "2025-06-10 09:15:00", want: time.Date(2025, 6, 10, 9, 15, 0, 0, time.UTC), ok: true},
		{in: "yesterday", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseDate(%q) ok = %v want %v", tt.in, ok, tt.ok)
		}
		if ok && !got.Equal(tt.want) {
			t.Fatalf("ParseDate(%q) = %v want %v", tt.in, got, tt.want)
		}
	}
}
