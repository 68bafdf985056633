package sources

import "testing"

func TestResolve(t *testing.T) {
	r := NewResolver(DefaultDomains())

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "exact with www", url: "https://www.newsit.gr/feed/", want: "NewsIT"},
		{name: "exact apex", url: "https://olaprasina1908.gr/feed/", want: "Όλα Πράσινα"},
		{name: "subdomain of table key", url: "https://gr.euronews.com/rss?format=all", want: "Euronews"},
		{name: "apex of table key", url: "https://euronews.com/rss", want: "Euronews"},
		{name: "deep subdomain", url: "https://rss.dw.com/rdf/rss-gr-all", want: "DW"},
		{name: "feeds subdomain", url: "https://feeds.bbci.co.uk/news/world/rss.xml", want: "BBC News"},
		{name: "regional subdomain", url: "https://gr.pcmag.com/feed.xml", want: "PC Magazine"},
		{name: "uppercase host", url: "HTTPS://WWW.SDNA.GR/rss/", want: "SDNA"},
		{name: "unknown host derives label", url: "https://unknown-domain.example/feed", want: "Unknown-domain"},
		{name: "no label-boundary false positive", url: "https://www.kathimerini.gr/rss", want: "Kathimerini"},
		{name: "greek label capitalized", url: "https://ειδήσεις.gr/feed", want: "Ειδήσεις"},
		{name: "single label host", url: "http://localhost:8080/rss", want: "Localhost"},
		{name: "unparseable", url: "://bad url", want: UnknownSource},
		{name: "no host", url: "not-a-url", want: UnknownSource},
		{name: "empty", url: "", want: UnknownSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.url); got != tt.want {
				t.Fatalf("Resolve(%q) = %q want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestResolvePrefersMostSpecificKey(t *testing.T) {
	r := NewResolver(map[string]string{
		"example.com":      "Example",
		"news.example.com": "Example News",
	})
	if got := r.Resolve("https://feeds.news.example.com/rss"); got != "Example News" {
		t.Fatalf("got %q want Example News", got)
	}
	if got := r.Resolve("https://blog.example.com/rss"); got != "Example" {
		t.Fatalf("got %q want Example", got)
	}
}

func TestResolveApexAliasesSubdomainKey(t *testing.T) {
	r := NewResolver(map[string]string{"gr.example.org": "Example GR"})
	if got := r.Resolve("https://www.example.org/rss"); got != "Example GR" {
		t.Fatalf("got %q want Example GR", got)
	}
}

func TestResolveNilResolverDerivesName(t *testing.T) {
	var r *Resolver
	if got := r.Resolve("https://www.tanea.gr/feed"); got != "Tanea" {
		t.Fatalf("got %q want Tanea", got)
	}
}

func TestLintReportsOverlaps(t *testing.T) {
	r := NewResolver(map[string]string{
		"euronews.com":    "Euronews",
		"gr.euronews.com": "Euronews",
		"co.uk":           "UK",
		"bbci.co.uk":      "BBC News",
		"in.gr":           "In.gr",
	})

	got := r.Lint()
	want := []Overlap{
		{Key: "bbci.co.uk", Shadows: "co.uk", SameName: false},
		{Key: "gr.euronews.com", Shadows: "euronews.com", SameName: true},
	}
	if len(got) != len(want) {
		t.Fatalf("Lint() = %#v want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lint()[%d] = %#v want %#v", i, got[i], want[i])
		}
	}
}
