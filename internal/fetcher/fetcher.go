package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/captainnews-gr/captainnews-harvester/pkg/httpclient"
)

const (
	maxFeedBytes   = 4 << 20 // 4 MiB
	maxSnippetSize = 512
)

// ErrEmptyURL is returned when Fetch is called without a URL.
var ErrEmptyURL = errors.New("feed url is empty")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL     string
	Status  int
	Snippet string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: status %d body: %s", e.URL, e.Status, e.Snippet)
}

// Temporary reports whether a later attempt might succeed.
func (e *StatusError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// Options configure a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads raw feed documents.
type Fetcher struct {
	client  httpclient.Client
	timeout time.Duration
}

// New builds a Fetcher. A nil client gets a resty client configured from opts.
func New(client httpclient.Client, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if client == nil {
		client = httpclient.NewRestyClient(opts.Timeout, httpclient.WithUserAgent(opts.UserAgent))
	}
	return &Fetcher{client: client, timeout: opts.Timeout}
}

// Fetch performs one GET of url bounded by the fetch timeout. Non-2xx
// responses and transport errors are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("fetcher is not initialized")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.client.Get(ctx, url, map[string]string{
		"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, &StatusError{URL: url, Status: status, Snippet: responseSnippet(resp.Body())}
	}

	body := resp.Body()
	if len(body) > maxFeedBytes {
		body = body[:maxFeedBytes]
	}
	return body, nil
}

// Retryable reports whether err from Fetch is worth another attempt.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyURL) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func responseSnippet(body []byte) string {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxSnippetSize {
		snippet = snippet[:maxSnippetSize]
	}
	return snippet
}
