package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
	"github.com/captainnews-gr/captainnews-harvester/pkg/httpclient"
)

const (
	headerTrigger  = "X-Snapshot-Trigger"
	headerCacheKey = "X-Snapshot-Key"
)

// webhookPublisher posts the event JSON to an HTTP endpoint, retrying on
// transport errors and 5xx answers.
type webhookPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    logger.Logger
}

func newWebhookPublisher(_ context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	if cfg.Webhook == nil {
		return nil, fmt.Errorf("publisher %q missing webhook configuration", cfg.ID)
	}
	wh := cfg.Webhook

	opts := make([]httpclient.Option, 0, len(wh.Headers))
	for k, v := range wh.Headers {
		opts = append(opts, httpclient.WithHeader(k, v))
	}
	client := httpclient.NewRestyHTTPClient(time.Duration(wh.TimeoutSeconds)*time.Second, opts...).
		SetRetryCount(wh.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &webhookPublisher{
		id:     cfg.ID,
		method: wh.Method,
		url:    wh.URL,
		client: client,
		log:    log,
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeWebhook }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerTrigger, evt.Trigger).
		SetHeader(headerCacheKey, evt.CacheKey).
		SetBody(evt).
		Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook response status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	w.log.DebugObj("webhook delivered snapshot event", "publisher_webhook_delivery", map[string]any{
		"publisher_id": w.id,
		"status":       resp.StatusCode(),
		"attempts":     resp.Request.Attempt,
	})
	return nil
}

func snippet(body []byte) string {
	if len(body) > 256 {
		body = body[:256]
	}
	return strings.TrimSpace(string(body))
}
