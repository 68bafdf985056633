package publishers

import (
	"context"
	"fmt"

	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
)

// Builder creates a Publisher from a validated config entry.
type Builder func(ctx context.Context, cfg Config, log logger.Logger) (Publisher, error)

var builders = map[string]Builder{
	TypeWebhook:   newWebhookPublisher,
	TypeSQS:       newSQSPublisher,
	TypeSNS:       newSNSPublisher,
	TypeGCPPubSub: newPubSubPublisher,
}

// Build instantiates the publisher for one entry.
func Build(ctx context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	build, ok := builders[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return build(ctx, cfg, logger.Ensure(log))
}

// BuildAll instantiates every entry and returns them behind a Fanout. On error
// the publishers built so far are closed.
func BuildAll(ctx context.Context, cfgs []Config, log logger.Logger) (*Fanout, error) {
	fanout := NewFanout()
	for _, cfg := range cfgs {
		pub, err := Build(ctx, cfg, log)
		if err != nil {
			_ = fanout.Close()
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		fanout.Add(pub, cfg.Triggers...)
	}
	return fanout, nil
}
