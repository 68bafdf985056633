package publishers

import "context"

// Publisher sends events to a downstream sink (SQS, SNS, Pub/Sub, HTTP).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// queueSender delivers one serialized event to a message broker.
type queueSender interface {
	Send(ctx context.Context, evt Event) error
}
