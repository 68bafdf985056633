package publishers

import (
	"context"
	"fmt"
	"io"
)

// queuePublisher adapts a broker sender to the Publisher interface.
type queuePublisher struct {
	id     string
	typ    string
	sender queueSender
}

func (q *queuePublisher) ID() string   { return q.id }
func (q *queuePublisher) Type() string { return q.typ }

func (q *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if q.sender == nil {
		return fmt.Errorf("publisher %q has no sender", q.id)
	}
	return q.sender.Send(ctx, evt)
}

func (q *queuePublisher) Close() error {
	if c, ok := q.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
