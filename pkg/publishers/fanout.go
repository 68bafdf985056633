package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

type route struct {
	pub      Publisher
	triggers []string
}

func (r route) accepts(trigger string) bool {
	return len(r.triggers) == 0 || slices.Contains(r.triggers, trigger)
}

// Fanout delivers each event to every publisher subscribed to its trigger.
// Deliveries run concurrently so a slow sink does not hold back the others.
type Fanout struct {
	routes []route
}

// NewFanout builds a dispatcher over pubs, each receiving every trigger.
func NewFanout(pubs ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		f.Add(p)
	}
	return f
}

// Add subscribes pub to triggers, or to all of them when none are given.
func (f *Fanout) Add(pub Publisher, triggers ...string) {
	if pub == nil {
		return
	}
	f.routes = append(f.routes, route{pub: pub, triggers: triggers})
}

// Publish returns the number of publishers that accepted the event.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.routes) == 0 {
		return 0, nil
	}

	var delivered atomic.Int64
	p := pool.New().WithErrors().WithContext(ctx)
	for _, r := range f.routes {
		if !r.accepts(evt.Trigger) {
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := r.pub.Publish(ctx, evt); err != nil {
				return fmt.Errorf("%s publisher[%s]: %w", r.pub.Type(), r.pub.ID(), err)
			}
			delivered.Add(1)
			return nil
		})
	}
	err := p.Wait()
	return int(delivered.Load()), err
}

// Size returns the number of registered publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.routes)
}

// Close releases publishers holding broker connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.routes {
		if c, ok := r.pub.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", r.pub.Type(), r.pub.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
