// Package scheduler runs periodic jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
)

// Task is a unit of scheduled work. The context is cancelled on Shutdown.
type Task func(ctx context.Context) error

// JobOption tweaks a single job.
type JobOption func(*jobConfig)

type jobConfig struct {
	immediately bool
}

// RunImmediately fires the job once as soon as the scheduler starts, then on
// its schedule.
func RunImmediately() JobOption {
	return func(c *jobConfig) { c.immediately = true }
}

// Scheduler wraps a gocron scheduler. A job never overlaps itself: a tick that
// fires while the previous run is still busy is skipped.
type Scheduler struct {
	cron   gocron.Scheduler
	log    logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler working in UTC.
func New(log logger.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron,
		log:    logger.Ensure(log),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// AddCron registers task under name on a five-field cron expression, or a
// six-field one when the first field holds seconds.
func (s *Scheduler) AddCron(name, spec string, task Task, opts ...JobOption) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("job %s: empty cron expression", name)
	}
	if task == nil {
		return fmt.Errorf("job %s: nil task", name)
	}
	var cfg jobConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	withSeconds := len(strings.Fields(spec)) == 6

	jobOpts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if cfg.immediately {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.cron.NewJob(
		gocron.CronJob(spec, withSeconds),
		gocron.NewTask(s.wrap(name, task)),
		jobOpts...,
	)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.log.InfoObj("job scheduled", "job", map[string]any{
		"name":        name,
		"cron":        spec,
		"immediately": cfg.immediately,
	})
	return nil
}

// Start begins firing jobs. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown cancels running tasks and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) wrap(name string, task Task) func() {
	return func() {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				s.log.ErrorObj("job panicked", "job", map[string]any{
					"name":  name,
					"panic": fmt.Sprint(r),
				})
			}
		}()

		if err := task(s.ctx); err != nil {
			s.log.ErrorObj("job failed", "job", map[string]any{
				"name":       name,
				"error":      err.Error(),
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
			return
		}
		s.log.DebugObj("job finished", "job", map[string]any{
			"name":       name,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}
