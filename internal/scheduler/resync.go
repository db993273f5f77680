// Package scheduler runs the periodic full resync of the store.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Refresher reloads every slice of client state.
type Refresher interface {
	HasSession() bool
	RefreshAppData(ctx context.Context) error
}

// Resync refreshes the store at a fixed interval, covering events missed while the
// realtime feed was disconnected.
type Resync struct {
	sched    gocron.Scheduler
	interval time.Duration
	timeout  time.Duration
}

// NewResync registers the resync job. A non-positive interval returns nil: resync is disabled.
func NewResync(target Refresher, interval time.Duration, opts ...gocron.SchedulerOption) (*Resync, error) {
	if interval <= 0 {
		return nil, nil
	}

	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	r := &Resync{sched: sched, interval: interval, timeout: interval}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if !target.HasSession() {
				log.Debug().Msg("Periodic resync skipped, signed out")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if err := target.RefreshAppData(ctx); err != nil {
				log.Warn().Err(err).Msg("Periodic resync finished with errors")
				return
			}
			log.Debug().Msg("Periodic resync done")
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("resync"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register resync job: %w", err)
	}
	return r, nil
}

// Start begins running the job.
func (r *Resync) Start() {
	if r == nil {
		return
	}
	r.sched.Start()
	log.Info().Dur("interval", r.interval).Msg("Periodic resync started")
}

// Stop waits for a running refresh and stops the scheduler.
func (r *Resync) Stop() error {
	if r == nil {
		return nil
	}
	return r.sched.Shutdown()
}
