// Package scheduler drives the capture/upload cycle: one cooperative
// loop that acquires a snapshot, uploads it, feeds the outcome into the
// backoff state and waits out the delay in small interruptible steps.
package scheduler

import (
	"context"
	"time"

	"github.com/JamesStuff/jimbo-cam/internal/journal"
	"github.com/JamesStuff/jimbo-cam/internal/uploader"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Acquirer produces one encoded snapshot per call.
type Acquirer interface {
	Acquire(ctx context.Context) ([]byte, error)
}

// Uploader transmits a snapshot and classifies the attempt.
type Uploader interface {
	Upload(ctx context.Context, jpeg []byte) uploader.Outcome
}

// Recorder receives per-cycle outcomes. *journal.Journal satisfies it;
// recording is best effort and never fails a cycle.
type Recorder interface {
	Record(ctx context.Context, c journal.Cycle) error
}

// Escalated delay bounds. Every failed cycle recomputes the delay as an
// absolute value from the base interval (not compounding from the
// previous delay), so consecutive failures hold steady at one escalated
// cadence instead of growing without bound.
const (
	backoffFloor = 15 * time.Second
	backoffCeil  = 120 * time.Second
)

// EscalatedDelay returns the post-failure delay for a base interval:
// base*3 clamped into [backoffFloor, backoffCeil].
func EscalatedDelay(base time.Duration) time.Duration {
	delay := base * 3
	if delay < backoffFloor {
		delay = backoffFloor
	}
	if delay > backoffCeil {
		delay = backoffCeil
	}
	return delay
}

// Config controls the capture loop.
type Config struct {
	// BaseInterval is the cadence between successful cycles.
	BaseInterval time.Duration
	// WaitStep bounds how long a stop request can go unnoticed during a
	// backoff wait. Defaults to one second.
	WaitStep time.Duration
	Acquirer Acquirer
	Uploader Uploader
	// Recorder is optional; nil disables the cycle journal.
	Recorder Recorder
}

// Loop owns the backoff state and the run lifecycle.
type Loop struct {
	cfg   Config
	delay time.Duration
	now   func() time.Time
	timer func(time.Duration) <-chan time.Time
}

// New validates the configuration and builds a loop with the delay
// initialized to the base interval.
func New(cfg Config) (*Loop, error) {
	if cfg.Acquirer == nil {
		return nil, errors.New("scheduler acquirer cannot be nil")
	}
	if cfg.Uploader == nil {
		return nil, errors.New("scheduler uploader cannot be nil")
	}
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = 10 * time.Second
	}
	if cfg.WaitStep <= 0 {
		cfg.WaitStep = time.Second
	}
	return &Loop{
		cfg:   cfg,
		delay: cfg.BaseInterval,
		now:   time.Now,
		timer: time.After,
	}, nil
}

// Run executes cycles until ctx is canceled. A failed capture or upload
// never terminates the loop; cancellation takes effect only at the wait
// boundary, so in-flight work always finishes. A stop is a clean exit,
// not an error.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", l.cfg.BaseInterval).
		Msg("capture loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("capture loop exiting")
			return nil
		default:
		}
		l.runCycle(ctx)
		if !l.wait(ctx) {
			log.Info().Msg("capture loop exiting")
			return nil
		}
	}
}

// runCycle performs one acquisition and upload, updating the backoff
// delay from the outcome.
func (l *Loop) runCycle(ctx context.Context) {
	start := l.now()
	cycle := journal.Cycle{CapturedAt: start}

	jpeg, err := l.cfg.Acquirer.Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("capture failed")
		l.delay = EscalatedDelay(l.cfg.BaseInterval)
		cycle.Outcome = "capture_error"
		cycle.Detail = err.Error()
		l.record(ctx, cycle, start)
		return
	}
	cycle.SnapshotBytes = len(jpeg)

	outcome := l.cfg.Uploader.Upload(ctx, jpeg)
	cycle.Outcome = outcome.Kind.String()
	cycle.StatusCode = outcome.StatusCode
	switch outcome.Kind {
	case uploader.Success:
		l.delay = l.cfg.BaseInterval
	case uploader.ClientError:
		log.Error().
			Int("status", outcome.StatusCode).
			Str("body", outcome.Body).
			Msg("upload rejected")
		l.delay = EscalatedDelay(l.cfg.BaseInterval)
		cycle.Detail = outcome.Body
	case uploader.TransportError:
		log.Error().Err(outcome.Err).Msg("upload failed")
		l.delay = EscalatedDelay(l.cfg.BaseInterval)
		if outcome.Err != nil {
			cycle.Detail = outcome.Err.Error()
		}
	}
	l.record(ctx, cycle, start)
}

func (l *Loop) record(ctx context.Context, c journal.Cycle, start time.Time) {
	if l.cfg.Recorder == nil {
		return
	}
	c.Duration = l.now().Sub(start)
	if err := l.cfg.Recorder.Record(ctx, c); err != nil {
		log.Warn().Err(err).Msg("record cycle to journal failed")
	}
}

// wait sleeps out the current delay in WaitStep increments, checking for
// a stop request between steps. Returns false when the loop should exit.
func (l *Loop) wait(ctx context.Context) bool {
	log.Info().Dur("delay", l.delay).Msg("next snapshot scheduled")
	remaining := l.delay
	for remaining > 0 {
		step := l.cfg.WaitStep
		if step > remaining {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-l.timer(step):
			remaining -= step
		}
	}
	return true
}

// NextDelay reports the delay the loop will wait before the next cycle.
func (l *Loop) NextDelay() time.Duration {
	return l.delay
}
