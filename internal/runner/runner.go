// Package runner drives pipeline cycles on a fixed interval with
// heartbeat reporting and failure isolation: a failed cycle is recorded
// and the loop keeps going.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meme-radar/internal/domain"
	"meme-radar/internal/observability"
	"meme-radar/internal/pipeline"
	"meme-radar/internal/storage"
)

// Default knobs.
const (
	DefaultInterval    = 1800 * time.Second
	DefaultGracePeriod = 5 * time.Second
	DefaultComponent   = "runner"
)

// State of the runner's cycle loop.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
	StateStopped State = "stopped"
)

// CycleRunner executes one pipeline pass.
type CycleRunner interface {
	RunCycle(ctx context.Context) *pipeline.CycleReport
}

// Options configures a Runner.
type Options struct {
	Pipeline CycleRunner         // required
	Statuses storage.StatusStore // required

	Interval    time.Duration // default 1800s
	GracePeriod time.Duration // bound on shutdown bookkeeping, default 5s
	Component   string        // heartbeat component name, default "runner"

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Runner owns the cycle loop. Only one cycle is in flight at a time; when
// a cycle overruns the interval the next one starts immediately.
type Runner struct {
	pipeline    CycleRunner
	statuses    storage.StatusStore
	interval    time.Duration
	gracePeriod time.Duration
	component   string
	metrics     *observability.Metrics
	logger      zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("runner: pipeline is required")
	}
	if opts.Statuses == nil {
		return nil, errors.New("runner: status store is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	gracePeriod := opts.GracePeriod
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	component := opts.Component
	if component == "" {
		component = DefaultComponent
	}

	return &Runner{
		pipeline:    opts.Pipeline,
		statuses:    opts.Statuses,
		interval:    interval,
		gracePeriod: gracePeriod,
		component:   component,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		state:       StateIdle,
	}, nil
}

// State returns the loop's current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes cycles until ctx is canceled, then records the shutdown
// and returns. Cycle failures never terminate the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("runner started")

	for {
		if ctx.Err() != nil {
			return r.stop()
		}

		start := time.Now()
		r.runOnce(ctx)

		// A cycle that overran the interval starts the next one
		// immediately; cycles never pile up because this loop is the
		// only dispatcher.
		wait := r.interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return r.stop()
		case <-time.After(wait):
		}
	}
}

// runOnce drives a single cycle through the state machine.
func (r *Runner) runOnce(ctx context.Context) {
	r.setState(StateRunning)
	r.heartbeat(ctx, domain.StatusRunning, "cycle started")

	report := r.pipeline.RunCycle(ctx)

	if report.Failed() {
		summary := report.ErrorSummary()
		r.setState(StateError)
		r.heartbeat(ctx, domain.StatusError, summary)
		r.logger.Error().Str("errors", summary).Dur("duration", report.Duration).Msg("cycle completed with errors")
		if r.metrics != nil {
			r.metrics.CyclesTotal.WithLabelValues("error").Inc()
		}
	} else {
		r.setState(StateIdle)
		r.heartbeat(ctx, domain.StatusIdle, "cycle completed")
		r.logger.Info().
			Int("posts", report.Posts).
			Int("trending", len(report.Trending)).
			Int("enriched", report.Enriched).
			Dur("duration", report.Duration).
			Msg("cycle completed")
		if r.metrics != nil {
			r.metrics.CyclesTotal.WithLabelValues("ok").Inc()
			r.metrics.LastSuccessfulCycle.SetToCurrentTime()
		}
	}

	// Error is a per-cycle verdict; the loop itself goes back to idle.
	if r.State() == StateError {
		r.setState(StateIdle)
	}
}

// stop records the final heartbeat within the grace period.
func (r *Runner) stop() error {
	r.setState(StateStopped)

	ctx, cancel := context.WithTimeout(context.Background(), r.gracePeriod)
	defer cancel()
	r.heartbeat(ctx, domain.StatusIdle, "runner stopped")

	r.logger.Info().Msg("runner stopped")
	return nil
}

// heartbeat records liveness; a failing status store is logged, never fatal.
func (r *Runner) heartbeat(ctx context.Context, status domain.Status, message string) {
	// Heartbeats must land even when shutdown canceled the cycle context.
	hbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.gracePeriod)
	defer cancel()

	if err := r.statuses.Heartbeat(hbCtx, r.component, status, message); err != nil {
		r.logger.Warn().Err(err).Str("status", string(status)).Msg("heartbeat write failed")
	}
}
