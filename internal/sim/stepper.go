// Package sim provides the fixed-step scheduler that converts the host
// loop's irregular cadence into a regular one. Wall-clock time is
// accumulated and drained in fixed increments; a substep cap keeps a
// stalled caller from triggering unbounded catch-up.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// Steppable is advanced by one fixed increment at a time. The stepper
// calls FixedUpdate synchronously and never reorders or overlaps calls.
type Steppable interface {
	FixedUpdate(dt float64)
}

// Option configures a Stepper.
type Option func(*Stepper)

// WithStepHz sets the fixed step rate. Default is 60.
func WithStepHz(hz float64) Option {
	return func(s *Stepper) {
		if hz > 0 {
			s.dt = 1 / hz
		}
	}
}

// WithMaxSubsteps caps the increments drained per Advance call. Default is 10.
func WithMaxSubsteps(n int) Option {
	return func(s *Stepper) {
		if n > 0 {
			s.maxSubsteps = n
		}
	}
}

// Stepper accumulates elapsed wall-clock time and drains it in fixed
// increments. Excess time beyond the substep cap is discarded, trading
// determinism-under-stall for liveness.
type Stepper struct {
	target      Steppable
	log         zerolog.Logger
	dt          float64
	maxSubsteps int
	accumulator float64

	steps        metric.Int64Counter
	stepDuration metric.Float64Histogram
	droppedTime  metric.Float64Counter
}

// NewStepper creates a stepper driving the given target.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewStepper(log zerolog.Logger, target Steppable, opts ...Option) (*Stepper, error) {
	s := &Stepper{
		target:      target,
		log:         log,
		dt:          1.0 / 60.0,
		maxSubsteps: 10,
	}
	for _, opt := range opts {
		opt(s)
	}

	m := meter()

	var err error
	s.steps, err = m.Int64Counter(
		"sim.steps",
		metric.WithDescription("Total fixed steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}
	s.stepDuration, err = m.Float64Histogram(
		"sim.step.duration",
		metric.WithDescription("Wall time spent per fixed step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}
	s.droppedTime, err = m.Float64Counter(
		"sim.dropped.time",
		metric.WithDescription("Accumulated time discarded at the substep cap"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped time counter: %w", err)
	}

	return s, nil
}

// StepDt returns the fixed increment duration in seconds.
func (s *Stepper) StepDt() float64 {
	return s.dt
}

// Advance adds elapsed seconds to the accumulator and drains it in fixed
// increments, returning the number of steps executed. At most maxSubsteps
// increments run per call; any remaining accumulated time is dropped.
func (s *Stepper) Advance(elapsed float64) int {
	if elapsed < 0 {
		return 0
	}
	s.accumulator += elapsed

	ctx := context.Background()
	ran := 0
	for s.accumulator >= s.dt && ran < s.maxSubsteps {
		start := time.Now()
		s.target.FixedUpdate(s.dt)
		s.stepDuration.Record(ctx, time.Since(start).Seconds())
		s.accumulator -= s.dt
		ran++
	}
	s.steps.Add(ctx, int64(ran))

	if s.accumulator >= s.dt {
		dropped := s.accumulator
		s.accumulator = 0
		s.droppedTime.Add(ctx, dropped)
		s.log.Warn().
			Float64("droppedSeconds", dropped).
			Int("substepCap", s.maxSubsteps).
			Msg("Host loop stalled, discarding accumulated time")
	}
	return ran
}
