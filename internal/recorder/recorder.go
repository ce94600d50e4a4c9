// Package recorder buffers vehicle-state snapshots from the sim loop
// and drains them into a storage backend. Capture is cheap and
// non-blocking; Flush does the actual backend writes so the fixed-step
// loop never waits on storage.
package recorder

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/internal/queue"
	"github.com/openroads/drivecore/internal/storage"
	"github.com/openroads/drivecore/pkg/core"
)

// BatchWriter is an optional interface backends implement to accept a
// whole flush in one call.
type BatchWriter interface {
	RecordVehicleStates(states []core.VehicleState) error
}

// VehicleTransition pairs a surface transition event with the vehicle
// it happened to, so the queue carries everything a backend write needs.
type VehicleTransition struct {
	ID    core.VehicleID
	Event core.TransitionEvent
}

// Recorder connects the sim loop to a storage backend through queues.
type Recorder struct {
	log         zerolog.Logger
	backend     storage.Backend
	states      *queue.Queue[core.VehicleState]
	transitions *queue.Queue[VehicleTransition]
}

// New creates a recorder writing to the given backend.
func New(log zerolog.Logger, backend storage.Backend) *Recorder {
	return &Recorder{
		log:         log.With().Str("component", "recorder").Logger(),
		backend:     backend,
		states:      queue.New[core.VehicleState](),
		transitions: queue.New[VehicleTransition](),
	}
}

// Capture enqueues snapshots for the next flush.
func (r *Recorder) Capture(states ...core.VehicleState) {
	r.states.Push(states...)
}

// CaptureTransitions enqueues the surface transitions a vehicle saw
// this step.
func (r *Recorder) CaptureTransitions(id core.VehicleID, events []core.TransitionEvent) {
	for _, ev := range events {
		r.transitions.Push(VehicleTransition{ID: id, Event: ev})
	}
}

// Pending returns the number of captured items awaiting a flush.
func (r *Recorder) Pending() int {
	return r.states.Len() + r.transitions.Len()
}

// Flush drains the queues into the backend. Uses the batch interface
// for states when available, falling back to per-state writes.
func (r *Recorder) Flush() error {
	states := r.states.Drain()
	if len(states) > 0 {
		if bw, ok := r.backend.(BatchWriter); ok {
			if err := bw.RecordVehicleStates(states); err != nil {
				return fmt.Errorf("flushing %d states: %w", len(states), err)
			}
		} else {
			for i := range states {
				if err := r.backend.RecordVehicleState(&states[i]); err != nil {
					return fmt.Errorf("flushing state %d of %d: %w", i+1, len(states), err)
				}
			}
		}
	}

	for _, tr := range r.transitions.Drain() {
		if err := r.backend.RecordTransition(tr.ID, tr.Event); err != nil {
			return fmt.Errorf("flushing transition for %s: %w", tr.ID, err)
		}
	}
	return nil
}
