// Package brake models a scalar brake force per vehicle with an
// asymmetric rise/decay envelope: force builds quickly under pedal or
// handbrake input and bleeds off more slowly on release.
package brake

import (
	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/pkg/core"
)

// forceEpsilon is the threshold below which a decaying force snaps to
// zero so the brake lights release cleanly.
const forceEpsilon = 1e-3

// State is the per-vehicle brake snapshot.
type State struct {
	Force    float64 // N
	LightsOn bool
}

type vehicle struct {
	tuning    core.BrakeTuning
	pedal     float64
	handbrake bool
	force     float64
}

// System tracks brake state for all registered vehicles.
type System struct {
	log      zerolog.Logger
	vehicles map[core.VehicleID]*vehicle
	order    []core.VehicleID
}

// New creates an empty brake system.
func New(log zerolog.Logger) *System {
	return &System{
		log:      log.With().Str("system", "brake").Logger(),
		vehicles: make(map[core.VehicleID]*vehicle),
	}
}

// Register adds a vehicle. Called by the coordinator only.
func (s *System) Register(desc *core.VehicleDescriptor) {
	s.vehicles[desc.ID] = &vehicle{tuning: desc.Brake}
	s.order = append(s.order, desc.ID)
}

// Unregister removes a vehicle and its state.
func (s *System) Unregister(id core.VehicleID) {
	delete(s.vehicles, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetTuning replaces the brake tuning block after validating it.
func (s *System) SetTuning(id core.VehicleID, t core.BrakeTuning) error {
	v, ok := s.vehicles[id]
	if !ok {
		return nil
	}
	if err := t.Validate(); err != nil {
		return err
	}
	v.tuning = t
	return nil
}

// SetInput records the latest pedal and handbrake input for a vehicle.
// Unknown vehicles are ignored.
func (s *System) SetInput(id core.VehicleID, pedal float64, handbrake bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return
	}
	v.pedal = pedal
	v.handbrake = handbrake
}

// FixedUpdate advances every vehicle's brake force by one fixed step.
func (s *System) FixedUpdate(dt float64) {
	for _, id := range s.order {
		v := s.vehicles[id]
		target := v.pedal * v.tuning.MaxForce
		if v.handbrake {
			target = v.tuning.MaxForce
		}

		rate := v.tuning.DecayRate
		if target > v.force {
			rate = v.tuning.RiseRate
		}
		blend := rate * dt
		if blend > 1 {
			blend = 1
		}
		v.force += (target - v.force) * blend

		if target == 0 && v.force < forceEpsilon {
			v.force = 0
		}
	}
}

// State returns the brake snapshot for a vehicle.
func (s *System) State(id core.VehicleID) (State, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return State{}, false
	}
	return State{Force: v.force, LightsOn: v.force > 0}, true
}
