// Package drivetrain models engine RPM and gear selection from throttle
// and an externally supplied vehicle speed. The clutch decouples engine
// RPM from wheel speed below a small speed threshold; gear shifts are
// instantaneous at the tick boundary and recompute RPM from the new
// ratio so there is no discontinuity.
package drivetrain

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/pkg/core"
)

// State is the per-vehicle drivetrain snapshot.
type State struct {
	RPM           float64
	Gear          int // 1-based
	ClutchEngaged bool
}

type vehicle struct {
	tuning        core.DrivetrainTuning
	throttle      float64
	speed         float64 // fed externally, one step behind locomotion
	rpm           float64
	gear          int
	clutchEngaged bool
}

// System tracks drivetrain state for all registered vehicles.
type System struct {
	log      zerolog.Logger
	vehicles map[core.VehicleID]*vehicle
	order    []core.VehicleID

	// wheelRadius per vehicle, needed to turn road speed into RPM
	wheelRadius map[core.VehicleID]float64
}

// New creates an empty drivetrain system.
func New(log zerolog.Logger) *System {
	return &System{
		log:         log.With().Str("system", "drivetrain").Logger(),
		vehicles:    make(map[core.VehicleID]*vehicle),
		wheelRadius: make(map[core.VehicleID]float64),
	}
}

// Register adds a vehicle starting at idle in first gear.
func (s *System) Register(desc *core.VehicleDescriptor) {
	s.vehicles[desc.ID] = &vehicle{
		tuning: desc.Drivetrain,
		rpm:    desc.Drivetrain.IdleRPM,
		gear:   1,
	}
	s.wheelRadius[desc.ID] = desc.Locomotion.WheelRadius
	s.order = append(s.order, desc.ID)
}

// Unregister removes a vehicle and its state.
func (s *System) Unregister(id core.VehicleID) {
	delete(s.vehicles, id)
	delete(s.wheelRadius, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetTuning replaces the drivetrain tuning block after validating it.
// The current gear is clamped into the new table.
func (s *System) SetTuning(id core.VehicleID, t core.DrivetrainTuning) error {
	v, ok := s.vehicles[id]
	if !ok {
		return nil
	}
	if err := t.Validate(); err != nil {
		return err
	}
	v.tuning = t
	if v.gear > len(t.GearRatios) {
		v.gear = len(t.GearRatios)
	}
	return nil
}

// SetInput records the latest throttle input for a vehicle.
func (s *System) SetInput(id core.VehicleID, throttle float64) {
	if v, ok := s.vehicles[id]; ok {
		v.throttle = throttle
	}
}

// SetExternalSpeed feeds the vehicle speed used to track road RPM.
// The coordinator calls this with the prior step's locomotion speed.
func (s *System) SetExternalSpeed(id core.VehicleID, speed float64) {
	if v, ok := s.vehicles[id]; ok {
		v.speed = math.Abs(speed)
	}
}

// roadRPM converts vehicle speed to engine RPM through the given gear.
func (s *System) roadRPM(v *vehicle, gear int, radius float64) float64 {
	wheelRadPerSec := v.speed / radius
	ratio := v.tuning.GearRatios[gear-1] * v.tuning.FinalDrive
	return wheelRadPerSec * ratio * 60 / (2 * math.Pi)
}

// FixedUpdate advances every vehicle's drivetrain by one fixed step.
func (s *System) FixedUpdate(dt float64) {
	for _, id := range s.order {
		v := s.vehicles[id]
		radius := s.wheelRadius[id]
		t := &v.tuning

		v.clutchEngaged = v.speed > t.ClutchEngageSpeed

		var target float64
		if v.clutchEngaged {
			target = s.roadRPM(v, v.gear, radius)
		} else {
			// Standstill: throttle revs the free engine toward redline.
			target = t.IdleRPM + v.throttle*(t.MaxRPM-t.IdleRPM)
		}
		if target < t.IdleRPM {
			target = t.IdleRPM
		}

		if target > v.rpm {
			v.rpm = math.Min(target, v.rpm+t.RiseRate*dt)
		} else {
			v.rpm = math.Max(target, v.rpm-t.FallRate*dt)
		}

		if v.clutchEngaged {
			if v.rpm > t.UpshiftRPM && v.gear < len(t.GearRatios) {
				v.gear++
				v.rpm = s.roadRPM(v, v.gear, radius)
			} else if v.rpm < t.DownshiftRPM && v.gear > 1 {
				v.gear--
				v.rpm = s.roadRPM(v, v.gear, radius)
			}
		}

		v.rpm = math.Min(t.MaxRPM, math.Max(t.IdleRPM, v.rpm))

		if v.gear < 1 || v.gear > len(t.GearRatios) {
			panic(fmt.Errorf("drivetrain: vehicle %s gear %d outside table of %d", id, v.gear, len(t.GearRatios)))
		}
	}
}

// State returns the drivetrain snapshot for a vehicle.
func (s *System) State(id core.VehicleID) (State, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return State{}, false
	}
	return State{RPM: v.rpm, Gear: v.gear, ClutchEngaged: v.clutchEngaged}, true
}
