// Package surface classifies the ground under each wheel by querying an
// external world collaborator and detects per-wheel surface transitions.
// It only reports; turning a transition into a suspension impulse is the
// coordinator's job, which keeps detection and response independently
// testable.
package surface

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/pkg/core"
)

// World answers surface queries for a planar position. Implementations
// must be synchronous in-memory lookups; the sim never waits on a query.
type World interface {
	SampleAt(x, z float64) core.SurfaceSample
}

// State is the per-vehicle surface snapshot.
type State struct {
	Samples [core.NumCorners]core.SurfaceSample
}

type vehicle struct {
	desc *core.VehicleDescriptor

	x, z, yaw float64

	samples     [core.NumCorners]core.SurfaceSample
	prev        [core.NumCorners]core.SurfaceSample
	transitions []core.TransitionEvent
}

// System tracks per-wheel surface classification for all registered vehicles.
type System struct {
	log      zerolog.Logger
	world    World // may be nil; everything degrades to UNKNOWN
	vehicles map[core.VehicleID]*vehicle
	order    []core.VehicleID
}

// New creates a surface system querying the given world. A nil world is
// a legitimate configuration (isolated tests); all wheels then report
// UNKNOWN and no transitions are emitted.
func New(log zerolog.Logger, world World) *System {
	return &System{
		log:      log.With().Str("system", "surface").Logger(),
		world:    world,
		vehicles: make(map[core.VehicleID]*vehicle),
	}
}

// Register adds a vehicle with all wheels unclassified.
func (s *System) Register(desc *core.VehicleDescriptor) {
	s.vehicles[desc.ID] = &vehicle{desc: desc}
	s.order = append(s.order, desc.ID)
}

// Unregister removes a vehicle and its classification history.
func (s *System) Unregister(id core.VehicleID) {
	delete(s.vehicles, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetPose feeds the vehicle pose produced by locomotion this step.
func (s *System) SetPose(id core.VehicleID, x, z, yaw float64) {
	if v, ok := s.vehicles[id]; ok {
		v.x, v.z, v.yaw = x, z, yaw
	}
}

// FixedUpdate reclassifies every wheel and collects transition events
// for this step only; the previous step's events are discarded.
func (s *System) FixedUpdate(dt float64) {
	for _, id := range s.order {
		v := s.vehicles[id]
		v.transitions = v.transitions[:0]

		sinYaw, cosYaw := math.Sin(v.yaw), math.Cos(v.yaw)
		for _, c := range core.Corners {
			wx, wz := v.desc.WheelOffset(c)
			// Rotate the wheel offset into the world frame.
			worldX := v.x + wx*cosYaw + wz*sinYaw
			worldZ := v.z - wx*sinYaw + wz*cosYaw

			sample := core.SurfaceSample{Kind: core.SurfaceUnknown}
			if s.world != nil {
				sample = s.world.SampleAt(worldX, worldZ)
			}

			prev := v.samples[c]
			v.prev[c] = prev
			v.samples[c] = sample

			// Transitions only between resolved kinds: the first frame a
			// vehicle exists must not produce a spurious impulse.
			if prev.Kind.Resolved() && sample.Kind.Resolved() && prev.Kind != sample.Kind {
				v.transitions = append(v.transitions, core.TransitionEvent{
					Corner:     c,
					From:       prev.Kind,
					To:         sample.Kind,
					FromHeight: prev.Height,
					ToHeight:   sample.Height,
				})
			}
		}
	}
}

// Transitions returns the transition events detected this step. The
// returned slice is the caller's to keep; it is not invalidated by the
// next FixedUpdate.
func (s *System) Transitions(id core.VehicleID) []core.TransitionEvent {
	v, ok := s.vehicles[id]
	if !ok || len(v.transitions) == 0 {
		return nil
	}
	out := make([]core.TransitionEvent, len(v.transitions))
	copy(out, v.transitions)
	return out
}

// State returns the per-wheel classification snapshot for a vehicle.
func (s *System) State(id core.VehicleID) (State, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return State{}, false
	}
	return State{Samples: v.samples}, true
}

// IsOnSurface reports whether at least one wheel rests on the given kind.
func (s *System) IsOnSurface(id core.VehicleID, kind core.SurfaceKind) bool {
	v, ok := s.vehicles[id]
	if !ok {
		return false
	}
	for _, sample := range v.samples {
		if sample.Kind == kind {
			return true
		}
	}
	return false
}

// AllOnAsphalt reports whether every wheel rests on asphalt.
func (s *System) AllOnAsphalt(id core.VehicleID) bool {
	v, ok := s.vehicles[id]
	if !ok {
		return false
	}
	for _, sample := range v.samples {
		if sample.Kind != core.SurfaceAsphalt {
			return false
		}
	}
	return true
}

// DominantSurface returns the kind under the most wheels. Ties resolve
// to the lower-numbered kind; a vehicle with no resolved wheels reports
// UNKNOWN.
func (s *System) DominantSurface(id core.VehicleID) core.SurfaceKind {
	v, ok := s.vehicles[id]
	if !ok {
		return core.SurfaceUnknown
	}
	var counts [core.SurfaceGrass + 1]int
	for _, sample := range v.samples {
		counts[sample.Kind]++
	}
	best := core.SurfaceUnknown
	bestCount := 0
	for kind := core.SurfaceAsphalt; kind <= core.SurfaceGrass; kind++ {
		if counts[kind] > bestCount {
			best = kind
			bestCount = counts[kind]
		}
	}
	return best
}
