// Package suspension maintains one progressive spring-damper record per
// wheel corner. Each step the effective target compression combines an
// externally commanded value with a load-transfer term derived from the
// chassis acceleration, the spring integrates toward it, and a
// least-squares plane through the four corners yields body pitch, roll
// and heave.
package suspension

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/pkg/core"
)

// Spring is the snapshot of one corner's spring record.
type Spring struct {
	Compression          float64
	Velocity             float64
	CommandedCompression float64
	EffectiveTarget      float64
}

// State is the per-vehicle suspension snapshot.
type State struct {
	Springs [core.NumCorners]Spring
	Pitch   float64
	Roll    float64
	Heave   float64
}

// ImpactOptions tunes a single curb impact kick.
type ImpactOptions struct {
	ImpactKick  float64 // velocity per metre of height delta
	MaxVelocity float64 // m/s clamp on the kicked spring velocity
}

type spring struct {
	compression float64
	velocity    float64
	commanded   float64
	effTarget   float64
}

type vehicle struct {
	desc    *core.VehicleDescriptor
	tuning  core.SuspensionTuning
	springs [core.NumCorners]spring

	latAccel  float64
	longAccel float64

	pitch float64
	roll  float64
	heave float64
}

// System tracks suspension state for all registered vehicles.
type System struct {
	log      zerolog.Logger
	vehicles map[core.VehicleID]*vehicle
	order    []core.VehicleID
}

// New creates an empty suspension system.
func New(log zerolog.Logger) *System {
	return &System{
		log:      log.With().Str("system", "suspension").Logger(),
		vehicles: make(map[core.VehicleID]*vehicle),
	}
}

// Register adds a vehicle with all springs at rest.
func (s *System) Register(desc *core.VehicleDescriptor) {
	s.vehicles[desc.ID] = &vehicle{desc: desc, tuning: desc.Suspension}
	s.order = append(s.order, desc.ID)
}

// Unregister removes a vehicle and its spring records.
func (s *System) Unregister(id core.VehicleID) {
	delete(s.vehicles, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetTuning replaces the suspension tuning block after validating it.
// Current compressions are clamped into the new travel range.
func (s *System) SetTuning(id core.VehicleID, t core.SuspensionTuning) error {
	v, ok := s.vehicles[id]
	if !ok {
		return nil
	}
	if err := t.Validate(); err != nil {
		return err
	}
	v.tuning = t
	for i := range v.springs {
		v.springs[i].compression = clamp(v.springs[i].compression, -t.Travel, t.Travel)
	}
	return nil
}

// SetChassisAcceleration feeds the locomotion system's lateral and
// longitudinal acceleration, used for load transfer. Called by the
// coordinator each step before FixedUpdate.
func (s *System) SetChassisAcceleration(id core.VehicleID, lat, long float64) {
	if v, ok := s.vehicles[id]; ok {
		v.latAccel = lat
		v.longAccel = long
	}
}

// SetWheelCompression sets the externally commanded compression for one
// corner, clamped to the travel range. Used by tuning and test harnesses.
func (s *System) SetWheelCompression(id core.VehicleID, c core.Corner, value float64) {
	v, ok := s.vehicles[id]
	if !ok {
		return
	}
	v.springs[c].commanded = clamp(value, -v.tuning.Travel, v.tuning.Travel)
}

// ApplyCurbImpact adds an instantaneous velocity kick to one corner's
// spring, clamped to opts.MaxVelocity. The normal integration settles it,
// rendering a curb strike as a bounce rather than a teleport.
func (s *System) ApplyCurbImpact(id core.VehicleID, c core.Corner, heightDelta float64, opts ImpactOptions) {
	v, ok := s.vehicles[id]
	if !ok {
		return
	}
	sp := &v.springs[c]
	sp.velocity += heightDelta * opts.ImpactKick
	sp.velocity = clamp(sp.velocity, -opts.MaxVelocity, opts.MaxVelocity)
}

// FixedUpdate advances every vehicle's springs by one fixed step.
func (s *System) FixedUpdate(dt float64) {
	for _, id := range s.order {
		v := s.vehicles[id]
		s.step(id, v, dt)
	}
}

func (s *System) step(id core.VehicleID, v *vehicle, dt float64) {
	t := &v.tuning
	cornerMass := v.desc.Mass / core.NumCorners

	// Weight transfer: longitudinal acceleration loads the rear axle,
	// lateral acceleration loads the outside of the turn. Forces become
	// compression offsets through the linear spring rate.
	longForce := v.desc.Mass * v.longAccel * v.desc.CGHeight / v.desc.Wheelbase / 2
	latForce := v.desc.Mass * v.latAccel * v.desc.CGHeight / v.desc.TrackWidth / 2

	for _, c := range core.Corners {
		sp := &v.springs[c]

		transfer := longForce
		if c.IsFront() {
			transfer = -transfer
		}
		// Positive lateral acceleration (turning left) loads the right side.
		if c.IsLeft() {
			transfer -= latForce
		} else {
			transfer += latForce
		}

		sp.effTarget = clamp(sp.commanded+transfer/t.Stiffness, -t.Travel, t.Travel)

		// Progressive spring: restoring force stiffens as the spring
		// nears the travel limit. Semi-implicit Euler keeps this stable
		// at 60 Hz for road-car spring rates.
		x := sp.compression - sp.effTarget
		stiffen := 1 + math.Pow(math.Abs(sp.compression)/t.Travel, t.ProgressiveExponent)
		force := -t.Stiffness*stiffen*x - t.Damping*sp.velocity

		sp.velocity += force / cornerMass * dt
		sp.compression += sp.velocity * dt

		if sp.compression > t.Travel {
			sp.compression = t.Travel
			if sp.velocity > 0 {
				sp.velocity = 0
			}
		} else if sp.compression < -t.Travel {
			sp.compression = -t.Travel
			if sp.velocity < 0 {
				sp.velocity = 0
			}
		}

		if math.IsNaN(sp.compression) || math.Abs(sp.compression) > t.Travel {
			panic(fmt.Errorf("suspension: vehicle %s corner %s compression %v outside ±%v",
				id, c, sp.compression, t.Travel))
		}
	}

	v.roll, v.pitch, v.heave = s.fitBodyPlane(v)
}

// fitBodyPlane fits compression = a·x + b·z + d through the four corner
// records by least squares and reads roll, pitch and heave off the plane.
// This degrades gracefully for non-rectangular wheel layouts; if the
// normal system is singular it falls back to the plain average.
func (s *System) fitBodyPlane(v *vehicle) (roll, pitch, heave float64) {
	var sxx, sxz, szz, sx, sz float64
	var sxc, szc, sc float64
	for _, c := range core.Corners {
		wx, wz := v.desc.WheelOffset(c)
		comp := v.springs[c].compression
		sxx += wx * wx
		sxz += wx * wz
		szz += wz * wz
		sx += wx
		sz += wz
		sxc += wx * comp
		szc += wz * comp
		sc += comp
	}
	n := float64(core.NumCorners)

	// Solve the 3x3 normal equations by Cramer's rule.
	det := sxx*(szz*n-sz*sz) - sxz*(sxz*n-sz*sx) + sx*(sxz*sz-szz*sx)
	if math.Abs(det) < 1e-12 {
		return 0, 0, sc / n
	}
	a := (sxc*(szz*n-sz*sz) - sxz*(szc*n-sz*sc) + sx*(szc*sz-szz*sc)) / det
	b := (sxx*(szc*n-sc*sz) - sxc*(sxz*n-sz*sx) + sx*(sxz*sc-szc*sx)) / det
	d := (sxx*(szz*sc-szc*sz) - sxz*(sxz*sc-szc*sx) + sxc*(sxz*sz-szz*sx)) / det

	// Right side compressing more rolls the body right (positive a);
	// front compressing more pitches the nose down (positive b).
	return math.Atan(a), math.Atan(b), d
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// State returns the suspension snapshot for a vehicle.
func (s *System) State(id core.VehicleID) (State, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return State{}, false
	}
	var out State
	for _, c := range core.Corners {
		sp := v.springs[c]
		out.Springs[c] = Spring{
			Compression:          sp.compression,
			Velocity:             sp.velocity,
			CommandedCompression: sp.commanded,
			EffectiveTarget:      sp.effTarget,
		}
	}
	out.Pitch = v.pitch
	out.Roll = v.roll
	out.Heave = v.heave
	return out, true
}
