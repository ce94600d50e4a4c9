// Package locomotion integrates driver input into vehicle speed, pose
// and acceleration using a rear-axle bicycle kinematic model. Steering
// input of +1 (right) maps to a negative steer angle; yaw follows
// yawRate = speed/wheelbase · tan(steerAngle) through a curvature-rate
// limiter, and an understeer term shrinks the effective steer angle as
// speed grows.
package locomotion

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/pkg/core"
)

// State is the per-vehicle locomotion snapshot.
type State struct {
	Position          core.Position
	Yaw               float64
	Speed             float64
	TargetSpeed       float64
	SteerAngle        float64
	YawRate           float64
	LateralAccel      float64
	LongitudinalAccel float64
	WheelSpin         float64
}

// Debug exposes the intermediate terms of the last fixed step.
type Debug struct {
	EffectiveSteer float64
	DesiredYawRate float64
	DriveAccel     float64
	BrakeDecel     float64
}

type vehicle struct {
	desc  *core.VehicleDescriptor
	input core.DriverInput

	externalBrakeForce float64 // N, from the brake system via the coordinator

	speed       float64
	targetSpeed float64
	steerAngle  float64
	yawRate     float64
	yaw         float64
	x, z        float64
	latAccel    float64
	longAccel   float64
	wheelSpin   float64

	debug Debug
}

// System tracks locomotion state for all registered vehicles.
type System struct {
	log      zerolog.Logger
	vehicles map[core.VehicleID]*vehicle
	order    []core.VehicleID
}

// New creates an empty locomotion system.
func New(log zerolog.Logger) *System {
	return &System{
		log:      log.With().Str("system", "locomotion").Logger(),
		vehicles: make(map[core.VehicleID]*vehicle),
	}
}

// Register adds a vehicle at rest at the origin.
func (s *System) Register(desc *core.VehicleDescriptor) {
	s.vehicles[desc.ID] = &vehicle{desc: desc}
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

// SetInput records the latest driver input. Non-finite values are
// replaced with zero at this boundary; nothing downstream sees them.
func (s *System) SetInput(id core.VehicleID, in core.DriverInput) {
	if v, ok := s.vehicles[id]; ok {
		v.input = in.Sanitized()
	}
}

// SetBrakeForce feeds the brake system's force as added deceleration.
// Called by the coordinator each step before FixedUpdate.
func (s *System) SetBrakeForce(id core.VehicleID, force float64) {
	if v, ok := s.vehicles[id]; ok {
		v.externalBrakeForce = force
	}
}

// FixedUpdate advances every vehicle's pose by one fixed step.
func (s *System) FixedUpdate(dt float64) {
	for _, id := range s.order {
		v := s.vehicles[id]
		s.step(id, v, dt)
	}
}

func (s *System) step(id core.VehicleID, v *vehicle, dt float64) {
	t := &v.desc.Locomotion
	prevSpeed := v.speed

	// Speed integration: drive toward target, saturated accel/brake,
	// quadratic drag plus linear rolling resistance.
	v.targetSpeed = v.input.Throttle * t.MaxSpeed

	driveAccel := 0.0
	if v.speed < v.targetSpeed {
		driveAccel = t.MaxAccel
	}

	brakeDecel := v.input.Brake * t.MaxBrakeDecel
	brakeDecel += v.externalBrakeForce / v.desc.Mass

	resistance := t.DragCoeff*v.speed*v.speed + t.RollingCoeff*sign(v.speed)

	v.speed += (driveAccel - brakeDecel - resistance) * dt
	if v.speed > v.targetSpeed && driveAccel > 0 {
		v.speed = v.targetSpeed
	}
	if v.speed < 0 {
		// No reverse gear is modeled; braking and drag stop at rest.
		v.speed = 0
	}

	// Steering: +1 input steers right, which is a negative steer angle.
	// Understeer shrinks the effective angle as speed grows.
	commanded := -v.input.Steering * t.MaxSteerAngle
	effSteer := commanded / (1 + t.UndersteerCoeff*v.speed)
	v.steerAngle = effSteer

	desiredYawRate := v.speed / v.desc.Wheelbase * math.Tan(effSteer)
	maxDelta := t.MaxYawRateDelta * dt
	delta := desiredYawRate - v.yawRate
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	v.yawRate += delta
	v.yaw += v.yawRate * dt

	v.x += v.speed * math.Sin(v.yaw) * dt
	v.z += v.speed * math.Cos(v.yaw) * dt

	v.latAccel = v.speed * v.yawRate
	v.longAccel = (v.speed - prevSpeed) / dt
	v.wheelSpin += v.speed * dt / t.WheelRadius

	v.debug = Debug{
		EffectiveSteer: effSteer,
		DesiredYawRate: desiredYawRate,
		DriveAccel:     driveAccel,
		BrakeDecel:     brakeDecel,
	}

	// Boundary validation keeps NaN out; one appearing here is a bug,
	// not a recoverable condition.
	if math.IsNaN(v.speed) || math.IsNaN(v.x) || math.IsNaN(v.z) || math.IsNaN(v.yaw) {
		panic(fmt.Errorf("locomotion: vehicle %s integrated to NaN state", id))
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// State returns the locomotion snapshot for a vehicle.
func (s *System) State(id core.VehicleID) (State, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return State{}, false
	}
	return State{
		Position:          core.Position{X: v.x, Z: v.z},
		Yaw:               v.yaw,
		Speed:             v.speed,
		TargetSpeed:       v.targetSpeed,
		SteerAngle:        v.steerAngle,
		YawRate:           v.yawRate,
		LateralAccel:      v.latAccel,
		LongitudinalAccel: v.longAccel,
		WheelSpin:         v.wheelSpin,
	}, true
}

// DebugState returns the intermediate terms of the last step.
func (s *System) DebugState(id core.VehicleID) (Debug, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return Debug{}, false
	}
	return v.debug, true
}

// Input returns the last sanitized input echo for a vehicle.
func (s *System) Input(id core.VehicleID) (core.DriverInput, bool) {
	v, ok := s.vehicles[id]
	if !ok {
		return core.DriverInput{}, false
	}
	return v.input, true
}
