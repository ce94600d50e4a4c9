package locomotion

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroads/drivecore/pkg/core"
)

const dt = 1.0 / 60.0

func newTestSystem(t *testing.T) (*System, core.VehicleID) {
	t.Helper()
	s := New(zerolog.Nop())
	desc := core.DefaultDescriptor("test-car")
	s.Register(&desc)
	return s, desc.ID
}

func TestIdleInputHoldsVehicleAtRest(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{})
	for i := 0; i < 120; i++ {
		s.FixedUpdate(dt)
	}

	st, ok := s.State(id)
	require.True(t, ok)
	assert.Zero(t, st.Speed)
	assert.Zero(t, st.Position.X)
	assert.Zero(t, st.Position.Z)
	assert.Zero(t, st.Yaw)
}

func TestFullThrottleAcceleratesMonotonically(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{Throttle: 1})
	prev := 0.0
	for i := 0; i < 60; i++ {
		s.FixedUpdate(dt)
		st, _ := s.State(id)
		require.Greater(t, st.Speed, prev, "speed must strictly increase while far below max (step %d)", i)
		prev = st.Speed
	}

	st, _ := s.State(id)
	assert.Greater(t, st.Speed, 0.0)
	assert.NotZero(t, st.Position.Z, "forward travel accumulates on z")
	assert.Greater(t, st.WheelSpin, 0.0)
}

func TestBrakingReducesSpeed(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{Throttle: 1})
	for i := 0; i < 180; i++ {
		s.FixedUpdate(dt)
	}
	before, _ := s.State(id)
	require.Greater(t, before.Speed, 1.0)

	s.SetInput(id, core.DriverInput{Brake: 1})
	for i := 0; i < 60; i++ {
		s.FixedUpdate(dt)
	}
	after, _ := s.State(id)
	assert.Less(t, after.Speed, before.Speed)
}

func TestExternalBrakeForceDecelerates(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{Throttle: 1})
	for i := 0; i < 180; i++ {
		s.FixedUpdate(dt)
	}
	before, _ := s.State(id)

	s.SetInput(id, core.DriverInput{})
	s.SetBrakeForce(id, 9000)
	for i := 0; i < 60; i++ {
		s.FixedUpdate(dt)
	}
	after, _ := s.State(id)
	assert.Less(t, after.Speed, before.Speed)
}

// Steering input of +1 (right) must produce a negative steer angle and a
// nonzero yaw. Regression guard on the sign convention.
func TestSteeringRightGivesNegativeSteerAngle(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{Throttle: 1, Steering: 1})
	for i := 0; i < 120; i++ {
		s.FixedUpdate(dt)
	}

	st, _ := s.State(id)
	assert.Negative(t, st.SteerAngle)
	assert.NotZero(t, st.Yaw)
	assert.Negative(t, st.Yaw, "steering right turns yaw negative")
}

func TestUndersteerShrinksEffectiveSteerWithSpeed(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{Throttle: 0.2, Steering: 1})
	s.FixedUpdate(dt)
	slow, _ := s.DebugState(id)

	s.SetInput(id, core.DriverInput{Throttle: 1, Steering: 1})
	for i := 0; i < 300; i++ {
		s.FixedUpdate(dt)
	}
	fast, _ := s.DebugState(id)

	assert.Less(t, math.Abs(fast.EffectiveSteer), math.Abs(slow.EffectiveSteer))
}

func TestYawRateIsRateLimited(t *testing.T) {
	s, id := newTestSystem(t)
	desc := core.DefaultDescriptor("test-car")
	maxDelta := desc.Locomotion.MaxYawRateDelta * dt

	s.SetInput(id, core.DriverInput{Throttle: 1})
	for i := 0; i < 300; i++ {
		s.FixedUpdate(dt)
	}

	// Slam the wheel; yaw rate may only move by maxDelta per step.
	prev, _ := s.State(id)
	s.SetInput(id, core.DriverInput{Throttle: 1, Steering: 1})
	s.FixedUpdate(dt)
	st, _ := s.State(id)
	assert.InDelta(t, prev.YawRate, st.YawRate, maxDelta+1e-12)
}

func TestNonFiniteInputTreatedAsZero(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{
		Throttle: math.NaN(),
		Brake:    math.Inf(1),
		Steering: math.Inf(-1),
	})
	for i := 0; i < 60; i++ {
		s.FixedUpdate(dt)
	}

	st, ok := s.State(id)
	require.True(t, ok)
	assert.Zero(t, st.Speed)
	assert.Zero(t, st.Yaw)

	in, _ := s.Input(id)
	assert.Zero(t, in.Throttle)
	assert.Zero(t, in.Brake)
	assert.Zero(t, in.Steering)
}

func TestLateralAndLongitudinalAccelReported(t *testing.T) {
	s, id := newTestSystem(t)

	s.SetInput(id, core.DriverInput{Throttle: 1})
	s.FixedUpdate(dt)
	st, _ := s.State(id)
	assert.Greater(t, st.LongitudinalAccel, 0.0, "accelerating from rest")

	s.SetInput(id, core.DriverInput{Throttle: 1, Steering: -1})
	for i := 0; i < 300; i++ {
		s.FixedUpdate(dt)
	}
	st, _ = s.State(id)
	assert.Greater(t, st.LateralAccel, 0.0, "turning left gives positive lateral acceleration")
}

func TestUnknownVehicleReturnsNoState(t *testing.T) {
	s := New(zerolog.Nop())
	_, ok := s.State("ghost")
	assert.False(t, ok)

	// Setters on unknown ids are ignored, not panics.
	s.SetInput("ghost", core.DriverInput{Throttle: 1})
	s.SetBrakeForce("ghost", 100)
	s.FixedUpdate(dt)
}
