package drivetrain

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroads/drivecore/pkg/core"
)

const dt = 1.0 / 60.0

func newTestSystem(t *testing.T) (*System, core.VehicleID, core.DrivetrainTuning) {
	t.Helper()
	s := New(zerolog.Nop())
	desc := core.DefaultDescriptor("test-car")
	s.Register(&desc)
	return s, desc.ID, desc.Drivetrain
}

func TestStartsAtIdleInFirstGear(t *testing.T) {
	s, id, tuning := newTestSystem(t)

	st, ok := s.State(id)
	require.True(t, ok)
	assert.Equal(t, 1, st.Gear)
	assert.Equal(t, tuning.IdleRPM, st.RPM)
	assert.False(t, st.ClutchEngaged)
}

func TestClutchEngagesAboveThreshold(t *testing.T) {
	s, id, tuning := newTestSystem(t)

	s.SetExternalSpeed(id, tuning.ClutchEngageSpeed/2)
	s.FixedUpdate(dt)
	st, _ := s.State(id)
	assert.False(t, st.ClutchEngaged)

	s.SetExternalSpeed(id, tuning.ClutchEngageSpeed*2)
	s.FixedUpdate(dt)
	st, _ = s.State(id)
	assert.True(t, st.ClutchEngaged)
}

func TestThrottleRevsFreeEngine(t *testing.T) {
	s, id, tuning := newTestSystem(t)

	s.SetInput(id, 1)
	s.SetExternalSpeed(id, 0)
	for i := 0; i < 120; i++ {
		s.FixedUpdate(dt)
	}
	st, _ := s.State(id)
	assert.Greater(t, st.RPM, tuning.IdleRPM)
	assert.Equal(t, 1, st.Gear, "revving at standstill never shifts")
}

func TestRPMFallsToIdleOnThrottleRelease(t *testing.T) {
	s, id, tuning := newTestSystem(t)

	s.SetInput(id, 1)
	for i := 0; i < 120; i++ {
		s.FixedUpdate(dt)
	}
	s.SetInput(id, 0)
	for i := 0; i < 600; i++ {
		s.FixedUpdate(dt)
	}
	st, _ := s.State(id)
	assert.Equal(t, tuning.IdleRPM, st.RPM)
}

func TestUpshiftAboveThreshold(t *testing.T) {
	s, id, tuning := newTestSystem(t)
	v := s.vehicles[id]

	// Cruising in first with the clutch engaged, just past the upshift point.
	s.SetExternalSpeed(id, 10)
	v.rpm = tuning.UpshiftRPM + 100

	s.FixedUpdate(dt)

	st, _ := s.State(id)
	assert.Equal(t, 2, st.Gear)
	assert.Less(t, st.RPM, tuning.UpshiftRPM, "RPM recomputed from the taller gear")
	assert.GreaterOrEqual(t, st.RPM, tuning.IdleRPM)
}

func TestDownshiftBelowThreshold(t *testing.T) {
	s, id, tuning := newTestSystem(t)
	v := s.vehicles[id]

	s.SetExternalSpeed(id, 5)
	v.gear = 3
	v.rpm = tuning.DownshiftRPM - 100

	s.FixedUpdate(dt)

	st, _ := s.State(id)
	assert.Equal(t, 2, st.Gear)
}

func TestNoDownshiftBelowFirstGear(t *testing.T) {
	s, id, tuning := newTestSystem(t)
	v := s.vehicles[id]

	s.SetExternalSpeed(id, 2)
	v.rpm = tuning.DownshiftRPM - 100

	s.FixedUpdate(dt)

	st, _ := s.State(id)
	assert.Equal(t, 1, st.Gear)
}

func TestNoUpshiftPastTopGear(t *testing.T) {
	s, id, tuning := newTestSystem(t)
	v := s.vehicles[id]

	s.SetExternalSpeed(id, 40)
	v.gear = len(tuning.GearRatios)
	v.rpm = tuning.UpshiftRPM + 500

	s.FixedUpdate(dt)

	st, _ := s.State(id)
	assert.Equal(t, len(tuning.GearRatios), st.Gear)
}

func TestRPMStaysWithinBounds(t *testing.T) {
	s, id, tuning := newTestSystem(t)

	s.SetInput(id, 1)
	s.SetExternalSpeed(id, 60)
	for i := 0; i < 600; i++ {
		s.FixedUpdate(dt)
		st, _ := s.State(id)
		require.GreaterOrEqual(t, st.RPM, tuning.IdleRPM)
		require.LessOrEqual(t, st.RPM, tuning.MaxRPM)
	}
}

func TestSetTuningClampsGearIntoNewTable(t *testing.T) {
	s, id, tuning := newTestSystem(t)
	v := s.vehicles[id]
	v.gear = 6

	shorter := tuning
	shorter.GearRatios = tuning.GearRatios[:4]
	require.NoError(t, s.SetTuning(id, shorter))

	st, _ := s.State(id)
	assert.Equal(t, 4, st.Gear)
}

func TestUnknownVehicleReturnsNoState(t *testing.T) {
	s := New(zerolog.Nop())
	_, ok := s.State("ghost")
	assert.False(t, ok)
	s.SetExternalSpeed("ghost", 10)
	s.SetInput("ghost", 1)
	s.FixedUpdate(dt)
}
