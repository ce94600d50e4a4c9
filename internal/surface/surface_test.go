package surface

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroads/drivecore/pkg/core"
)

const dt = 1.0 / 60.0

// stubWorld classifies everything left of splitX as one kind and
// everything at or right of it as another.
type stubWorld struct {
	splitX      float64
	left, right core.SurfaceSample
}

func (w *stubWorld) SampleAt(x, z float64) core.SurfaceSample {
	if x < w.splitX {
		return w.left
	}
	return w.right
}

func newTestSystem(t *testing.T, w World) (*System, core.VehicleID) {
	t.Helper()
	s := New(zerolog.Nop(), w)
	desc := core.DefaultDescriptor("test-car")
	s.Register(&desc)
	return s, desc.ID
}

func TestNilWorldReportsUnknown(t *testing.T) {
	s, id := newTestSystem(t, nil)

	s.SetPose(id, 10, 10, 0)
	s.FixedUpdate(dt)

	st, ok := s.State(id)
	require.True(t, ok)
	for _, c := range core.Corners {
		assert.Equal(t, core.SurfaceUnknown, st.Samples[c].Kind)
	}
	assert.Empty(t, s.Transitions(id))
	assert.Equal(t, core.SurfaceUnknown, s.DominantSurface(id))
}

func TestFirstFrameProducesNoTransition(t *testing.T) {
	w := &stubWorld{
		splitX: -100,
		right:  core.SurfaceSample{Kind: core.SurfaceAsphalt},
	}
	s, id := newTestSystem(t, w)

	s.SetPose(id, 0, 0, 0)
	s.FixedUpdate(dt)

	// All wheels went UNKNOWN -> ASPHALT, which is not a transition.
	assert.Empty(t, s.Transitions(id))
	assert.True(t, s.AllOnAsphalt(id))
}

func TestResolvedKindChangeEmitsTransition(t *testing.T) {
	w := &stubWorld{
		splitX: 100,
		left:   core.SurfaceSample{Kind: core.SurfaceAsphalt, Height: 0},
		right:  core.SurfaceSample{Kind: core.SurfaceCurb, Height: 0.12},
	}
	s, id := newTestSystem(t, w)

	s.SetPose(id, 0, 0, 0)
	s.FixedUpdate(dt)
	require.Empty(t, s.Transitions(id))

	s.SetPose(id, 200, 0, 0)
	s.FixedUpdate(dt)

	events := s.Transitions(id)
	require.Len(t, events, core.NumCorners, "all four wheels crossed at once")
	for _, ev := range events {
		assert.Equal(t, core.SurfaceAsphalt, ev.From)
		assert.Equal(t, core.SurfaceCurb, ev.To)
		assert.InDelta(t, 0.12, ev.HeightDelta(), 1e-12)
	}
}

func TestTransitionsClearedNextStep(t *testing.T) {
	w := &stubWorld{
		splitX: 100,
		left:   core.SurfaceSample{Kind: core.SurfaceAsphalt},
		right:  core.SurfaceSample{Kind: core.SurfaceGrass},
	}
	s, id := newTestSystem(t, w)

	s.SetPose(id, 0, 0, 0)
	s.FixedUpdate(dt)
	s.SetPose(id, 200, 0, 0)
	s.FixedUpdate(dt)
	require.NotEmpty(t, s.Transitions(id))

	s.FixedUpdate(dt)
	assert.Empty(t, s.Transitions(id), "events are per-step, not accumulated")
}

func TestRetainedTransitionsSurviveNextStep(t *testing.T) {
	w := &stubWorld{
		splitX: 100,
		left:   core.SurfaceSample{Kind: core.SurfaceAsphalt},
		right:  core.SurfaceSample{Kind: core.SurfaceCurb},
	}
	s, id := newTestSystem(t, w)

	s.SetPose(id, 0, 0, 0)
	s.FixedUpdate(dt)
	s.SetPose(id, 200, 0, 0)
	s.FixedUpdate(dt)

	retained := s.Transitions(id)
	require.Len(t, retained, core.NumCorners)

	s.FixedUpdate(dt)

	// The slice handed out earlier is a copy, not a window into the
	// per-step buffer.
	require.Len(t, retained, core.NumCorners)
	for _, ev := range retained {
		assert.Equal(t, core.SurfaceAsphalt, ev.From)
		assert.Equal(t, core.SurfaceCurb, ev.To)
	}
}

func TestYawRotatesWheelFootprint(t *testing.T) {
	// Split the world right between the left and right wheels so yawing
	// the vehicle moves wheels across the boundary.
	w := &stubWorld{
		splitX: 0,
		left:   core.SurfaceSample{Kind: core.SurfaceGrass},
		right:  core.SurfaceSample{Kind: core.SurfaceAsphalt},
	}
	s, id := newTestSystem(t, w)

	s.SetPose(id, 0, 0, 0)
	s.FixedUpdate(dt)
	st, _ := s.State(id)
	assert.Equal(t, core.SurfaceGrass, st.Samples[core.FrontLeft].Kind)
	assert.Equal(t, core.SurfaceAsphalt, st.Samples[core.FrontRight].Kind)

	// Quarter turn: front axle swings across the split.
	s.SetPose(id, 0, 0, 1.5707963267948966)
	s.FixedUpdate(dt)
	after, _ := s.State(id)
	assert.NotEqual(t, st.Samples, after.Samples)
}

func TestAggregateQueries(t *testing.T) {
	w := &stubWorld{
		splitX: 0,
		left:   core.SurfaceSample{Kind: core.SurfaceGrass},
		right:  core.SurfaceSample{Kind: core.SurfaceAsphalt},
	}
	s, id := newTestSystem(t, w)

	s.SetPose(id, 0, 0, 0)
	s.FixedUpdate(dt)

	assert.True(t, s.IsOnSurface(id, core.SurfaceGrass))
	assert.True(t, s.IsOnSurface(id, core.SurfaceAsphalt))
	assert.False(t, s.IsOnSurface(id, core.SurfaceCurb))
	assert.False(t, s.AllOnAsphalt(id))

	// 2-2 split resolves to the lower-numbered kind, asphalt.
	assert.Equal(t, core.SurfaceAsphalt, s.DominantSurface(id))

	s.SetPose(id, 100, 0, 0)
	s.FixedUpdate(dt)
	assert.True(t, s.AllOnAsphalt(id))
	assert.Equal(t, core.SurfaceAsphalt, s.DominantSurface(id))
}

func TestUnknownVehicleQueries(t *testing.T) {
	s := New(zerolog.Nop(), nil)
	_, ok := s.State("ghost")
	assert.False(t, ok)
	assert.Nil(t, s.Transitions("ghost"))
	assert.False(t, s.IsOnSurface("ghost", core.SurfaceAsphalt))
	assert.False(t, s.AllOnAsphalt("ghost"))
	assert.Equal(t, core.SurfaceUnknown, s.DominantSurface("ghost"))
	s.SetPose("ghost", 1, 2, 3)
	s.FixedUpdate(dt)
}
