package recorder

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroads/drivecore/pkg/core"
)

// fakeBackend records writes per state and per transition.
type fakeBackend struct {
	states      []core.VehicleState
	transitions []VehicleTransition
	err         error
}

func (f *fakeBackend) Init() error                                   { return nil }
func (f *fakeBackend) Close() error                                  { return nil }
func (f *fakeBackend) StartRun(run *core.RunInfo) error              { return nil }
func (f *fakeBackend) EndRun() error                                 { return nil }
func (f *fakeBackend) AddVehicle(desc *core.VehicleDescriptor) error { return nil }

func (f *fakeBackend) RecordTransition(id core.VehicleID, ev core.TransitionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.transitions = append(f.transitions, VehicleTransition{ID: id, Event: ev})
	return nil
}

func (f *fakeBackend) RecordVehicleState(state *core.VehicleState) error {
	if f.err != nil {
		return f.err
	}
	f.states = append(f.states, *state)
	return nil
}

// batchBackend additionally accepts whole flushes.
type batchBackend struct {
	fakeBackend
	batches [][]core.VehicleState
}

func (b *batchBackend) RecordVehicleStates(states []core.VehicleState) error {
	if b.err != nil {
		return b.err
	}
	b.batches = append(b.batches, states)
	return nil
}

func TestCaptureThenFlush(t *testing.T) {
	backend := &fakeBackend{}
	r := New(zerolog.Nop(), backend)

	r.Capture(core.VehicleState{ID: "a", Tick: 1})
	r.Capture(core.VehicleState{ID: "a", Tick: 2}, core.VehicleState{ID: "b", Tick: 2})
	assert.Equal(t, 3, r.Pending())

	require.NoError(t, r.Flush())
	assert.Equal(t, 0, r.Pending())
	require.Len(t, backend.states, 3)
	assert.Equal(t, uint64(1), backend.states[0].Tick)
}

func TestFlushEmptyIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	r := New(zerolog.Nop(), backend)
	assert.NoError(t, r.Flush())
	assert.Empty(t, backend.states)
}

func TestFlushPrefersBatchWriter(t *testing.T) {
	backend := &batchBackend{}
	r := New(zerolog.Nop(), backend)

	r.Capture(core.VehicleState{ID: "a"}, core.VehicleState{ID: "b"})
	require.NoError(t, r.Flush())

	require.Len(t, backend.batches, 1)
	assert.Len(t, backend.batches[0], 2)
	assert.Empty(t, backend.states, "per-state path must not run when batching")
}

func TestFlushWritesTransitions(t *testing.T) {
	backend := &fakeBackend{}
	r := New(zerolog.Nop(), backend)

	events := []core.TransitionEvent{
		{Corner: core.FrontLeft, From: core.SurfaceAsphalt, To: core.SurfaceCurb, ToHeight: 0.12},
		{Corner: core.FrontRight, From: core.SurfaceAsphalt, To: core.SurfaceCurb, ToHeight: 0.12},
	}
	r.CaptureTransitions("a", events)
	r.Capture(core.VehicleState{ID: "a", Tick: 7})
	assert.Equal(t, 3, r.Pending())

	require.NoError(t, r.Flush())
	assert.Equal(t, 0, r.Pending())
	require.Len(t, backend.transitions, 2)
	assert.Equal(t, core.VehicleID("a"), backend.transitions[0].ID)
	assert.Equal(t, core.SurfaceCurb, backend.transitions[0].Event.To)
	assert.Equal(t, core.FrontRight, backend.transitions[1].Event.Corner)
}

func TestFlushPropagatesBackendError(t *testing.T) {
	sentinel := errors.New("disk full")
	backend := &fakeBackend{err: sentinel}
	r := New(zerolog.Nop(), backend)

	r.Capture(core.VehicleState{ID: "a"})
	assert.ErrorIs(t, r.Flush(), sentinel)
}
