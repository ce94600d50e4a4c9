package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroads/drivecore/pkg/core"
)

func TestEmptyWorldIsAllGrass(t *testing.T) {
	w := New(DefaultConfig())
	sample := w.SampleAt(0, 0)
	assert.Equal(t, core.SurfaceGrass, sample.Kind)
	assert.Equal(t, DefaultConfig().GrassHeight, sample.Height)
}

func TestRoadStripClassification(t *testing.T) {
	cfg := DefaultConfig()
	w := New(cfg)
	// North-south road on x=0, 4 m half-width, curb band 0.6 m.
	require.NoError(t, w.AddRoad(0, -100, 0, 100, 4))

	tests := []struct {
		name string
		x, z float64
		want core.SurfaceKind
	}{
		{"centerline", 0, 0, core.SurfaceAsphalt},
		{"inside edge", 3.9, 50, core.SurfaceAsphalt},
		{"curb band", 4.3, 50, core.SurfaceCurb},
		{"past curb", 5.0, 50, core.SurfaceGrass},
		{"far off road", 200, 200, core.SurfaceGrass},
		{"beyond end cap", 0, 105.5, core.SurfaceGrass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.SampleAt(tt.x, tt.z).Kind)
		})
	}
}

func TestRoadBeatsOverlappingCurb(t *testing.T) {
	w := New(DefaultConfig())
	require.NoError(t, w.AddRoad(0, -100, 0, 100, 4))
	require.NoError(t, w.AddRoad(-100, 0, 100, 0, 4))

	// This point is inside the east-west road and inside the
	// north-south road's curb band. Road wins.
	sample := w.SampleAt(4.3, 0)
	assert.Equal(t, core.SurfaceAsphalt, sample.Kind)
}

func TestSampleHeights(t *testing.T) {
	cfg := Config{CurbWidth: 1, RoadHeight: 0, CurbHeight: 0.15, GrassHeight: 0.03}
	w := New(cfg)
	require.NoError(t, w.AddRoad(0, 0, 10, 0, 2))

	assert.Equal(t, 0.0, w.SampleAt(5, 0).Height)
	assert.Equal(t, 0.15, w.SampleAt(5, 2.5).Height)
	assert.Equal(t, 0.03, w.SampleAt(5, 10).Height)
}

func TestDiagonalRoadRejected(t *testing.T) {
	w := New(DefaultConfig())
	assert.Error(t, w.AddRoad(0, 0, 10, 10, 4))
	assert.Error(t, w.AddRoad(0, 0, 0, 10, 0))
}

func TestDefaultCrossroad(t *testing.T) {
	w := DefaultCrossroad()
	assert.Equal(t, core.SurfaceAsphalt, w.SampleAt(0, 0).Kind)
	assert.Equal(t, core.SurfaceAsphalt, w.SampleAt(0, 200).Kind)
	assert.Equal(t, core.SurfaceAsphalt, w.SampleAt(200, 0).Kind)
	assert.Equal(t, core.SurfaceCurb, w.SampleAt(4.3, 200).Kind)
	assert.Equal(t, core.SurfaceGrass, w.SampleAt(100, 100).Kind)
}
