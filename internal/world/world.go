// Package world provides a concrete surface collaborator for the demo
// binary and integration tests: road strips ringed by curb bands on a
// grass plane. Road and curb footprints are planar polygons; a sample
// point is classified by containment, curbs taking precedence only
// outside the road surface itself.
package world

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/openroads/drivecore/pkg/core"
)

// Config holds the surface heights and curb geometry of a world.
type Config struct {
	CurbWidth   float64
	RoadHeight  float64
	CurbHeight  float64
	GrassHeight float64
}

// DefaultConfig returns heights matching a typical urban street profile.
func DefaultConfig() Config {
	return Config{
		CurbWidth:   0.6,
		RoadHeight:  0.0,
		CurbHeight:  0.12,
		GrassHeight: 0.02,
	}
}

// World is a synchronous in-memory surface lookup. It is safe for
// concurrent reads once built; AddRoad must not race with SampleAt.
type World struct {
	cfg   Config
	roads []geom.Geometry
	curbs []geom.Geometry
}

// New creates an empty grass world.
func New(cfg Config) *World {
	return &World{cfg: cfg}
}

// AddRoad adds an axis-aligned road strip between two centerline points,
// expanded laterally by halfWidth, with a curb band of cfg.CurbWidth
// around it. Diagonal centerlines are rejected; the procedural road
// network only emits axis-aligned segments.
func (w *World) AddRoad(x1, z1, x2, z2, halfWidth float64) error {
	if x1 != x2 && z1 != z2 {
		return fmt.Errorf("road segment (%v,%v)-(%v,%v) is not axis-aligned", x1, z1, x2, z2)
	}
	if !(halfWidth > 0) {
		return fmt.Errorf("road halfWidth must be positive, got %v", halfWidth)
	}

	minX := math.Min(x1, x2) - halfWidth
	maxX := math.Max(x1, x2) + halfWidth
	minZ := math.Min(z1, z2) - halfWidth
	maxZ := math.Max(z1, z2) + halfWidth

	road, err := rectPolygon(minX, minZ, maxX, maxZ)
	if err != nil {
		return err
	}
	curb, err := rectPolygon(
		minX-w.cfg.CurbWidth, minZ-w.cfg.CurbWidth,
		maxX+w.cfg.CurbWidth, maxZ+w.cfg.CurbWidth,
	)
	if err != nil {
		return err
	}

	w.roads = append(w.roads, road)
	w.curbs = append(w.curbs, curb)
	return nil
}

func rectPolygon(minX, minZ, maxX, maxZ float64) (geom.Geometry, error) {
	wkt := fmt.Sprintf(
		"POLYGON((%f %f, %f %f, %f %f, %f %f, %f %f))",
		minX, minZ, maxX, minZ, maxX, maxZ, minX, maxZ, minX, minZ,
	)
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("building rect polygon: %w", err)
	}
	return g, nil
}

// SampleAt classifies the surface at a planar position. Road beats curb
// where the bands overlap, curb beats grass.
func (w *World) SampleAt(x, z float64) core.SurfaceSample {
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: z}}).AsGeometry()

	for _, road := range w.roads {
		if geom.Intersects(road, pt) {
			return core.SurfaceSample{Kind: core.SurfaceAsphalt, Height: w.cfg.RoadHeight}
		}
	}
	for _, curb := range w.curbs {
		if geom.Intersects(curb, pt) {
			return core.SurfaceSample{Kind: core.SurfaceCurb, Height: w.cfg.CurbHeight}
		}
	}
	return core.SurfaceSample{Kind: core.SurfaceGrass, Height: w.cfg.GrassHeight}
}

// DefaultCrossroad builds two perpendicular road strips crossing at the
// origin, each 500 m long and 8 m wide. Handy for soak runs and tests.
func DefaultCrossroad() *World {
	w := New(DefaultConfig())
	// Errors are impossible for these fixed axis-aligned segments.
	if err := w.AddRoad(0, -250, 0, 250, 4); err != nil {
		panic(err)
	}
	if err := w.AddRoad(-250, 0, 250, 0, 4); err != nil {
		panic(err)
	}
	return w
}
