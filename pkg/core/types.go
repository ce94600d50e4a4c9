// pkg/core/types.go
package core

import "math"

// VehicleID identifies a registered vehicle across all simulation systems.
type VehicleID string

// Corner is one of the four wheel positions.
type Corner int

const (
	FrontLeft Corner = iota
	FrontRight
	RearLeft
	RearRight

	// NumCorners is the number of wheel corners on a vehicle.
	NumCorners = 4
)

// Corners lists all wheel corners in a stable order.
var Corners = [NumCorners]Corner{FrontLeft, FrontRight, RearLeft, RearRight}

// String returns the conventional short name for the corner.
func (c Corner) String() string {
	switch c {
	case FrontLeft:
		return "front-left"
	case FrontRight:
		return "front-right"
	case RearLeft:
		return "rear-left"
	case RearRight:
		return "rear-right"
	default:
		return "unknown"
	}
}

// IsFront reports whether the corner is on the front axle.
func (c Corner) IsFront() bool {
	return c == FrontLeft || c == FrontRight
}

// IsLeft reports whether the corner is on the left side.
func (c Corner) IsLeft() bool {
	return c == FrontLeft || c == RearLeft
}

// SurfaceKind is the discrete classification of the ground under a wheel.
type SurfaceKind int

const (
	SurfaceUnknown SurfaceKind = iota
	SurfaceAsphalt
	SurfaceCurb
	SurfaceGrass
)

// String returns the lowercase name of the surface kind.
func (k SurfaceKind) String() string {
	switch k {
	case SurfaceAsphalt:
		return "asphalt"
	case SurfaceCurb:
		return "curb"
	case SurfaceGrass:
		return "grass"
	default:
		return "unknown"
	}
}

// Resolved reports whether the classification is a real surface.
// Transitions are only reported between resolved kinds.
func (k SurfaceKind) Resolved() bool {
	return k != SurfaceUnknown
}

// SurfaceSample is the result of a world query under one wheel.
type SurfaceSample struct {
	Kind   SurfaceKind
	Height float64
}

// TransitionEvent reports that a wheel crossed from one resolved surface
// to another during a single fixed step. Events do not persist across steps.
type TransitionEvent struct {
	Corner     Corner
	From       SurfaceKind
	To         SurfaceKind
	FromHeight float64
	ToHeight   float64
}

// HeightDelta is the step height crossed by the wheel, positive going up.
func (e TransitionEvent) HeightDelta() float64 {
	return e.ToHeight - e.FromHeight
}

// DriverInput is the per-frame control snapshot for one vehicle.
// Latest write wins; there is no queuing.
type DriverInput struct {
	Throttle  float64 // [0,1]
	Brake     float64 // [0,1]
	Steering  float64 // [-1,1], positive steers right
	Handbrake bool
}

// Sanitized returns a copy with non-finite values replaced by zero and
// all axes clamped to their documented ranges.
func (in DriverInput) Sanitized() DriverInput {
	out := in
	out.Throttle = clampFinite(in.Throttle, 0, 1)
	out.Brake = clampFinite(in.Brake, 0, 1)
	out.Steering = clampFinite(in.Steering, -1, 1)
	return out
}

func clampFinite(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Min(hi, math.Max(lo, v))
}

// Position is a planar world position. X is east, Z is north; the sim
// plane maps onto projected (EPSG:3857-style) coordinates for export.
type Position struct {
	X float64
	Z float64
}
