// pkg/core/descriptor.go
package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDescriptor is returned when a vehicle descriptor fails validation.
var ErrInvalidDescriptor = errors.New("invalid vehicle descriptor")

// LocomotionTuning configures speed and steering integration.
type LocomotionTuning struct {
	MaxSpeed        float64 // m/s
	MaxSteerAngle   float64 // rad, at standstill
	MaxAccel        float64 // m/s², drive saturation
	MaxBrakeDecel   float64 // m/s², pedal braking saturation
	DragCoeff       float64 // quadratic drag, 1/m
	RollingCoeff    float64 // linear rolling resistance, m/s²
	UndersteerCoeff float64 // effective steer divisor growth per m/s
	MaxYawRateDelta float64 // rad/s², curvature rate limit
	WheelRadius     float64 // m, for wheel spin accumulation
}

// SuspensionTuning configures the per-corner spring-damper records.
type SuspensionTuning struct {
	Stiffness           float64 // N/m
	Damping             float64 // N·s/m
	Travel              float64 // m, compression clamped to ±Travel
	ProgressiveExponent float64 // nonlinear stiffening toward the limit
	ImpactKick          float64 // velocity kick per metre of step height
	MaxImpactVelocity   float64 // m/s, kick clamp
}

// DrivetrainTuning configures engine RPM and gear selection.
type DrivetrainTuning struct {
	GearRatios        []float64 // index 0 is first gear
	FinalDrive        float64
	IdleRPM           float64
	MaxRPM            float64
	UpshiftRPM        float64
	DownshiftRPM      float64
	ClutchEngageSpeed float64 // m/s
	RiseRate          float64 // rpm/s toward a higher target
	FallRate          float64 // rpm/s toward a lower target
}

// BrakeTuning configures the brake force envelope.
type BrakeTuning struct {
	MaxForce  float64 // N
	RiseRate  float64 // 1/s, approach rate under input
	DecayRate float64 // 1/s, approach rate on release
}

// VehicleDescriptor is the immutable per-vehicle parameter set. It is
// created when a vehicle is registered and never mutated afterwards;
// replacing a tuning block goes through the owning system's SetTuning.
type VehicleDescriptor struct {
	ID         VehicleID
	Mass       float64 // kg
	Wheelbase  float64 // m
	TrackWidth float64 // m
	CGHeight   float64 // m

	Locomotion LocomotionTuning
	Suspension SuspensionTuning
	Drivetrain DrivetrainTuning
	Brake      BrakeTuning
}

// WheelOffset returns the wheel's position in the vehicle frame:
// X lateral (right positive), Z longitudinal (forward positive).
func (d *VehicleDescriptor) WheelOffset(c Corner) (x, z float64) {
	x = d.TrackWidth / 2
	if c.IsLeft() {
		x = -x
	}
	z = d.Wheelbase / 2
	if !c.IsFront() {
		z = -z
	}
	return x, z
}

// Validate checks the descriptor at the registration boundary.
func (d *VehicleDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty vehicle id", ErrInvalidDescriptor)
	}
	for name, v := range map[string]float64{
		"mass":       d.Mass,
		"wheelbase":  d.Wheelbase,
		"trackWidth": d.TrackWidth,
		"cgHeight":   d.CGHeight,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidDescriptor, name, v)
		}
	}
	if err := d.Locomotion.Validate(); err != nil {
		return err
	}
	if err := d.Suspension.Validate(); err != nil {
		return err
	}
	if err := d.Drivetrain.Validate(); err != nil {
		return err
	}
	return d.Brake.Validate()
}

// Validate checks the locomotion tuning block.
func (t *LocomotionTuning) Validate() error {
	if !(t.MaxSpeed > 0) || !(t.MaxAccel > 0) || !(t.MaxBrakeDecel > 0) {
		return fmt.Errorf("%w: locomotion limits must be positive", ErrInvalidDescriptor)
	}
	if !(t.MaxSteerAngle > 0) || t.MaxSteerAngle >= math.Pi/2 {
		return fmt.Errorf("%w: maxSteerAngle must be in (0, π/2), got %v", ErrInvalidDescriptor, t.MaxSteerAngle)
	}
	if t.DragCoeff < 0 || t.RollingCoeff < 0 || t.UndersteerCoeff < 0 {
		return fmt.Errorf("%w: locomotion resistance terms must be non-negative", ErrInvalidDescriptor)
	}
	if !(t.MaxYawRateDelta > 0) || !(t.WheelRadius > 0) {
		return fmt.Errorf("%w: maxYawRateDelta and wheelRadius must be positive", ErrInvalidDescriptor)
	}
	return nil
}

// Validate checks the suspension tuning block.
func (t *SuspensionTuning) Validate() error {
	if !(t.Stiffness > 0) || !(t.Damping > 0) || !(t.Travel > 0) {
		return fmt.Errorf("%w: suspension stiffness, damping and travel must be positive", ErrInvalidDescriptor)
	}
	if t.ProgressiveExponent < 1 {
		return fmt.Errorf("%w: progressiveExponent must be >= 1, got %v", ErrInvalidDescriptor, t.ProgressiveExponent)
	}
	if t.ImpactKick < 0 || !(t.MaxImpactVelocity > 0) {
		return fmt.Errorf("%w: impact kick settings out of range", ErrInvalidDescriptor)
	}
	return nil
}

// Validate checks the drivetrain tuning block.
func (t *DrivetrainTuning) Validate() error {
	if len(t.GearRatios) == 0 {
		return fmt.Errorf("%w: gear table is empty", ErrInvalidDescriptor)
	}
	for i, r := range t.GearRatios {
		if !(r > 0) {
			return fmt.Errorf("%w: gear ratio %d must be positive, got %v", ErrInvalidDescriptor, i+1, r)
		}
	}
	if !(t.FinalDrive > 0) {
		return fmt.Errorf("%w: finalDrive must be positive", ErrInvalidDescriptor)
	}
	if !(t.IdleRPM > 0) || t.MaxRPM <= t.IdleRPM {
		return fmt.Errorf("%w: need 0 < idleRPM < maxRPM", ErrInvalidDescriptor)
	}
	if t.UpshiftRPM <= t.DownshiftRPM || t.UpshiftRPM > t.MaxRPM || t.DownshiftRPM < t.IdleRPM {
		return fmt.Errorf("%w: shift thresholds must satisfy idle <= downshift < upshift <= max", ErrInvalidDescriptor)
	}
	if t.ClutchEngageSpeed < 0 || !(t.RiseRate > 0) || !(t.FallRate > 0) {
		return fmt.Errorf("%w: clutch/rpm rates out of range", ErrInvalidDescriptor)
	}
	return nil
}

// Validate checks the brake tuning block.
func (t *BrakeTuning) Validate() error {
	if !(t.MaxForce > 0) || !(t.RiseRate > 0) || !(t.DecayRate > 0) {
		return fmt.Errorf("%w: brake force and rates must be positive", ErrInvalidDescriptor)
	}
	return nil
}

// DefaultDescriptor returns a descriptor tuned for a mid-size road car.
// Gear ratios follow a common six-speed box.
func DefaultDescriptor(id VehicleID) VehicleDescriptor {
	return VehicleDescriptor{
		ID:         id,
		Mass:       1200,
		Wheelbase:  2.6,
		TrackWidth: 1.6,
		CGHeight:   0.55,
		Locomotion: LocomotionTuning{
			MaxSpeed:        40,
			MaxSteerAngle:   0.6,
			MaxAccel:        4.0,
			MaxBrakeDecel:   8.0,
			DragCoeff:       0.002,
			RollingCoeff:    0.05,
			UndersteerCoeff: 0.08,
			MaxYawRateDelta: 2.5,
			WheelRadius:     0.33,
		},
		Suspension: SuspensionTuning{
			Stiffness:           42000,
			Damping:             6500,
			Travel:              0.12,
			ProgressiveExponent: 2.0,
			ImpactKick:          10,
			MaxImpactVelocity:   3,
		},
		Drivetrain: DrivetrainTuning{
			GearRatios:        []float64{3.626, 2.188, 1.541, 1.213, 1.0, 0.767},
			FinalDrive:        3.42,
			IdleRPM:           800,
			MaxRPM:            7500,
			UpshiftRPM:        5200,
			DownshiftRPM:      2200,
			ClutchEngageSpeed: 1.0,
			RiseRate:          3500,
			FallRate:          2500,
		},
		Brake: BrakeTuning{
			MaxForce:  9000,
			RiseRate:  12,
			DecayRate: 4,
		},
	}
}
