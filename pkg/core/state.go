// pkg/core/state.go
package core

// VehicleState is the merged read-only snapshot of all five per-system
// states for one vehicle. It is rebuilt once per coordinator update and
// has no identity of its own; consumers must not hold references into it.
type VehicleState struct {
	ID   VehicleID
	Tick uint64

	// Locomotion
	Position          Position
	Yaw               float64 // rad
	Speed             float64 // m/s
	TargetSpeed       float64
	SteerAngle        float64 // rad, negative steers right
	YawRate           float64 // rad/s
	LateralAccel      float64 // m/s²
	LongitudinalAccel float64 // m/s²
	WheelSpin         float64 // rad, accumulated

	// Suspension
	Compression [NumCorners]float64
	Pitch       float64
	Roll        float64
	Heave       float64

	// Drivetrain
	RPM           float64
	Gear          int // 1-based index into the gear table
	ClutchEngaged bool

	// Brake
	BrakeForce    float64
	BrakeLightsOn bool

	// Surface
	Surfaces [NumCorners]SurfaceSample
}

// VehicleDebug exposes intermediate values for tooling on top of the
// regular snapshot: the last input echo and internal locomotion terms.
type VehicleDebug struct {
	Input          DriverInput
	TargetSpeed    float64
	EffectiveSteer float64
	DesiredYawRate float64
	DriveAccel     float64 // m/s², drive term before resistances
	BrakeDecel     float64 // m/s², total braking deceleration applied
}
