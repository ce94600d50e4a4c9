// internal/storage/gormdb/models.go
package gormdb

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists the structs representing tables in the schema.
var DatabaseModels = []interface{}{
	&Run{},
	&Vehicle{},
	&VehicleState{},
	&SurfaceTransition{},
}

// Run is one recorded simulation run.
type Run struct {
	ID        uint `gorm:"primarykey"`
	Name      string
	WorldName string
	StepHz    float64
	StartedAt time.Time
	EndedAt   *time.Time
}

// Vehicle is a registered vehicle and its descriptor, tuning stored as JSON.
type Vehicle struct {
	ID         uint `gorm:"primarykey"`
	RunID      uint `gorm:"index"`
	VehicleID  string
	Mass       float64
	Wheelbase  float64
	TrackWidth float64
	CGHeight   float64
	Tuning     datatypes.JSON
}

// VehicleState is one per-step merged snapshot.
type VehicleState struct {
	ID                uint `gorm:"primarykey"`
	RunID             uint `gorm:"index"`
	VehicleID         string
	Tick              uint64
	X                 float64
	Z                 float64
	Yaw               float64
	Speed             float64
	SteerAngle        float64
	LateralAccel      float64
	LongitudinalAccel float64
	Pitch             float64
	Roll              float64
	Heave             float64
	RPM               float64
	Gear              int
	ClutchEngaged     bool
	BrakeForce        float64
	BrakeLightsOn     bool
	Wheels            datatypes.JSON // per-corner compression and surface
}

// SurfaceTransition is one per-wheel surface change.
type SurfaceTransition struct {
	ID         uint `gorm:"primarykey"`
	RunID      uint `gorm:"index"`
	VehicleID  string
	Corner     string
	FromKind   string
	ToKind     string
	FromHeight float64
	ToHeight   float64
}
