// internal/storage/storage.go
package storage

import (
	"github.com/openroads/drivecore/pkg/core"
)

// Backend is the interface all recording implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.RunInfo) error
	EndRun() error

	// Vehicle registration
	AddVehicle(desc *core.VehicleDescriptor) error

	// State recording
	RecordVehicleState(state *core.VehicleState) error
	RecordTransition(id core.VehicleID, ev core.TransitionEvent) error
}

// Exportable is an optional interface for backends that produce a file
// when a run ends.
type Exportable interface {
	GetExportedFilePath() string
}
