// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/openroads/drivecore/internal/config"
	"github.com/openroads/drivecore/pkg/core"
)

// VehicleRecord groups a vehicle descriptor with its time-series data.
type VehicleRecord struct {
	Descriptor  core.VehicleDescriptor
	States      []core.VehicleState
	Transitions []core.TransitionEvent
}

// Backend stores run data in memory and exports to JSON on EndRun.
type Backend struct {
	cfg config.MemoryConfig
	run *core.RunInfo

	vehicles map[core.VehicleID]*VehicleRecord
	order    []core.VehicleID

	exportedPath string
	mu           sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[core.VehicleID]*VehicleRecord),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, resetting all collections.
func (b *Backend) StartRun(run *core.RunInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.vehicles = make(map[core.VehicleID]*VehicleRecord)
	b.order = nil
	b.exportedPath = ""
	return nil
}

// EndRun finalizes the run and exports it to JSON.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.exportJSON()
}

// AddVehicle registers a vehicle descriptor for the current run.
func (b *Backend) AddVehicle(desc *core.VehicleDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.vehicles[desc.ID]; !ok {
		b.order = append(b.order, desc.ID)
	}
	b.vehicles[desc.ID] = &VehicleRecord{Descriptor: *desc}
	return nil
}

// RecordVehicleState appends a per-step snapshot. States for vehicles
// never registered are dropped silently; the recorder may outlive a
// vehicle by a frame during teardown.
func (b *Backend) RecordVehicleState(state *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.vehicles[state.ID]
	if !ok {
		return nil
	}
	rec.States = append(rec.States, *state)
	return nil
}

// RecordTransition appends a surface transition event.
func (b *Backend) RecordTransition(id core.VehicleID, ev core.TransitionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.vehicles[id]
	if !ok {
		return nil
	}
	rec.Transitions = append(rec.Transitions, ev)
	return nil
}

// GetExportedFilePath returns the path written by the last EndRun, or
// empty if nothing has been exported yet.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedPath
}

// StateCount returns the number of recorded states for a vehicle.
func (b *Backend) StateCount(id core.VehicleID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.vehicles[id]
	if !ok {
		return 0
	}
	return len(rec.States)
}
