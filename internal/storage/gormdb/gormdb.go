// Package gormdb implements the storage.Backend interface on top of a
// GORM connection, Postgres or SQLite alike. Descriptors and per-wheel
// data are stored as JSON columns; states are batch-inserted.
package gormdb

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openroads/drivecore/pkg/core"
)

// batchSize bounds a single insert statement.
const batchSize = 500

// Backend records runs into a relational database via GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger

	mu    sync.Mutex
	runID uint
}

// New creates a backend on the given connection.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{
		db:  db,
		log: log.With().Str("component", "gormdb").Logger(),
	}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(DatabaseModels...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close is a no-op; the connection is owned by the database manager.
func (b *Backend) Close() error {
	return nil
}

// StartRun inserts the run row and remembers its id for later writes.
func (b *Backend) StartRun(run *core.RunInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := Run{
		Name:      run.Name,
		WorldName: run.WorldName,
		StepHz:    run.StepHz,
		StartedAt: run.StartedAt,
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	b.runID = row.ID
	return nil
}

// EndRun stamps the run row with its end time.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	err := b.db.Model(&Run{}).Where("id = ?", b.runID).Update("ended_at", now).Error
	if err != nil {
		return fmt.Errorf("closing run: %w", err)
	}
	return nil
}

// AddVehicle inserts the vehicle row with its tuning blocks as JSON.
func (b *Backend) AddVehicle(desc *core.VehicleDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tuning, err := json.Marshal(map[string]any{
		"locomotion": desc.Locomotion,
		"suspension": desc.Suspension,
		"drivetrain": desc.Drivetrain,
		"brake":      desc.Brake,
	})
	if err != nil {
		return fmt.Errorf("marshalling tuning: %w", err)
	}

	row := Vehicle{
		RunID:      b.runID,
		VehicleID:  string(desc.ID),
		Mass:       desc.Mass,
		Wheelbase:  desc.Wheelbase,
		TrackWidth: desc.TrackWidth,
		CGHeight:   desc.CGHeight,
		Tuning:     datatypes.JSON(tuning),
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting vehicle: %w", err)
	}
	return nil
}

// RecordVehicleState inserts one snapshot row.
func (b *Backend) RecordVehicleState(state *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.stateRow(state)
	if err != nil {
		return err
	}
	if err := b.db.Create(row).Error; err != nil {
		return fmt.Errorf("inserting vehicle state: %w", err)
	}
	return nil
}

// RecordVehicleStates batch-inserts many snapshots; the recorder uses
// this on flush.
func (b *Backend) RecordVehicleStates(states []core.VehicleState) error {
	if len(states) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := make([]VehicleState, 0, len(states))
	for i := range states {
		row, err := b.stateRow(&states[i])
		if err != nil {
			return err
		}
		rows = append(rows, *row)
	}
	if err := b.db.CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("batch inserting vehicle states: %w", err)
	}
	return nil
}

func (b *Backend) stateRow(state *core.VehicleState) (*VehicleState, error) {
	wheels := make(map[string]any, core.NumCorners)
	for _, c := range core.Corners {
		wheels[c.String()] = map[string]any{
			"compression": state.Compression[c],
			"surface":     state.Surfaces[c].Kind.String(),
			"height":      state.Surfaces[c].Height,
		}
	}
	wheelsJSON, err := json.Marshal(wheels)
	if err != nil {
		return nil, fmt.Errorf("marshalling wheels: %w", err)
	}

	return &VehicleState{
		RunID:             b.runID,
		VehicleID:         string(state.ID),
		Tick:              state.Tick,
		X:                 state.Position.X,
		Z:                 state.Position.Z,
		Yaw:               state.Yaw,
		Speed:             state.Speed,
		SteerAngle:        state.SteerAngle,
		LateralAccel:      state.LateralAccel,
		LongitudinalAccel: state.LongitudinalAccel,
		Pitch:             state.Pitch,
		Roll:              state.Roll,
		Heave:             state.Heave,
		RPM:               state.RPM,
		Gear:              state.Gear,
		ClutchEngaged:     state.ClutchEngaged,
		BrakeForce:        state.BrakeForce,
		BrakeLightsOn:     state.BrakeLightsOn,
		Wheels:            datatypes.JSON(wheelsJSON),
	}, nil
}

// RecordTransition inserts one surface transition row.
func (b *Backend) RecordTransition(id core.VehicleID, ev core.TransitionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := SurfaceTransition{
		RunID:      b.runID,
		VehicleID:  string(id),
		Corner:     ev.Corner.String(),
		FromKind:   ev.From.String(),
		ToKind:     ev.To.String(),
		FromHeight: ev.FromHeight,
		ToHeight:   ev.ToHeight,
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	return nil
}
