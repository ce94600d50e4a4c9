// Package telemetry streams per-step vehicle state points to InfluxDB.
// When the server is unreachable, points are appended to a gzipped
// line-protocol backup file instead so a run is never silently lost.
package telemetry

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/openroads/drivecore/internal/geo"
	"github.com/openroads/drivecore/pkg/core"
)

// VehicleBucket receives the per-step vehicle state points.
const VehicleBucket = "vehicle_states"

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		IsValid:    false,
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the
// backup writer when the server does not answer a ping.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())
	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to reach InfluxDB, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
		return nil
	}

	m.IsValid = true
	m.Writer = m.Client.WriteAPI(viper.GetString("influx.org"), VehicleBucket)
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// WriteVehicleState emits one snapshot as a point, geo-tagged so the
// position renders on map tooling.
func (m *Manager) WriteVehicleState(runName string, state *core.VehicleState) {
	lon, lat := geo.LonLatFromPlanar(state.Position.X, state.Position.Z)

	point := influxdb2_write.NewPoint(
		"vehicle_state",
		map[string]string{
			"run":     runName,
			"vehicle": string(state.ID),
			"surface": dominantKind(state).String(),
		},
		map[string]interface{}{
			"tick":       int64(state.Tick),
			"x":          state.Position.X,
			"z":          state.Position.Z,
			"lon":        lon,
			"lat":        lat,
			"yaw":        state.Yaw,
			"speed":      state.Speed,
			"rpm":        state.RPM,
			"gear":       state.Gear,
			"brakeForce": state.BrakeForce,
			"pitch":      state.Pitch,
			"roll":       state.Roll,
			"heave":      state.Heave,
		},
		time.Now().UTC(),
	)

	if m.IsValid {
		m.Writer.WritePoint(point)
		return
	}
	if m.BackupWriter != nil {
		line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
		if _, err := m.BackupWriter.Write([]byte(line)); err != nil {
			m.Logger.Error().Err(err).Msg("Failed to write telemetry backup line")
		}
	}
}

func dominantKind(state *core.VehicleState) core.SurfaceKind {
	var counts [core.SurfaceGrass + 1]int
	for _, s := range state.Surfaces {
		counts[s.Kind]++
	}
	best := core.SurfaceUnknown
	bestCount := 0
	for kind := core.SurfaceAsphalt; kind <= core.SurfaceGrass; kind++ {
		if counts[kind] > bestCount {
			best = kind
			bestCount = counts[kind]
		}
	}
	return best
}

// Close flushes and shuts down whichever sink is active.
func (m *Manager) Close() {
	if m.IsValid {
		m.Writer.Flush()
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		if err := m.BackupWriter.Close(); err != nil {
			m.Logger.Error().Err(err).Msg("Failed to close telemetry backup writer")
		}
	}
}
