// drivesim runs the vehicle dynamics core headless: it builds a demo
// world, registers vehicles, drives them through a scripted input
// program at a fixed 60 Hz, and records every snapshot to the
// configured backend (and to InfluxDB when enabled).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openroads/drivecore/internal/config"
	"github.com/openroads/drivecore/internal/coordinator"
	"github.com/openroads/drivecore/internal/logging"
	"github.com/openroads/drivecore/internal/monitor"
	"github.com/openroads/drivecore/internal/recorder"
	"github.com/openroads/drivecore/internal/sim"
	"github.com/openroads/drivecore/internal/storage"
	"github.com/openroads/drivecore/internal/telemetry"
	"github.com/openroads/drivecore/internal/worker"
	"github.com/openroads/drivecore/internal/world"
	"github.com/openroads/drivecore/pkg/core"
)

func main() {
	configDir := flag.String("config", ".", "directory containing drivesim.cfg.json")
	duration := flag.Duration("duration", 30*time.Second, "simulated run length")
	vehicles := flag.Int("vehicles", 1, "number of vehicles to register")
	flag.Parse()

	if err := run(*configDir, *duration, *vehicles); err != nil {
		fmt.Fprintln(os.Stderr, "drivesim:", err)
		os.Exit(1)
	}
}

func run(configDir string, duration time.Duration, vehicleCount int) error {
	sessionStart := time.Now().UTC()

	if err := config.Load(configDir); err != nil {
		// Defaults are fine for a local soak run.
		config.SetDefaults()
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logOpts := logging.Options{
		Level:    config.GetString("logLevel"),
		FilePath: logging.LogFilePath(logsDir, "drivesim", sessionStart),
	}
	if config.GetBool("graylog.enabled") {
		logOpts.GraylogAddress = config.GetString("graylog.address")
	}
	log, closeLog, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info().
		Dur("duration", duration).
		Int("vehicles", vehicleCount).
		Msg("Starting drivesim")

	// World and coordinator. The world handle is explicit; anyone who
	// wants to share one passes the same instance.
	w := world.DefaultCrossroad()
	coord, err := coordinator.New(log, w)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	stepper, err := sim.NewStepper(log, coord,
		sim.WithStepHz(config.GetFloat64("sim.stepHz")),
		sim.WithMaxSubsteps(config.GetInt("sim.maxSubsteps")),
	)
	if err != nil {
		return fmt.Errorf("creating stepper: %w", err)
	}

	backend, err := storage.NewBackend(config.Storage(), log)
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}
	defer backend.Close()

	runInfo := core.RunInfo{
		Name:      "soak",
		WorldName: "crossroad",
		StepHz:    config.GetFloat64("sim.stepHz"),
		StartedAt: sessionStart,
	}
	if err := backend.StartRun(&runInfo); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	rec := recorder.New(log, backend)

	flusher := worker.NewManager(log, rec, 250*time.Millisecond)
	flusher.Start()

	status := monitor.NewService(log, monitor.Dependencies{
		Sim:      coord,
		Recorder: rec,
		Flusher:  flusher,
	}, filepath.Join(logsDir, "status.json"), time.Second)
	status.Start()
	defer status.Stop()

	var influx *telemetry.Manager
	if config.GetBool("influx.enabled") {
		influx = telemetry.NewManager(log, filepath.Join(logsDir, "influx_backup.log.gzip"))
		if err := influx.Connect(); err != nil {
			log.Warn().Err(err).Msg("InfluxDB disabled")
			influx = nil
		} else {
			defer influx.Close()
		}
	}

	ids := make([]core.VehicleID, 0, vehicleCount)
	for i := 0; i < vehicleCount; i++ {
		id := core.VehicleID(fmt.Sprintf("car-%02d", i+1))
		desc := core.DefaultDescriptor(id)
		if err := coord.AddVehicle(desc); err != nil {
			return fmt.Errorf("adding %s: %w", id, err)
		}
		if err := backend.AddVehicle(&desc); err != nil {
			return fmt.Errorf("recording %s: %w", id, err)
		}
		ids = append(ids, id)
	}

	dt := stepper.StepDt()
	totalSteps := int(duration.Seconds() / dt)

	for step := 0; step < totalSteps; step++ {
		t := float64(step) * dt
		for _, id := range ids {
			coord.SetInput(id, scriptedInput(t))
		}
		stepper.Advance(dt)

		for _, id := range ids {
			if snap, ok := coord.VehicleState(id); ok {
				rec.Capture(snap)
				if influx != nil {
					influx.WriteVehicleState(runInfo.Name, &snap)
				}
			}
			if events := coord.Transitions(id); len(events) > 0 {
				rec.CaptureTransitions(id, events)
			}
		}
	}

	// Stop runs a final flush; nothing captured above is lost.
	flusher.Stop()
	if err := backend.EndRun(); err != nil {
		return fmt.Errorf("ending run: %w", err)
	}

	for _, id := range ids {
		snap, _ := coord.VehicleState(id)
		log.Info().
			Str("vehicle", string(id)).
			Float64("x", snap.Position.X).
			Float64("z", snap.Position.Z).
			Float64("speed", snap.Speed).
			Int("gear", snap.Gear).
			Float64("rpm", snap.RPM).
			Str("surface", coord.DominantSurface(id).String()).
			Msg("Run complete")
	}

	if exp, ok := backend.(storage.Exportable); ok && exp.GetExportedFilePath() != "" {
		log.Info().Str("path", exp.GetExportedFilePath()).Msg("Recording exported")
	}

	return nil
}

// scriptedInput produces a repeating throttle/steer/brake program:
// accelerate straight, sweep right, sweep left, brake hard.
func scriptedInput(t float64) core.DriverInput {
	phase := t - float64(int(t/20))*20
	switch {
	case phase < 8:
		return core.DriverInput{Throttle: 1}
	case phase < 12:
		return core.DriverInput{Throttle: 0.6, Steering: 0.5}
	case phase < 16:
		return core.DriverInput{Throttle: 0.6, Steering: -0.5}
	default:
		return core.DriverInput{Brake: 1}
	}
}
