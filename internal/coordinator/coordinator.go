// Package coordinator owns the vehicle registry and the five simulation
// systems, and is the only place where data moves between them. Systems
// never call each other; every inter-system value crosses through one
// narrow, named call in a fixed order per step.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/openroads/drivecore/internal/brake"
	"github.com/openroads/drivecore/internal/drivetrain"
	"github.com/openroads/drivecore/internal/locomotion"
	"github.com/openroads/drivecore/internal/surface"
	"github.com/openroads/drivecore/internal/suspension"
	"github.com/openroads/drivecore/pkg/core"
)

// ErrVehicleExists is returned when adding an already registered vehicle id.
var ErrVehicleExists = errors.New("vehicle already registered")

// ErrVehicleNotFound is returned when removing an unregistered vehicle id.
var ErrVehicleNotFound = errors.New("vehicle not registered")

// Coordinator is the public entry point of the dynamics core. The world
// handle is passed at construction; callers that want to share a world
// across coordinators pass the same handle, there is no hidden global.
type Coordinator struct {
	mu  sync.RWMutex
	log zerolog.Logger

	brake      *brake.System
	drivetrain *drivetrain.System
	locomotion *locomotion.System
	surface    *surface.System
	suspension *suspension.System

	registry map[core.VehicleID]*core.VehicleDescriptor
	order    []core.VehicleID

	tick      uint64
	snapshots map[core.VehicleID]core.VehicleState

	vehicleGauge metric.Int64ObservableGauge
}

// New creates a coordinator with empty systems querying the given world.
// A nil world degrades surface classification to UNKNOWN.
func New(log zerolog.Logger, world surface.World) (*Coordinator, error) {
	c := &Coordinator{
		log:        log.With().Str("component", "coordinator").Logger(),
		brake:      brake.New(log),
		drivetrain: drivetrain.New(log),
		locomotion: locomotion.New(log),
		surface:    surface.New(log, world),
		suspension: suspension.New(log),
		registry:   make(map[core.VehicleID]*core.VehicleDescriptor),
		snapshots:  make(map[core.VehicleID]core.VehicleState),
	}

	m := meter()
	var err error
	c.vehicleGauge, err = m.Int64ObservableGauge(
		"sim.vehicles",
		metric.WithDescription("Currently registered vehicles"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vehicle gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			c.mu.RLock()
			defer c.mu.RUnlock()
			o.ObserveInt64(c.vehicleGauge, int64(len(c.registry)))
			return nil
		},
		c.vehicleGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering vehicle gauge callback: %w", err)
	}
	return c, nil
}

// AddVehicle validates the descriptor and registers the vehicle with all
// five systems atomically: either every system gets an entry or none does.
func (c *Coordinator) AddVehicle(desc core.VehicleDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.registry[desc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrVehicleExists, desc.ID)
	}

	// The registry owns the descriptor copy; systems share the pointer
	// but the struct is immutable after this point.
	d := desc
	c.registry[d.ID] = &d
	c.order = append(c.order, d.ID)

	c.brake.Register(&d)
	c.drivetrain.Register(&d)
	c.locomotion.Register(&d)
	c.surface.Register(&d)
	c.suspension.Register(&d)

	c.snapshots[d.ID] = c.buildSnapshot(d.ID)

	c.log.Info().Str("vehicle", string(d.ID)).Msg("Vehicle registered")
	return nil
}

// RemoveVehicle unregisters the vehicle from all five systems atomically.
// Nothing survives removal.
func (c *Coordinator) RemoveVehicle(id core.VehicleID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.registry[id]; !ok {
		return fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}

	c.brake.Unregister(id)
	c.drivetrain.Unregister(id)
	c.locomotion.Unregister(id)
	c.surface.Unregister(id)
	c.suspension.Unregister(id)

	delete(c.registry, id)
	delete(c.snapshots, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	c.log.Info().Str("vehicle", string(id)).Msg("Vehicle removed")
	return nil
}

// HasVehicle reports whether the id is registered.
func (c *Coordinator) HasVehicle(id core.VehicleID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.registry[id]
	return ok
}

// VehicleIDs returns the registered ids in registration order.
func (c *Coordinator) VehicleIDs() []core.VehicleID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.VehicleID, len(c.order))
	copy(out, c.order)
	return out
}

// SetInput records the latest driver input for a vehicle. Values are
// sanitized once here and fanned out to the brake, drivetrain and
// locomotion systems; suspension and surface take no direct input.
// Unknown ids are ignored so callers can poll through teardown races.
func (c *Coordinator) SetInput(id core.VehicleID, in core.DriverInput) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.registry[id]; !ok {
		return
	}
	in = in.Sanitized()
	c.brake.SetInput(id, in.Brake, in.Handbrake)
	c.drivetrain.SetInput(id, in.Throttle)
	c.locomotion.SetInput(id, in)
}

// FixedUpdate advances the whole core by one fixed step in the contract
// order: brake, drivetrain (fed the prior step's speed), locomotion (fed
// brake force), surface (fed the new pose), curb impacts from this
// step's transitions, then suspension (fed this step's acceleration).
func (c *Coordinator) FixedUpdate(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++

	// The drivetrain sees last step's speed; the one-step lag is an
	// accepted approximation, not a bug.
	for _, id := range c.order {
		loco, _ := c.locomotion.State(id)
		c.drivetrain.SetExternalSpeed(id, loco.Speed)
	}

	c.brake.FixedUpdate(dt)
	c.drivetrain.FixedUpdate(dt)

	for _, id := range c.order {
		br, _ := c.brake.State(id)
		c.locomotion.SetBrakeForce(id, br.Force)
	}
	c.locomotion.FixedUpdate(dt)

	for _, id := range c.order {
		loco, _ := c.locomotion.State(id)
		c.surface.SetPose(id, loco.Position.X, loco.Position.Z, loco.Yaw)
	}
	c.surface.FixedUpdate(dt)

	for _, id := range c.order {
		desc := c.registry[id]
		for _, ev := range c.surface.Transitions(id) {
			c.suspension.ApplyCurbImpact(id, ev.Corner, ev.HeightDelta(), suspension.ImpactOptions{
				ImpactKick:  desc.Suspension.ImpactKick,
				MaxVelocity: desc.Suspension.MaxImpactVelocity,
			})
			c.log.Debug().
				Str("vehicle", string(id)).
				Str("corner", ev.Corner.String()).
				Str("from", ev.From.String()).
				Str("to", ev.To.String()).
				Float64("heightDelta", ev.HeightDelta()).
				Msg("Surface transition")
		}
		loco, _ := c.locomotion.State(id)
		c.suspension.SetChassisAcceleration(id, loco.LateralAccel, loco.LongitudinalAccel)
	}
	c.suspension.FixedUpdate(dt)

	for _, id := range c.order {
		c.snapshots[id] = c.buildSnapshot(id)
	}
}

// buildSnapshot merges the five per-system states. Caller holds the lock.
func (c *Coordinator) buildSnapshot(id core.VehicleID) core.VehicleState {
	snap := core.VehicleState{ID: id, Tick: c.tick}

	if loco, ok := c.locomotion.State(id); ok {
		snap.Position = loco.Position
		snap.Yaw = loco.Yaw
		snap.Speed = loco.Speed
		snap.TargetSpeed = loco.TargetSpeed
		snap.SteerAngle = loco.SteerAngle
		snap.YawRate = loco.YawRate
		snap.LateralAccel = loco.LateralAccel
		snap.LongitudinalAccel = loco.LongitudinalAccel
		snap.WheelSpin = loco.WheelSpin
	}
	if susp, ok := c.suspension.State(id); ok {
		for _, corner := range core.Corners {
			snap.Compression[corner] = susp.Springs[corner].Compression
		}
		snap.Pitch = susp.Pitch
		snap.Roll = susp.Roll
		snap.Heave = susp.Heave
	}
	if dt, ok := c.drivetrain.State(id); ok {
		snap.RPM = dt.RPM
		snap.Gear = dt.Gear
		snap.ClutchEngaged = dt.ClutchEngaged
	}
	if br, ok := c.brake.State(id); ok {
		snap.BrakeForce = br.Force
		snap.BrakeLightsOn = br.LightsOn
	}
	if surf, ok := c.surface.State(id); ok {
		snap.Surfaces = surf.Samples
	}
	return snap
}

// VehicleState returns the merged snapshot rebuilt after the last step.
// The second return is false for unknown ids; callers poll defensively.
func (c *Coordinator) VehicleState(id core.VehicleID) (core.VehicleState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[id]
	return snap, ok
}

// VehicleDebug exposes intermediate values for tooling: the input echo
// and the locomotion integration terms of the last step.
func (c *Coordinator) VehicleDebug(id core.VehicleID) (core.VehicleDebug, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	in, ok := c.locomotion.Input(id)
	if !ok {
		return core.VehicleDebug{}, false
	}
	loco, _ := c.locomotion.State(id)
	dbg, _ := c.locomotion.DebugState(id)
	return core.VehicleDebug{
		Input:          in,
		TargetSpeed:    loco.TargetSpeed,
		EffectiveSteer: dbg.EffectiveSteer,
		DesiredYawRate: dbg.DesiredYawRate,
		DriveAccel:     dbg.DriveAccel,
		BrakeDecel:     dbg.BrakeDecel,
	}, true
}

// Transitions returns the surface transition events detected during the
// last step, for recording alongside the snapshot. The slice is the
// caller's to keep.
func (c *Coordinator) Transitions(id core.VehicleID) []core.TransitionEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surface.Transitions(id)
}

// IsOnSurface reports whether at least one wheel rests on the given kind.
func (c *Coordinator) IsOnSurface(id core.VehicleID, kind core.SurfaceKind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surface.IsOnSurface(id, kind)
}

// AllOnAsphalt reports whether every wheel rests on asphalt.
func (c *Coordinator) AllOnAsphalt(id core.VehicleID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surface.AllOnAsphalt(id)
}

// DominantSurface returns the surface kind under the most wheels.
func (c *Coordinator) DominantSurface(id core.VehicleID) core.SurfaceKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surface.DominantSurface(id)
}

// SetSuspensionTuning replaces a vehicle's suspension tuning block.
func (c *Coordinator) SetSuspensionTuning(id core.VehicleID, t core.SuspensionTuning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspension.SetTuning(id, t)
}

// SetDrivetrainTuning replaces a vehicle's drivetrain tuning block.
func (c *Coordinator) SetDrivetrainTuning(id core.VehicleID, t core.DrivetrainTuning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drivetrain.SetTuning(id, t)
}

// SetBrakeTuning replaces a vehicle's brake tuning block.
func (c *Coordinator) SetBrakeTuning(id core.VehicleID, t core.BrakeTuning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brake.SetTuning(id, t)
}

// ApplyCurbImpact forwards a manual curb impulse to the suspension,
// exposed for tuning and test harnesses.
func (c *Coordinator) ApplyCurbImpact(id core.VehicleID, corner core.Corner, heightDelta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	desc, ok := c.registry[id]
	if !ok {
		return
	}
	c.suspension.ApplyCurbImpact(id, corner, heightDelta, suspension.ImpactOptions{
		ImpactKick:  desc.Suspension.ImpactKick,
		MaxVelocity: desc.Suspension.MaxImpactVelocity,
	})
}

// Tick returns the number of fixed steps executed.
func (c *Coordinator) Tick() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}
