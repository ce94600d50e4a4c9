// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openroads/drivecore/pkg/core"
)

// exportEnvelope is the on-disk JSON layout of one recorded run.
type exportEnvelope struct {
	Run      *core.RunInfo   `json:"run"`
	EndedAt  time.Time       `json:"endedAt"`
	Vehicles []exportVehicle `json:"vehicles"`
}

type exportVehicle struct {
	Descriptor  core.VehicleDescriptor `json:"descriptor"`
	States      []core.VehicleState    `json:"states"`
	Transitions []core.TransitionEvent `json:"transitions,omitempty"`
}

// exportJSON writes the run data to a JSON file, optionally gzipped.
// Caller holds the lock.
func (b *Backend) exportJSON() error {
	if b.run == nil {
		return nil
	}

	env := exportEnvelope{
		Run:     b.run,
		EndedAt: time.Now().UTC(),
	}
	for _, id := range b.order {
		rec := b.vehicles[id]
		env.Vehicles = append(env.Vehicles, exportVehicle{
			Descriptor:  rec.Descriptor,
			States:      rec.States,
			Transitions: rec.Transitions,
		})
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.json", b.run.Name, b.run.StartedAt.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	path := filepath.Join(b.cfg.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(file)
		defer gz.Close()
		if err := json.NewEncoder(gz).Encode(env); err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
	} else {
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
	}

	b.exportedPath = path
	return nil
}
