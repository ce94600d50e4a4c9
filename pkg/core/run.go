// pkg/core/run.go
package core

import "time"

// RunInfo describes one recorded simulation run.
type RunInfo struct {
	Name      string
	WorldName string
	StepHz    float64
	StartedAt time.Time
}
