// Package monitor periodically snapshots sim health (tick count,
// vehicles, recorder backlog, flush latency) into a status file that
// external tooling can tail.
package monitor

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/pkg/core"
)

// SimStatus is the slice of the coordinator the monitor reads.
type SimStatus interface {
	Tick() uint64
	VehicleIDs() []core.VehicleID
}

// RecorderStatus is the slice of the recorder the monitor reads.
type RecorderStatus interface {
	Pending() int
}

// FlushStatus is the slice of the flush worker the monitor reads.
type FlushStatus interface {
	LastFlushDuration() time.Duration
}

// Dependencies holds everything the monitor observes.
type Dependencies struct {
	Sim      SimStatus
	Recorder RecorderStatus
	Flusher  FlushStatus // optional
}

// Status is one line of the status file.
type Status struct {
	Time            time.Time `json:"time"`
	Tick            uint64    `json:"tick"`
	Vehicles        int       `json:"vehicles"`
	PendingStates   int       `json:"pendingStates"`
	LastFlushMillis float64   `json:"lastFlushMillis"`
}

// Service writes the status file on an interval.
type Service struct {
	log      zerolog.Logger
	deps     Dependencies
	path     string
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewService creates a monitor writing to path.
func NewService(log zerolog.Logger, deps Dependencies, path string, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		log:      log.With().Str("component", "monitor").Logger(),
		deps:     deps,
		path:     path,
		interval: interval,
	}
}

// Snapshot builds the current status line.
func (s *Service) Snapshot() Status {
	st := Status{
		Time:          time.Now().UTC(),
		Tick:          s.deps.Sim.Tick(),
		Vehicles:      len(s.deps.Sim.VehicleIDs()),
		PendingStates: s.deps.Recorder.Pending(),
	}
	if s.deps.Flusher != nil {
		st.LastFlushMillis = float64(s.deps.Flusher.LastFlushDuration().Microseconds()) / 1000
	}
	return st
}

// WriteStatus writes one snapshot, replacing the previous file contents.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(data, '\n'), 0644)
}

// Start launches the monitor goroutine. Starting a running service is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.stopChan)
}

func (s *Service) loop(stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.WriteStatus(); err != nil {
				s.log.Error().Err(err).Str("path", s.path).Msg("Status write failed")
			}
		}
	}
}

// IsRunning reports whether the monitor goroutine is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop halts the goroutine and writes a final status line.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.WriteStatus(); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Final status write failed")
	}
}
