// Package worker runs the background flush goroutine that drains the
// recorder into storage on a wall-clock interval, keeping backend
// writes off the sim loop.
package worker

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/internal/recorder"
)

// Manager owns the flush goroutine.
type Manager struct {
	log      zerolog.Logger
	rec      *recorder.Recorder
	interval time.Duration

	mu        sync.Mutex
	running   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	lastFlush time.Duration
}

// NewManager creates a manager flushing the recorder at the given interval.
func NewManager(log zerolog.Logger, rec *recorder.Recorder, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Second
	}
	return &Manager{
		log:      log.With().Str("component", "worker").Logger(),
		rec:      rec,
		interval: interval,
	}
}

// Start launches the flush goroutine. Starting a running manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})

	m.wg.Add(1)
	go m.loop(m.stopChan)
}

func (m *Manager) loop(stop chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.flush()
		}
	}
}

func (m *Manager) flush() {
	start := time.Now()
	if err := m.rec.Flush(); err != nil {
		m.log.Error().Err(err).Msg("Background flush failed")
		return
	}
	m.mu.Lock()
	m.lastFlush = time.Since(start)
	m.mu.Unlock()
}

// Stop halts the goroutine and runs one final flush so nothing captured
// before Stop is lost.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	m.flush()
}

// IsRunning reports whether the flush goroutine is active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastFlushDuration returns how long the most recent successful flush took.
func (m *Manager) LastFlushDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFlush
}
