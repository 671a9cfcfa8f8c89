// Package progress bridges job queue events to connected WebSocket clients.
// It implements jobs.Notifier, turning queue transitions and progress
// snapshots into broadcast messages.
package progress

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/jobs"
	"github.com/medley-app/medley/internal/websocket"
)

// Event types sent over the WebSocket.
const (
	EventQueueState  = "queue:state"
	EventJobProgress = "job:progress"
	EventJobFinished = "job:finished"
)

// Manager forwards queue events to the hub and remembers the latest queue
// state so newly connected clients can catch up.
type Manager struct {
	hub    *websocket.Hub
	mu     sync.RWMutex
	state  jobs.QueueState
	logger zerolog.Logger
}

// NewManager creates a progress manager and registers it as the hub's
// snapshot provider.
func NewManager(hub *websocket.Hub, logger zerolog.Logger) *Manager {
	m := &Manager{
		hub:    hub,
		logger: logger.With().Str("component", "progress").Logger(),
	}
	hub.SetSnapshotProvider(func() (string, interface{}) {
		return EventQueueState, m.State()
	})
	return m
}

// QueueChanged implements jobs.Notifier.
func (m *Manager) QueueChanged(state jobs.QueueState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	if err := m.hub.Broadcast(EventQueueState, state); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to broadcast queue state")
	}
}

// JobProgress implements jobs.Notifier.
func (m *Manager) JobProgress(p jobs.Progress) {
	if err := m.hub.Broadcast(EventJobProgress, p); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to broadcast progress")
	}
}

// JobFinished implements jobs.Notifier. Finished jobs are reported once and
// not retained.
func (m *Manager) JobFinished(job jobs.Job) {
	if err := m.hub.Broadcast(EventJobFinished, job); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to broadcast job result")
	}
}

// State returns the last observed queue state.
func (m *Manager) State() jobs.QueueState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
