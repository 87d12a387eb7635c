package rooms

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/privatevc/internal/models"
)

// MonitorStore holds the per-scope monitor bindings for the life of the process.
type MonitorStore struct {
	mu       sync.RWMutex
	bindings map[uuid.UUID]models.MonitorBinding
	now      func() time.Time
}

// NewMonitorStore creates an empty binding store.
func NewMonitorStore() *MonitorStore {
	return &MonitorStore{bindings: make(map[uuid.UUID]models.MonitorBinding), now: time.Now}
}

// Set binds scopeID to displayID, replacing any earlier binding.
func (m *MonitorStore) Set(scopeID, displayID uuid.UUID) models.MonitorBinding {
	b := models.MonitorBinding{ScopeID: scopeID, DisplayID: displayID, BoundAt: m.now().UTC()}
	m.mu.Lock()
	m.bindings[scopeID] = b
	m.mu.Unlock()
	return b
}

// Get returns the binding for scopeID.
func (m *MonitorStore) Get(scopeID uuid.UUID) (models.MonitorBinding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bindings[scopeID]
	return b, ok
}

// Scopes returns every scope with a binding.
func (m *MonitorStore) Scopes() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(m.bindings))
	for id := range m.bindings {
		out = append(out, id)
	}
	return out
}

// Close drops all bindings.
func (m *MonitorStore) Close() {
	m.mu.Lock()
	m.bindings = make(map[uuid.UUID]models.MonitorBinding)
	m.mu.Unlock()
}
