package agent

import (
	"maps"
	"sync"
	"time"
)

// StateManager keeps the client-supplied shared state of each thread
type StateManager struct {
	mu         sync.Mutex
	states     map[string]map[string]any
	lastAccess map[string]time.Time
	now        func() time.Time
}

// NewStateManager creates a new state manager
func NewStateManager() *StateManager {
	return &StateManager{
		states:     make(map[string]map[string]any),
		lastAccess: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Get returns a copy of the state of threadID
func (m *StateManager) Get(threadID string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[threadID]
	if !exists {
		return make(map[string]any)
	}
	m.lastAccess[threadID] = m.now()
	return maps.Clone(state)
}

// Set replaces the state of threadID
func (m *StateManager) Set(threadID string, state map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state == nil {
		state = make(map[string]any)
	}
	m.states[threadID] = maps.Clone(state)
	m.lastAccess[threadID] = m.now()
}

// Merge overlays incoming on the stored state of threadID and returns the
// result. Incoming keys win.
func (m *StateManager) Merge(threadID string, incoming map[string]any) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[string]any, len(m.states[threadID])+len(incoming))
	maps.Copy(merged, m.states[threadID])
	maps.Copy(merged, incoming)

	m.states[threadID] = merged
	m.lastAccess[threadID] = m.now()
	return maps.Clone(merged)
}

// Delete removes the state of threadID
func (m *StateManager) Delete(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, threadID)
	delete(m.lastAccess, threadID)
}

// Cleanup drops states idle for longer than olderThan and returns how many
// were removed
func (m *StateManager) Cleanup(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for threadID, last := range m.lastAccess {
		if now.Sub(last) > olderThan {
			delete(m.states, threadID)
			delete(m.lastAccess, threadID)
			removed++
		}
	}
	return removed
}
