package runner

import (
	"sync"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/agui"
	"agui-platform-runner/internal/stream"
)

// RunState marks a thread as executing.
type RunState struct {
	RunID string

	conn *Connection
}

// Connection is the streaming context of a thread while a run is in flight.
type Connection struct {
	// emitMu orders buffering and broadcast of the run's events.
	emitMu sync.Mutex

	// live carries every event of the thread's runs to connect observers.
	live *stream.Subject

	agent agent.Agent
	// run carries only the current invocation's events.
	run           *stream.Subject
	events        []agui.Event
	stopRequested bool
	finalized     bool
}

// Registry holds the per-thread run and connection state. All access goes
// through its mutex; callers never keep a Connection across an unlock
// without re-checking ownership.
type Registry struct {
	mu          sync.Mutex
	running     map[string]*RunState
	connections map[string]*Connection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		running:     make(map[string]*RunState),
		connections: make(map[string]*Connection),
	}
}

// IsRunning reports whether threadID has a run in flight.
func (r *Registry) IsRunning(threadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[threadID]
	return ok
}

// HasConnection reports whether threadID has a streaming context.
func (r *Registry) HasConnection(threadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.connections[threadID]
	return ok
}

// RunID returns the run id of threadID's run in flight.
func (r *Registry) RunID(threadID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.running[threadID]
	if !ok {
		return "", false
	}
	return rs.RunID, true
}

// liveSubject returns the live subject of threadID if a run is in flight or
// a stop is still being finalized.
func (r *Registry) liveSubject(threadID string) (*stream.Subject, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[threadID]
	if !ok {
		return nil, false
	}
	_, running := r.running[threadID]
	if !running && !conn.stopRequested {
		return nil, false
	}
	return conn.live, true
}
