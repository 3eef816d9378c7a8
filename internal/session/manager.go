package session

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/adk/session"
)

// Manager maps AG-UI threads onto ADK sessions
type Manager struct {
	service session.Service
	appName string
	userID  string

	// serializes GetOrCreate so two requests for a new thread do not race
	// to create it
	mu sync.Mutex
}

// NewManager creates a new session manager backed by an in-memory service
func NewManager(appName, userID string) *Manager {
	return &Manager{
		service: session.InMemoryService(),
		appName: appName,
		userID:  userID,
	}
}

// UserID returns the user every session is owned by
func (m *Manager) UserID() string {
	return m.userID
}

// GetOrCreate returns the session for threadID, creating it on first use
// so that every run of a thread shares one ADK conversation
func (m *Manager) GetOrCreate(ctx context.Context, threadID string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	getResp, err := m.service.Get(ctx, &session.GetRequest{
		AppName:   m.appName,
		UserID:    m.userID,
		SessionID: threadID,
	})
	if err == nil && getResp != nil && getResp.Session != nil {
		return getResp.Session, nil
	}

	sessResp, err := m.service.Create(ctx, &session.CreateRequest{
		AppName:   m.appName,
		UserID:    m.userID,
		SessionID: threadID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessResp.Session, nil
}

// Service returns the underlying session service
func (m *Manager) Service() session.Service {
	return m.service
}
