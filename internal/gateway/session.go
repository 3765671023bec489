package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// session identifies one connected client for the lifetime of a transport
// connection.
type session struct {
	ID        string
	Client    ClientInfo
	StartedAt time.Time
}

// sessionManager holds the current client session.
type sessionManager struct {
	mu      sync.Mutex
	current *session
}

func newSessionManager() *sessionManager {
	return &sessionManager{}
}

// create starts a new session, replacing any previous one.
func (sm *sessionManager) create(clientInfo ClientInfo) *session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.current = &session{
		ID:        uuid.NewString(),
		Client:    clientInfo,
		StartedAt: time.Now(),
	}
	slog.Info("session started",
		"session", sm.current.ID,
		"client", clientInfo.Name,
		"client_version", clientInfo.Version)
	return sm.current
}

func (sm *sessionManager) disconnect() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.current == nil {
		return
	}
	slog.Info("session ended",
		"session", sm.current.ID,
		"duration", time.Since(sm.current.StartedAt).Round(time.Millisecond))
	sm.current = nil
}

func (sm *sessionManager) sessionID() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.current == nil {
		return ""
	}
	return sm.current.ID
}
