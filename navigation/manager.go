package navigation

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"shelfmatch/models"
)

// Manager owns every live session and the outbox each one writes to
type Manager struct {
	extractor Extractor
	matcher   Matcher
	catalog   CatalogProvider
	opts      Options
	outboxCap int

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

type managedSession struct {
	session *Session
	outbox  *Outbox
}

// NewManager creates a session manager
func NewManager(extractor Extractor, matcher Matcher, catalog CatalogProvider, opts Options, outboxCapacity int) *Manager {
	return &Manager{
		extractor: extractor,
		matcher:   matcher,
		catalog:   catalog,
		opts:      opts,
		outboxCap: outboxCapacity,
		sessions:  make(map[string]*managedSession),
	}
}

// Create starts a new session and returns it
func (m *Manager) Create() *Session {
	id := newSessionID()
	outbox := NewOutbox(m.outboxCap)
	session := NewSession(id, m.extractor, m.matcher, m.catalog, outbox, m.opts)

	m.mu.Lock()
	m.sessions[id] = &managedSession{session: session, outbox: outbox}
	m.mu.Unlock()

	log.Printf("🆕 Session %s created", id)
	return session
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	managed, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return managed.session, nil
}

// Drain returns the pending triggers of a session
func (m *Manager) Drain(id string) ([]models.Trigger, error) {
	m.mu.RLock()
	managed, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return managed.outbox.Drain(), nil
}

// Close stops and forgets a session
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	managed, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return models.ErrSessionNotFound
	}

	managed.session.Close()
	log.Printf("👋 Session %s closed", id)
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SweepIdle closes sessions that have not been active for ttl and returns how many it closed
func (m *Manager) SweepIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var idle []*managedSession
	for id, managed := range m.sessions {
		if managed.session.LastActive().Before(cutoff) {
			idle = append(idle, managed)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, managed := range idle {
		managed.session.Close()
	}
	if len(idle) > 0 {
		log.Printf("🧹 Swept %d idle sessions", len(idle))
	}
	return len(idle)
}

// Shutdown closes every session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*managedSession)
	m.mu.Unlock()

	for _, managed := range sessions {
		managed.session.Close()
	}
}

func newSessionID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(b)
}
