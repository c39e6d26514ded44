package display

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cronology/cronology/internal/models"
)

// DefaultSessionTTL is how long a display session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// SessionCache is the session-id namespace: short tokens bound to one event
// with a TTL. Expiry is lazy; an expired session is evicted on first access
// past ExpiresAt.
type SessionCache struct {
	mu       sync.Mutex
	sessions map[string]*models.DisplaySession
	gen      *Generator
	clock    clockwork.Clock
	ttl      time.Duration
}

// NewSessionCache creates an empty session cache.
func NewSessionCache(gen *Generator, clock clockwork.Clock, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCache{
		sessions: make(map[string]*models.DisplaySession),
		gen:      gen,
		clock:    clock,
		ttl:      ttl,
	}
}

// Create mints a new session bound to the event.
func (c *SessionCache) Create(eventID int64) (*models.DisplaySession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.gen.Generate(func(s string) bool {
		_, exists := c.sessions[s]
		return exists
	})
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	session := &models.DisplaySession{
		SessionID: id,
		EventID:   eventID,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.sessions[id] = session
	return session, nil
}

// Get returns a live session, evicting it first if expired.
func (c *SessionCache) Get(sessionID string) (*models.DisplaySession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if c.clock.Now().After(session.ExpiresAt) {
		delete(c.sessions, sessionID)
		return nil, ErrSessionExpired
	}
	return session, nil
}
