package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// DefaultIdleTTL is how long a session survives without messages.
const DefaultIdleTTL = 30 * time.Minute

// Options configures a Manager.
type Options struct {
	IdleTTL time.Duration
	// OnExpire runs after a session is removed, e.g. to drop its result cache.
	OnExpire func(id string)
	Logger   *logger.Logger
	Now      func() time.Time
}

// Manager is the session registry of one tenant.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Context

	idleTTL  time.Duration
	onExpire func(id string)
	log      *logger.Logger
	now      func() time.Time
}

// NewManager creates an empty registry.
func NewManager(opts Options) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Manager{
		sessions: make(map[string]*Context),
		idleTTL:  opts.IdleTTL,
		onExpire: opts.OnExpire,
		log:      opts.Logger,
		now:      opts.Now,
	}
}

// NewID issues a fresh session id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Get returns the session, creating it on first use. An empty id gets a
// server-issued one. The returned context is not locked.
func (m *Manager) Get(id string) *Context {
	if id == "" {
		id = NewID()
	}
	now := m.now()

	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		c.touch(now)
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.sessions[id]; ok {
		c.touch(now)
		return c
	}
	c = newContext(id, m.now)
	m.sessions[id] = c
	m.log.Debug("session created", zap.String("session_id", id))
	return c
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(id string) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	return c, ok
}

// Delete removes a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok && m.onExpire != nil {
		m.onExpire(id)
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for at least the idle TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	var expired []string

	m.mu.Lock()
	for id, c := range m.sessions {
		if now.Sub(c.LastSeen()) >= m.idleTTL {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if m.onExpire != nil {
			m.onExpire(id)
		}
	}
	if len(expired) > 0 {
		m.log.Info("sessions expired", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
