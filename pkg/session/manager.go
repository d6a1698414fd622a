// Package session tracks the live conversations of a hosting process.
//
// There is deliberately no persistence behind it: a widget session dies with
// the process (or with the janitor's idle TTL), and a page reload starts a
// fresh conversation.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/internal/logging"
	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// DefaultIdleTTL is how long an untouched session survives before the
// janitor reclaims it. Widgets usually DELETE their session on unmount;
// the TTL covers tabs that just vanish.
const DefaultIdleTTL = 30 * time.Minute

// Manager owns the registry of open conversations for one engine.
type Manager struct {
	engine *leadchat.Engine
	logger *slog.Logger

	idleTTL time.Duration

	mu    sync.RWMutex
	convs map[string]*leadchat.Conversation

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIdleTTL overrides the idle eviction window.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.idleTTL = ttl
		}
	}
}

// NewManager creates a session manager over the given engine.
func NewManager(engine *leadchat.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:      engine,
		logger:      logging.NewNop(),
		idleTTL:     DefaultIdleTTL,
		convs:       make(map[string]*leadchat.Conversation),
		janitorStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates and activates a conversation for a new widget session.
func (m *Manager) Open(ctx context.Context, page string) (*leadchat.Conversation, error) {
	conv := m.engine.Open(page)
	if err := conv.Activate(ctx); err != nil {
		conv.Close()
		return nil, err
	}

	m.mu.Lock()
	m.convs[conv.SessionID()] = conv
	m.mu.Unlock()

	m.logger.Debug("session opened", "session_id", conv.SessionID(), "page", page)
	return conv, nil
}

// Get returns the live conversation for a session id.
func (m *Manager) Get(sessionID string) (*leadchat.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.convs[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return conv, nil
}

// Close tears a session down and removes it from the registry.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	conv, ok := m.convs[sessionID]
	delete(m.convs, sessionID)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	conv.Close()
	m.logger.Debug("session closed", "session_id", sessionID)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}

// StartJanitor launches the background sweep that closes idle sessions.
// It stops when Shutdown is called.
func (m *Manager) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.janitorStop:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// sweep closes every conversation idle past the TTL.
func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var stale []*leadchat.Conversation
	for id, conv := range m.convs {
		if conv.LastActive().Before(cutoff) {
			stale = append(stale, conv)
			delete(m.convs, id)
		}
	}
	m.mu.Unlock()

	for _, conv := range stale {
		conv.Close()
		m.logger.Info("idle session evicted", "session_id", conv.SessionID())
	}
}

// Shutdown stops the janitor and closes every live session, cancelling
// their pending deliveries.
func (m *Manager) Shutdown() {
	m.janitorOnce.Do(func() { close(m.janitorStop) })

	m.mu.Lock()
	convs := make([]*leadchat.Conversation, 0, len(m.convs))
	for _, conv := range m.convs {
		convs = append(convs, conv)
	}
	m.convs = make(map[string]*leadchat.Conversation)
	m.mu.Unlock()

	for _, conv := range convs {
		conv.Close()
	}
}
