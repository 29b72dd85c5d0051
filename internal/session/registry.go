package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/identity"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// RegistryOptions configures NewRegistry.
type RegistryOptions struct {
	Provider identity.Provider
	Profiles ProfileResolver
	// Size bounds the number of live sessions; the least recently used one is
	// closed when it is exceeded.
	Size int
	// TTL is the idle lifetime of a session. Every Get renews it.
	TTL    time.Duration
	Logger *zap.Logger
}

// Registry holds the live session managers keyed by an opaque session id.
type Registry struct {
	provider identity.Provider
	profiles ProfileResolver
	logger   *zap.Logger
	sessions *expirable.LRU[string, *Manager]
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Size <= 0 {
		opts.Size = 10000
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	r := &Registry{
		provider: opts.Provider,
		profiles: opts.Profiles,
		logger:   opts.Logger,
	}
	r.sessions = expirable.NewLRU(opts.Size, func(id string, m *Manager) {
		// Runs under the LRU lock; Close only touches the manager.
		m.Close()
		r.logger.Debug("Session evicted", zap.String("session_id", id))
	}, opts.TTL)
	return r
}

// Create registers a fresh UNRESOLVED session.
func (r *Registry) Create() *Manager {
	m := NewManager(ManagerOptions{
		ID:       uuid.NewString(),
		Provider: r.provider,
		Profiles: r.profiles,
		Logger:   r.logger,
	})
	r.sessions.Add(m.ID(), m)
	return m
}

// Get returns the session and extends its lifetime.
func (r *Registry) Get(id string) (*Manager, error) {
	m, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.sessions.Add(id, m)
	return m, nil
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) {
	r.sessions.Remove(id)
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close closes every live session.
func (r *Registry) Close() {
	r.sessions.Purge()
}
