package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// ErrClosed is returned by operations on a manager that has been closed.
var ErrClosed = errors.New("session closed")

// ProfileResolver is the provisioning capability the manager depends on.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, principal models.Principal, displayNameHint string) (*models.Profile, error)
	CreateProfile(ctx context.Context, principal models.Principal, displayName string) (*models.Profile, error)
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, uid string, update models.PrincipalUpdate) (*models.Profile, error)
}

// ManagerOptions configures NewManager.
type ManagerOptions struct {
	ID       string
	Provider identity.Provider
	Profiles ProfileResolver
	Logger   *zap.Logger
}

// Manager owns one client session. It is safe for concurrent use. Every
// profile resolution, whether triggered by the provider or by an explicit
// call, runs through a FIFO queue of width one.
type Manager struct {
	id       string
	provider identity.Provider
	profiles ProfileResolver
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  *semaphore.Weighted

	mu           sync.Mutex
	principal    *models.Principal
	profile      *models.Profile
	authResolved bool
	authOps      int
	roleOps      int
	awaitingAuth bool
	// epoch changes whenever the principal is replaced or cleared; resolutions
	// started under an older epoch are discarded.
	epoch        uint64
	observeEpoch uint64
	stopObserve  func()
	changed      chan struct{}
	subscribers  map[uint64]func(Snapshot)
	nextSub      uint64
	closed       bool
	closeOnce    sync.Once
}

// NewManager creates an UNRESOLVED session.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		id:          opts.ID,
		provider:    opts.Provider,
		profiles:    opts.Profiles,
		logger:      opts.Logger.With(zap.String("session_id", opts.ID)),
		ctx:         ctx,
		cancel:      cancel,
		queue:       semaphore.NewWeighted(1),
		changed:     make(chan struct{}),
		subscribers: make(map[uint64]func(Snapshot)),
	}
}

func (m *Manager) ID() string { return m.id }

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:           m.id,
		State:        deriveState(m.authResolved, m.principal, m.profile),
		AuthResolved: m.authResolved,
		RoleResolved: m.profile != nil,
		AuthLoading:  m.authOps > 0 || m.awaitingAuth,
		RoleLoading:  m.roleOps > 0,
	}
	if m.principal != nil {
		p := *m.principal
		s.Principal = &p
	}
	if m.profile != nil {
		p := *m.profile
		s.Profile = &p
	}
	return s
}

// Current returns the cached profile of an AUTHENTICATED session.
func (m *Manager) Current() (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || deriveState(m.authResolved, m.principal, m.profile) != StateAuthenticated {
		return nil, core.ErrNotAuthenticated
	}
	p := *m.profile
	return &p, nil
}

// Principal returns the signed-in principal, if any.
func (m *Manager) Principal() (*models.Principal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil {
		return nil, false
	}
	p := *m.principal
	return &p, true
}

// Subscribe registers fn to receive a snapshot after every change. Callbacks
// run outside the manager's lock.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

type notification struct {
	snapshot    Snapshot
	subscribers []func(Snapshot)
}

// apply runs mutate under the lock. When mutate reports a change, waiters are
// woken and the returned notification must be sent once the caller is ready.
func (m *Manager) apply(mutate func() bool) *notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !mutate() {
		return nil
	}
	close(m.changed)
	m.changed = make(chan struct{})
	n := &notification{snapshot: m.snapshotLocked()}
	for _, fn := range m.subscribers {
		n.subscribers = append(n.subscribers, fn)
	}
	return n
}

func (n *notification) send() {
	if n == nil {
		return
	}
	for _, fn := range n.subscribers {
		fn(n.snapshot)
	}
}

func (m *Manager) update(mutate func() bool) {
	m.apply(mutate).send()
}

// WaitSettled blocks until the session can be trusted or ctx ends.
func (m *Manager) WaitSettled(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		snap := m.snapshotLocked()
		changed, closed := m.changed, m.closed
		m.mu.Unlock()

		if snap.Settled() {
			return snap, nil
		}
		if closed {
			return snap, ErrClosed
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-m.ctx.Done():
			return m.Snapshot(), ErrClosed
		}
	}
}

// Start observes the provider's auth state for credential and waits until the
// first report has been resolved. An empty credential reports no principal.
func (m *Manager) Start(ctx context.Context, credential string) (Snapshot, error) {
	if err := m.observe(credential, true); err != nil {
		return m.Snapshot(), err
	}
	return m.WaitSettled(ctx)
}

func (m *Manager) observe(credential string, awaiting bool) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	previous := m.stopObserve
	m.stopObserve = nil
	m.observeEpoch++
	epoch := m.observeEpoch
	if awaiting {
		m.awaitingAuth = true
	}
	m.mu.Unlock()
	if previous != nil {
		previous()
	}

	stop := m.provider.ObserveAuthState(m.ctx, credential, func(p *models.Principal) {
		m.onAuthState(epoch, p)
	})

	m.mu.Lock()
	current := m.observeEpoch == epoch && !m.closed
	if current {
		m.stopObserve = stop
	}
	m.mu.Unlock()
	if !current {
		stop()
	}
	return nil
}

// detachObserverLocked stops listening to the current credential. Reports
// already in flight are ignored because the observe epoch moves on.
func (m *Manager) detachObserverLocked() func() {
	stop := m.stopObserve
	m.stopObserve = nil
	m.observeEpoch++
	m.awaitingAuth = false
	if stop == nil {
		return func() {}
	}
	return stop
}

func (m *Manager) onAuthState(epoch uint64, p *models.Principal) {
	if p == nil {
		m.update(func() bool {
			if m.closed || epoch != m.observeEpoch {
				return false
			}
			if m.principal != nil {
				m.logger.Info("Provider reported principal loss", zap.String("uid", m.principal.UID))
			}
			m.awaitingAuth = false
			m.authResolved = true
			m.principal, m.profile = nil, nil
			m.epoch++
			return true
		})
		return
	}

	principal := *p
	var gen uint64
	accepted := false
	m.update(func() bool {
		if m.closed || epoch != m.observeEpoch {
			return false
		}
		if m.principal == nil || m.principal.UID != principal.UID {
			m.profile = nil
			m.epoch++
		}
		reported := principal
		m.principal = &reported
		m.awaitingAuth = false
		m.authResolved = true
		m.roleOps++
		gen = m.epoch
		accepted = true
		return true
	})
	if !accepted {
		return
	}

	var profile *models.Profile
	err := m.queue.Acquire(m.ctx, 1)
	if err == nil {
		profile, err = m.profiles.ResolveProfile(m.ctx, principal, "")
		if err != nil && m.ctx.Err() == nil {
			m.logger.Error("Failed to resolve profile for observed principal", zap.String("uid", principal.UID), zap.Error(err))
		}
	}
	n := m.apply(func() bool {
		m.roleOps--
		if err == nil && gen == m.epoch {
			m.profile = profile
		}
		return true
	})
	if err == nil {
		m.queue.Release(1)
	}
	n.send()
}

func (m *Manager) beginExplicit() {
	m.update(func() bool {
		m.authOps++
		m.roleOps++
		return true
	})
}

func (m *Manager) endExplicit() {
	m.update(func() bool {
		m.authOps--
		m.roleOps--
		return true
	})
}

// signIn authenticates, provisions and commits principal and profile together.
// On any failure the session is left as it was.
func (m *Manager) signIn(
	ctx context.Context,
	authenticate func(context.Context) (*models.Principal, error),
	provision func(context.Context, models.Principal) (*models.Profile, error),
) (*models.Principal, error) {
	if m.ctx.Err() != nil {
		return nil, ErrClosed
	}
	m.beginExplicit()
	committed := false
	defer func() {
		if !committed {
			m.endExplicit()
		}
	}()

	principal, err := authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	profile, err := provision(ctx, *principal)
	if err != nil {
		m.queue.Release(1)
		return nil, err
	}

	stop := func() {}
	n := m.apply(func() bool {
		if m.closed {
			return false
		}
		stop = m.detachObserverLocked()
		signedIn := *principal
		m.principal = &signedIn
		m.profile = profile
		m.authResolved = true
		m.epoch++
		m.authOps--
		m.roleOps--
		committed = true
		return true
	})
	m.queue.Release(1)
	stop()
	n.send()
	if !committed {
		return nil, ErrClosed
	}
	m.logger.Info("Signed in", zap.String("uid", principal.UID), zap.String("role", string(profile.Role)))
	return principal, nil
}

// SignInWithFederatedProvider completes a Google sign-in from the ID token the
// client obtained, then keeps watching that token for revocation.
func (m *Manager) SignInWithFederatedProvider(ctx context.Context, credential string) (*models.Principal, error) {
	principal, err := m.signIn(ctx,
		func(ctx context.Context) (*models.Principal, error) {
			return m.provider.SignInFederated(ctx, credential)
		},
		func(ctx context.Context, p models.Principal) (*models.Profile, error) {
			return m.profiles.ResolveProfile(ctx, p, "")
		})
	if err != nil {
		return nil, err
	}
	if err := m.observe(credential, false); err != nil {
		m.logger.Warn("Failed to observe federated credential", zap.Error(err))
	}
	return principal, nil
}

// SignUpWithCredentials creates the account, pushes the display name to the
// provider and writes a brand-new profile.
func (m *Manager) SignUpWithCredentials(ctx context.Context, email, password, displayName string) (*models.Principal, error) {
	return m.signIn(ctx,
		func(ctx context.Context) (*models.Principal, error) {
			p, err := m.provider.SignUpWithPassword(ctx, email, password)
			if err != nil {
				return nil, err
			}
			if displayName == "" {
				return p, nil
			}
			updated, err := m.provider.UpdatePrincipalProfile(ctx, p.UID, models.PrincipalUpdate{DisplayName: &displayName})
			if err != nil {
				return nil, fmt.Errorf("set display name: %w", err)
			}
			return updated, nil
		},
		func(ctx context.Context, p models.Principal) (*models.Profile, error) {
			return m.profiles.CreateProfile(ctx, p, displayName)
		})
}

func (m *Manager) SignInWithCredentials(ctx context.Context, email, password string) (*models.Principal, error) {
	return m.signIn(ctx,
		func(ctx context.Context) (*models.Principal, error) {
			return m.provider.SignInWithPassword(ctx, email, password)
		},
		func(ctx context.Context, p models.Principal) (*models.Profile, error) {
			return m.profiles.ResolveProfile(ctx, p, "")
		})
}

// SignOut revokes the provider session and clears this one. The session is
// cleared even when the provider call fails; that failure is only logged.
func (m *Manager) SignOut(ctx context.Context) {
	var uid string
	stop := func() {}
	m.update(func() bool {
		m.authOps++
		stop = m.detachObserverLocked()
		if m.principal != nil {
			uid = m.principal.UID
		}
		return true
	})
	stop()

	if uid != "" {
		if err := m.provider.SignOut(ctx, uid); err != nil {
			m.logger.Warn("Provider sign-out failed; clearing session anyway", zap.String("uid", uid), zap.Error(err))
		}
	}

	m.update(func() bool {
		m.authOps--
		m.principal, m.profile = nil, nil
		m.authResolved = true
		m.epoch++
		return true
	})
	if uid != "" {
		m.logger.Info("Signed out", zap.String("uid", uid))
	}
}

// RefreshProfile re-reads the profile and replaces the cached copy. Without a
// principal it does nothing.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	principal, gen := m.principal, m.epoch
	m.mu.Unlock()
	if principal == nil {
		return nil
	}

	if err := m.queue.Acquire(ctx, 1); err != nil {
		return err
	}
	profile, err := m.profiles.GetProfile(ctx, principal.UID)
	if err != nil {
		m.queue.Release(1)
		return fmt.Errorf("refresh profile: %w", err)
	}
	n := m.apply(func() bool {
		if gen != m.epoch {
			return false
		}
		m.profile = profile
		return true
	})
	m.queue.Release(1)
	n.send()
	return nil
}

// UpdateProfile changes the display settings of the signed-in account.
func (m *Manager) UpdateProfile(ctx context.Context, update models.PrincipalUpdate) (*models.Profile, error) {
	current, err := m.Current()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	gen := m.epoch
	m.mu.Unlock()

	if err := m.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	profile, err := m.profiles.UpdateProfile(ctx, current.UID, update)
	if err != nil {
		m.queue.Release(1)
		return nil, err
	}
	n := m.apply(func() bool {
		if gen != m.epoch {
			return false
		}
		m.profile = profile
		if update.DisplayName != nil {
			m.principal.DisplayName = profile.DisplayName
		}
		if update.PhotoURL != nil {
			m.principal.PhotoURL = profile.PhotoURL
		}
		return true
	})
	m.queue.Release(1)
	n.send()
	p := *profile
	return &p, nil
}

// Close stops observing the provider and cancels in-flight resolutions.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.mu.Lock()
		m.closed = true
		stop := m.detachObserverLocked()
		close(m.changed)
		m.changed = make(chan struct{})
		m.mu.Unlock()
		stop()
	})
}
