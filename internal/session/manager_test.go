package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
)

const ownerUID = "owner-uid"

type harness struct {
	provider *identity.MemoryProvider
	profiles db.ProfileRepository
	service  core.ProfileService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	provider := identity.NewMemoryProvider()
	profiles := db.NewProfileRepository(database.NewMemoryStore(), nil)
	provider.AddUser(models.Principal{UID: "u1", Email: "ada@example.com", DisplayName: "Ada"}, "secret1")
	provider.AddUser(models.Principal{UID: ownerUID, Email: "owner@example.com"}, "ownerpw")
	return &harness{
		provider: provider,
		profiles: profiles,
		service: core.NewProfileService(core.ProfileServiceOptions{
			Profiles: profiles,
			Provider: provider,
			OwnerUID: ownerUID,
		}),
	}
}

func (h *harness) manager(t *testing.T, resolver session.ProfileResolver) *session.Manager {
	t.Helper()
	if resolver == nil {
		resolver = h.service
	}
	m := session.NewManager(session.ManagerOptions{ID: "s1", Provider: h.provider, Profiles: resolver})
	t.Cleanup(m.Close)
	return m
}

func TestNewManagerIsUnresolved(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)

	snap := m.Snapshot()
	assert.Equal(t, session.StateUnresolved, snap.State)
	assert.False(t, snap.Settled())
	_, err := m.Current()
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestStartWithoutCredentialIsAnonymous(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)

	snap, err := m.Start(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.True(t, snap.AuthResolved)
	assert.Nil(t, snap.Principal)
}

func TestStartResolvesProfile(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)

	snap, err := m.Start(context.Background(), h.provider.IssueToken("u1"))
	require.NoError(t, err)
	assert.Equal(t, session.StateAuthenticated, snap.State)
	assert.True(t, snap.RoleResolved)
	assert.Equal(t, models.RoleUser, snap.Profile.Role)
	assert.Equal(t, models.DefaultUserCredits, snap.Profile.Credits)
	assert.False(t, snap.IsOwner())

	profile, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UID)
	assert.Equal(t, "Ada", profile.DisplayName)
}

func TestStartAsOwner(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)

	snap, err := m.Start(context.Background(), h.provider.IssueToken(ownerUID))
	require.NoError(t, err)
	assert.True(t, snap.IsOwner())
	assert.Equal(t, models.OwnerCredits, snap.Profile.Credits)
	assert.True(t, snap.Profile.Unlimited())
}

// blockingResolver holds every ResolveProfile call until release is closed.
type blockingResolver struct {
	session.ProfileResolver
	entered chan struct{}
	release chan struct{}
}

func (b *blockingResolver) ResolveProfile(ctx context.Context, p models.Principal, hint string) (*models.Profile, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.ProfileResolver.ResolveProfile(ctx, p, hint)
}

func TestRolePendingWhileResolving(t *testing.T) {
	h := newHarness(t)
	resolver := &blockingResolver{ProfileResolver: h.service, entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := h.manager(t, resolver)

	done := make(chan session.Snapshot, 1)
	go func() {
		snap, _ := m.Start(context.Background(), h.provider.IssueToken("u1"))
		done <- snap
	}()

	<-resolver.entered
	snap := m.Snapshot()
	assert.Equal(t, session.StateRolePending, snap.State)
	assert.True(t, snap.RoleLoading)
	assert.False(t, snap.Settled())
	_, err := m.Current()
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)

	close(resolver.release)
	snap = <-done
	assert.Equal(t, session.StateAuthenticated, snap.State)
}

func TestRefreshWaitsForPendingResolution(t *testing.T) {
	h := newHarness(t)
	resolver := &blockingResolver{ProfileResolver: h.service, entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := h.manager(t, resolver)
	ctx := context.Background()

	go m.Start(ctx, h.provider.IssueToken("u1")) //nolint:errcheck
	<-resolver.entered

	refreshed := make(chan error, 1)
	go func() { refreshed <- m.RefreshProfile(ctx) }()

	select {
	case <-refreshed:
		t.Fatal("refresh must queue behind the pending resolution")
	case <-time.After(50 * time.Millisecond):
	}

	close(resolver.release)
	require.NoError(t, <-refreshed)
	snap, err := m.WaitSettled(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StateAuthenticated, snap.State)
}

func TestSignInWithCredentials(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	ctx := context.Background()
	_, err := m.Start(ctx, "")
	require.NoError(t, err)

	_, err = m.SignInWithCredentials(ctx, "ada@example.com", "wrong!")
	assert.Equal(t, identity.CodeWrongPassword, identity.CodeOf(err))
	snap := m.Snapshot()
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.True(t, snap.Settled())

	principal, err := m.SignInWithCredentials(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", principal.UID)

	snap = m.Snapshot()
	assert.Equal(t, session.StateAuthenticated, snap.State)
	assert.True(t, snap.Settled())
	assert.Equal(t, "u1", snap.Profile.UID)
}

func TestSignInProvisioningFailureLeavesSessionUnchanged(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, failingResolver{h.service})
	ctx := context.Background()
	_, err := m.Start(ctx, "")
	require.NoError(t, err)

	_, err = m.SignInWithCredentials(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, core.ErrProfileResolution)

	snap := m.Snapshot()
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.False(t, snap.AuthLoading)
	assert.False(t, snap.RoleLoading)
}

type failingResolver struct{ session.ProfileResolver }

func (failingResolver) ResolveProfile(context.Context, models.Principal, string) (*models.Profile, error) {
	return nil, core.ErrProfileResolution
}

func TestSignUpWithCredentials(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	ctx := context.Background()

	_, err := m.SignUpWithCredentials(ctx, "grace@example.com", "123", "Grace")
	assert.Equal(t, identity.CodeWeakPassword, identity.CodeOf(err))
	_, err = m.SignUpWithCredentials(ctx, "ada@example.com", "longenough", "Ada again")
	assert.Equal(t, identity.CodeEmailAlreadyInUse, identity.CodeOf(err))
	assert.Equal(t, session.StateUnresolved, m.Snapshot().State)

	principal, err := m.SignUpWithCredentials(ctx, "grace@example.com", "longenough", "Grace")
	require.NoError(t, err)
	assert.Equal(t, "Grace", principal.DisplayName)

	stored, ok := h.provider.Principal(principal.UID)
	require.True(t, ok)
	assert.Equal(t, "Grace", stored.DisplayName)

	profile, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "Grace", profile.DisplayName)
	assert.Equal(t, models.RoleUser, profile.Role)
	assert.Equal(t, models.DefaultUserCredits, profile.Credits)
}

func TestSignInWithFederatedProvider(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	ctx := context.Background()

	_, err := m.SignInWithFederatedProvider(ctx, h.provider.IssueToken("u1"))
	assert.Equal(t, identity.CodeFederatedRequired, identity.CodeOf(err))

	token := h.provider.GoogleToken(models.Principal{UID: "g1", Email: "lin@example.com", DisplayName: "Lin"})
	principal, err := m.SignInWithFederatedProvider(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "g1", principal.UID)

	snap := m.Snapshot()
	assert.Equal(t, session.StateAuthenticated, snap.State)
	assert.Equal(t, "Lin", snap.Profile.DisplayName)

	h.provider.Revoke("g1")
	assert.Eventually(t, func() bool {
		return m.Snapshot().State == session.StateAnonymous
	}, time.Second, 5*time.Millisecond)
}

func TestRevocationClearsSession(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	_, err := m.Start(context.Background(), h.provider.IssueToken("u1"))
	require.NoError(t, err)

	h.provider.Revoke("u1")
	assert.Eventually(t, func() bool {
		snap := m.Snapshot()
		return snap.State == session.StateAnonymous && snap.Profile == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSignOutClearsEvenWhenProviderFails(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	ctx := context.Background()
	_, err := m.SignInWithCredentials(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	h.provider.FailSignOut(errors.New("network down"))
	m.SignOut(ctx)

	snap := m.Snapshot()
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.True(t, snap.Settled())
	assert.Equal(t, 1, h.provider.SignOutCalls())

	m.SignOut(ctx)
	assert.Equal(t, 1, h.provider.SignOutCalls(), "anonymous sign-out does not reach the provider")
}

func TestRefreshProfile(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	ctx := context.Background()

	require.NoError(t, m.RefreshProfile(ctx), "refresh without a principal is a no-op")

	_, err := m.Start(ctx, h.provider.IssueToken("u1"))
	require.NoError(t, err)

	_, err = h.profiles.AdjustCredits(ctx, "u1", -30)
	require.NoError(t, err)
	require.NoError(t, m.RefreshProfile(ctx))

	profile, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, 70, profile.Credits)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	ctx := context.Background()
	name := "Ada L."

	_, err := m.UpdateProfile(ctx, models.PrincipalUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)

	_, err = m.SignInWithCredentials(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	profile, err := m.UpdateProfile(ctx, models.PrincipalUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.DisplayName)

	principal, ok := m.Principal()
	require.True(t, ok)
	assert.Equal(t, name, principal.DisplayName)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)

	var mu sync.Mutex
	var states []session.State
	unsubscribe := m.Subscribe(func(s session.Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	_, err := m.SignInWithCredentials(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	unsubscribe()
	m.SignOut(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, session.StateAuthenticated, states[len(states)-1])
}

func TestClosedManager(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t, nil)
	_, err := m.Start(context.Background(), h.provider.IssueToken("u1"))
	require.NoError(t, err)

	m.Close()
	_, err = m.Current()
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = m.SignInWithCredentials(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, session.ErrClosed)
	_, err = m.Start(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrClosed)
}
