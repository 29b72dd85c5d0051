package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/mocks"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

func TestResolveProfileOwnerUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, uid := range []string{ownerUID, "u1", "u2", "owner-uid-2"} {
		p, err := f.service.ResolveProfile(ctx, models.Principal{UID: uid}, "")
		require.NoError(t, err)
		if uid == ownerUID {
			assert.Equal(t, models.RoleOwner, p.Role, uid)
			assert.Equal(t, models.OwnerCredits, p.Credits)
		} else {
			assert.Equal(t, models.RoleUser, p.Role, uid)
			assert.Equal(t, models.DefaultUserCredits, p.Credits)
		}
	}
}

func TestResolveProfileWithoutOwnerConfigured(t *testing.T) {
	f := newFixture(t)
	svc := core.NewProfileService(core.ProfileServiceOptions{Profiles: f.profiles})

	p, err := svc.ResolveProfile(context.Background(), models.Principal{UID: ownerUID}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, p.Role)
	assert.Equal(t, "New User", p.DisplayName)
}

func TestResolveProfileSelfHealingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, ownerUID, models.RoleUser, 100)
	before := f.store.Writes()

	first, err := f.service.ResolveProfile(ctx, models.Principal{UID: ownerUID}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, first.Role)
	assert.Equal(t, models.OwnerCredits, first.Credits)
	assert.Equal(t, before+1, f.store.Writes())

	second, err := f.service.ResolveProfile(ctx, models.Principal{UID: ownerUID}, "")
	require.NoError(t, err)
	assert.Equal(t, before+1, f.store.Writes(), "second resolution must not write")
	assert.Equal(t, first.Role, second.Role)
	assert.Equal(t, first.Credits, second.Credits)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	stored := f.stored(t, ownerUID)
	assert.Equal(t, models.RoleOwner, stored.Role)
	assert.Equal(t, models.OwnerCredits, stored.Credits)
}

func TestResolveProfileRepairsOwnerCreditsOnly(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ownerUID, models.RoleOwner, 5)

	p, err := f.service.ResolveProfile(context.Background(), models.Principal{UID: ownerUID}, "")
	require.NoError(t, err)
	assert.Equal(t, models.OwnerCredits, p.Credits)
	assert.Equal(t, models.OwnerCredits, f.stored(t, ownerUID).Credits)
}

func TestResolveProfileDemotesNonOwner(t *testing.T) {
	cases := []struct {
		name        string
		role        models.Role
		credits     int
		wantCredits int
	}{
		{"impostor owner with sentinel", models.RoleOwner, models.OwnerCredits, models.DefaultUserCredits},
		{"impostor owner with small balance", models.RoleOwner, 30, 30},
		{"unknown role", models.Role("admin"), 40, 40},
		{"missing role", models.Role(""), 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "u1", tc.role, tc.credits)

			p, err := f.service.ResolveProfile(context.Background(), models.Principal{UID: "u1"}, "")
			require.NoError(t, err)
			assert.Equal(t, models.RoleUser, p.Role)
			assert.Equal(t, tc.wantCredits, p.Credits)

			stored := f.stored(t, "u1")
			assert.Equal(t, models.RoleUser, stored.Role)
			assert.Equal(t, tc.wantCredits, stored.Credits)
		})
	}
}

func TestResolveProfileValidUserIsUntouched(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", models.RoleUser, 7)
	before := f.store.Writes()

	p, err := f.service.ResolveProfile(context.Background(), models.Principal{UID: "u1", DisplayName: "Changed"}, "")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Credits)
	assert.Equal(t, before, f.store.Writes())
}

func TestResolveProfileDisplayNameFallback(t *testing.T) {
	cases := []struct {
		name      string
		principal models.Principal
		hint      string
		want      string
	}{
		{"provider name wins", models.Principal{UID: "a", DisplayName: "Ada", Email: "x@y.z"}, "Hint", "Ada"},
		{"hint", models.Principal{UID: "b", Email: "x@y.z"}, "Hint", "Hint"},
		{"email local part", models.Principal{UID: "c", Email: "grace@example.com"}, "", "grace"},
		{"user default", models.Principal{UID: "d"}, "", "New User"},
		{"owner default", models.Principal{UID: ownerUID}, "", "Owner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			p, err := f.service.ResolveProfile(context.Background(), tc.principal, tc.hint)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.DisplayName)
		})
	}
}

func TestCreateProfileNewAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.CreateProfile(ctx, models.Principal{UID: "new", Email: "new@example.com"}, "Newbie")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, p.Role)
	assert.Equal(t, models.DefaultUserCredits, p.Credits)
	assert.Equal(t, "Newbie", p.DisplayName)
	assert.True(t, p.CreatedAt.Equal(fixedNow))

	writes := f.store.Writes()
	again, err := f.service.ResolveProfile(ctx, models.Principal{UID: "new"}, "")
	require.NoError(t, err)
	assert.True(t, again.CreatedAt.Equal(fixedNow), "createdAt must not change")
	assert.Equal(t, writes, f.store.Writes())
}

func TestCreateProfileCustomAllowance(t *testing.T) {
	f := newFixture(t)
	svc := core.NewProfileService(core.ProfileServiceOptions{Profiles: f.profiles, DefaultCredits: 25})

	p, err := svc.CreateProfile(context.Background(), models.Principal{UID: "u1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 25, p.Credits)
}

func TestResolveProfileStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProfileRepository(ctrl)
	svc := core.NewProfileService(core.ProfileServiceOptions{Profiles: repo, OwnerUID: ownerUID})
	ctx := context.Background()
	unavailable := errors.New("firestore unavailable")

	repo.EXPECT().GetByID(gomock.Any(), "u1").Return(nil, unavailable)
	_, err := svc.ResolveProfile(ctx, models.Principal{UID: "u1"}, "")
	assert.ErrorIs(t, err, core.ErrProfileResolution)
	assert.ErrorIs(t, err, unavailable)

	repo.EXPECT().GetByID(gomock.Any(), ownerUID).Return(&models.Profile{UID: ownerUID, Role: models.RoleUser}, nil)
	repo.EXPECT().Patch(gomock.Any(), ownerUID, gomock.Any()).Return(unavailable)
	_, err = svc.ResolveProfile(ctx, models.Principal{UID: ownerUID}, "")
	assert.ErrorIs(t, err, core.ErrProfileResolution)

	repo.EXPECT().GetByID(gomock.Any(), "u2").Return(nil, db.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(unavailable)
	_, err = svc.ResolveProfile(ctx, models.Principal{UID: "u2"}, "")
	assert.ErrorIs(t, err, core.ErrProfileResolution)

	_, err = svc.ResolveProfile(ctx, models.Principal{}, "")
	assert.ErrorIs(t, err, core.ErrProfileResolution)
}

func TestResolveProfilePublishesProfileCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	events := mocks.NewMockEventPublisher(ctrl)
	svc := core.NewProfileService(core.ProfileServiceOptions{Profiles: f.profiles, Events: events})

	events.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e core.Event) error {
		assert.Equal(t, core.EventProfileCreated, e.Type)
		assert.Equal(t, "u1", e.UserID)
		assert.Equal(t, "ada@example.com", e.Email)
		return errors.New("broker down")
	})

	p, err := svc.ResolveProfile(context.Background(), models.Principal{UID: "u1", Email: "ada@example.com"}, "")
	require.NoError(t, err, "publish failures must not fail provisioning")
	assert.Equal(t, "ada", p.DisplayName)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	provider := identity.NewMemoryProvider()
	provider.AddUser(models.Principal{UID: "u1", Email: "ada@example.com"}, "secret1")
	svc := core.NewProfileService(core.ProfileServiceOptions{Profiles: f.profiles, Provider: provider})
	f.seed(t, "u1", models.RoleUser, 100)

	name, photo := "  Ada L. ", "https://example.com/ada.png"
	p, err := svc.UpdateProfile(ctx, "u1", models.PrincipalUpdate{DisplayName: &name, PhotoURL: &photo})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", p.DisplayName)
	assert.Equal(t, photo, p.PhotoURL)

	principal, _ := provider.Principal("u1")
	assert.Equal(t, "Ada L.", principal.DisplayName)
	assert.Equal(t, photo, principal.PhotoURL)

	blank := "   "
	_, err = svc.UpdateProfile(ctx, "u1", models.PrincipalUpdate{DisplayName: &blank})
	assert.ErrorIs(t, err, core.ErrInvalidProfileUpdate)

	_, err = svc.UpdateProfile(ctx, "missing", models.PrincipalUpdate{PhotoURL: &photo})
	assert.Error(t, err)
}

func TestUpdateProfileProviderFailureLeavesDocument(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	svc := core.NewProfileService(core.ProfileServiceOptions{Profiles: f.profiles, Provider: provider})
	f.seed(t, "u1", models.RoleUser, 100)
	before := f.stored(t, "u1").DisplayName

	name := "Grace"
	provider.EXPECT().
		UpdatePrincipalProfile(gomock.Any(), "u1", gomock.Any()).
		Return(nil, identity.NewAuthError(identity.CodeTooManyRequests, nil))

	_, err := svc.UpdateProfile(context.Background(), "u1", models.PrincipalUpdate{DisplayName: &name})
	var ae *identity.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, identity.CodeTooManyRequests, ae.Code)
	assert.Equal(t, before, f.stored(t, "u1").DisplayName)
}
