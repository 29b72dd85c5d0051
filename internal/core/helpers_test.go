package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
	"github.com/luxemuse/luxe-muse-backend/pkg/storage"
)

const ownerUID = "owner-uid"

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *database.MemoryStore
	profiles  db.ProfileRepository
	creations db.CreationRepository
	blobs     *storage.MemoryBlobStore
	service   core.ProfileService
	ledger    core.CreditLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	profiles := db.NewProfileRepository(store, zap.NewNop())
	return &fixture{
		store:     store,
		profiles:  profiles,
		creations: db.NewCreationRepository(store),
		blobs:     storage.NewMemoryBlobStore("http://blobs.test"),
		service: core.NewProfileService(core.ProfileServiceOptions{
			Profiles: profiles,
			OwnerUID: ownerUID,
			Now:      func() time.Time { return fixedNow },
		}),
		ledger: core.NewCreditLedger(core.CreditLedgerOptions{Profiles: profiles, OwnerUID: ownerUID}),
	}
}

func (f *fixture) seed(t *testing.T, uid string, role models.Role, credits int) {
	t.Helper()
	require.NoError(t, f.profiles.Create(context.Background(), &models.Profile{
		UID:       uid,
		Role:      role,
		Credits:   credits,
		CreatedAt: fixedNow.Add(-time.Hour),
	}))
}

func (f *fixture) stored(t *testing.T, uid string) *models.Profile {
	t.Helper()
	p, err := f.profiles.GetByID(context.Background(), uid)
	require.NoError(t, err)
	return p
}

// storeSession is a minimal AccountSession that caches one profile.
type storeSession struct {
	mu        sync.Mutex
	profiles  db.ProfileRepository
	profile   *models.Profile
	refreshes int
}

func (f *fixture) session(t *testing.T, uid string) *storeSession {
	t.Helper()
	return &storeSession{profiles: f.profiles, profile: f.stored(t, uid)}
}

func (s *storeSession) Current() (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, core.ErrNotAuthenticated
	}
	p := *s.profile
	return &p, nil
}

func (s *storeSession) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	uid := s.profile.UID
	s.mu.Unlock()
	p, err := s.profiles.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = p
	s.refreshes++
	s.mu.Unlock()
	return nil
}

func (s *storeSession) credits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Credits
}
