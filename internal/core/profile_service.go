package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// ProfileServiceOptions configures NewProfileService.
type ProfileServiceOptions struct {
	Profiles db.ProfileRepository
	Provider identity.Provider
	Events   EventPublisher
	// OwnerUID is the only uid that may hold the owner role. Empty means nobody.
	OwnerUID string
	// DefaultCredits is the starting allowance of a new user. Zero means
	// models.DefaultUserCredits.
	DefaultCredits int
	Now            func() time.Time
	Logger         *zap.Logger
}

type profileService struct {
	profiles       db.ProfileRepository
	provider       identity.Provider
	events         EventPublisher
	ownerUID       string
	defaultCredits int
	now            func() time.Time
	logger         *zap.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(opts ProfileServiceOptions) ProfileService {
	if opts.DefaultCredits <= 0 {
		opts.DefaultCredits = models.DefaultUserCredits
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	return &profileService{
		profiles:       opts.Profiles,
		provider:       opts.Provider,
		events:         opts.Events,
		ownerUID:       opts.OwnerUID,
		defaultCredits: opts.DefaultCredits,
		now:            opts.Now,
		logger:         opts.Logger,
	}
}

func (s *profileService) OwnerUID() string { return s.ownerUID }

func (s *profileService) isOwner(uid string) bool {
	return s.ownerUID != "" && uid == s.ownerUID
}

func (s *profileService) ResolveProfile(ctx context.Context, principal models.Principal, displayNameHint string) (*models.Profile, error) {
	if principal.UID == "" {
		return nil, fmt.Errorf("%w: principal has no uid", ErrProfileResolution)
	}

	profile, err := s.profiles.GetByID(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return s.create(ctx, principal, displayNameHint)
		}
		return nil, fmt.Errorf("%w: %w", ErrProfileResolution, err)
	}

	patch := s.correction(profile)
	if patch.Empty() {
		return profile, nil
	}
	if err := s.profiles.Patch(ctx, profile.UID, patch); err != nil {
		s.logger.Error("Failed to repair profile role",
			zap.String("uid", profile.UID), zap.String("stored_role", string(profile.Role)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrProfileResolution, err)
	}

	repaired := *profile
	if patch.Role != nil {
		repaired.Role = *patch.Role
	}
	if patch.Credits != nil {
		repaired.Credits = *patch.Credits
	}
	s.logger.Info("Repaired profile role",
		zap.String("uid", repaired.UID),
		zap.String("from_role", string(profile.Role)),
		zap.String("to_role", string(repaired.Role)),
		zap.Int("credits", repaired.Credits))
	return &repaired, nil
}

// correction returns the patch that brings a stored profile in line with the
// owner setting. An empty patch means the record is already valid.
func (s *profileService) correction(p *models.Profile) models.ProfilePatch {
	var patch models.ProfilePatch
	if s.isOwner(p.UID) {
		if p.Role != models.RoleOwner || p.Credits < models.OwnerCredits {
			role, credits := models.RoleOwner, models.OwnerCredits
			patch.Role, patch.Credits = &role, &credits
		}
		return patch
	}
	if p.Role != models.RoleUser {
		role := models.RoleUser
		patch.Role = &role
		if p.Credits >= models.OwnerCredits {
			credits := s.defaultCredits
			patch.Credits = &credits
		}
	}
	return patch
}

func (s *profileService) CreateProfile(ctx context.Context, principal models.Principal, displayName string) (*models.Profile, error) {
	if principal.UID == "" {
		return nil, fmt.Errorf("%w: principal has no uid", ErrProfileResolution)
	}
	if displayName != "" {
		principal.DisplayName = displayName
	}
	return s.create(ctx, principal, "")
}

func (s *profileService) create(ctx context.Context, principal models.Principal, hint string) (*models.Profile, error) {
	owner := s.isOwner(principal.UID)
	profile := &models.Profile{
		UID:         principal.UID,
		Email:       principal.Email,
		DisplayName: displayNameFor(principal, hint, owner),
		Role:        models.RoleUser,
		PhotoURL:    principal.PhotoURL,
		CreatedAt:   s.now().UTC(),
		Credits:     s.defaultCredits,
	}
	if owner {
		profile.Role = models.RoleOwner
		profile.Credits = models.OwnerCredits
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileResolution, err)
	}
	s.logger.Info("Provisioned profile",
		zap.String("uid", profile.UID), zap.String("role", string(profile.Role)), zap.Int("credits", profile.Credits))

	publishBestEffort(ctx, s.events, s.logger, Event{
		Type:        EventProfileCreated,
		UserID:      profile.UID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Role:        profile.Role,
		OccurredAt:  profile.CreatedAt,
	})
	return profile, nil
}

// displayNameFor falls back from the provider's name to the hint, then the
// email local part, then a role default.
func displayNameFor(p models.Principal, hint string, owner bool) string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case hint != "":
		return hint
	case p.Email != "":
		if local, _, _ := strings.Cut(p.Email, "@"); local != "" {
			return local
		}
	}
	if owner {
		return "Owner"
	}
	return "New User"
}

func (s *profileService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, uid)
		}
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return profile, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, uid string, update models.PrincipalUpdate) (*models.Profile, error) {
	if update.DisplayName != nil {
		trimmed := strings.TrimSpace(*update.DisplayName)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: display name cannot be blank", ErrInvalidProfileUpdate)
		}
		update.DisplayName = &trimmed
	}
	if s.provider != nil {
		if _, err := s.provider.UpdatePrincipalProfile(ctx, uid, update); err != nil {
			return nil, fmt.Errorf("update principal %s: %w", uid, err)
		}
	}
	patch := models.ProfilePatch{DisplayName: update.DisplayName, PhotoURL: update.PhotoURL}
	if err := s.profiles.Patch(ctx, uid, patch); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, uid)
		}
		return nil, fmt.Errorf("update profile %s: %w", uid, err)
	}
	return s.GetProfile(ctx, uid)
}
