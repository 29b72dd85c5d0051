package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
)

const usersCollection = "users"

type profileRepository struct {
	store  database.DocumentStore
	logger *zap.Logger
}

// NewProfileRepository creates a ProfileRepository on top of a document store.
func NewProfileRepository(store database.DocumentStore, logger *zap.Logger) ProfileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &profileRepository{store: store, logger: logger}
}

// GetByID fetches and validates users/{uid}.
func (r *profileRepository) GetByID(ctx context.Context, uid string) (*models.Profile, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty")
	}
	raw, err := r.store.Get(ctx, usersCollection, uid)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("profile %s: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	profile, err := decodeProfile(uid, raw)
	if err != nil {
		r.logger.Error("Stored profile is malformed", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return profile, nil
}

// Create writes a complete profile, overwriting any previous document.
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile == nil || profile.UID == "" {
		return errors.New("profile uid cannot be empty")
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	if err := r.store.Set(ctx, usersCollection, profile.UID, encodeProfile(profile)); err != nil {
		return fmt.Errorf("create profile %s: %w", profile.UID, err)
	}
	return nil
}

// Patch writes the non-nil fields of patch.
func (r *profileRepository) Patch(ctx context.Context, uid string, patch models.ProfilePatch) error {
	if patch.Empty() {
		return nil
	}
	fields := make(map[string]any, 4)
	if patch.Role != nil {
		fields["role"] = string(*patch.Role)
	}
	if patch.Credits != nil {
		fields["credits"] = int64(*patch.Credits)
	}
	if patch.DisplayName != nil {
		fields["displayName"] = *patch.DisplayName
	}
	if patch.PhotoURL != nil {
		fields["photoURL"] = *patch.PhotoURL
	}
	if err := r.store.Update(ctx, usersCollection, uid, fields); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("patch profile %s: %w", uid, ErrNotFound)
		}
		return fmt.Errorf("patch profile %s: %w", uid, err)
	}
	return nil
}

// AdjustCredits applies delta with a floor of zero.
func (r *profileRepository) AdjustCredits(ctx context.Context, uid string, delta int) (int, error) {
	next, err := r.store.Increment(ctx, usersCollection, uid, "credits", int64(delta), 0)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrBelowFloor):
			return 0, err
		case errors.Is(err, database.ErrNotFound):
			return 0, fmt.Errorf("adjust credits %s: %w", uid, ErrNotFound)
		}
		return 0, fmt.Errorf("adjust credits %s: %w", uid, err)
	}
	return int(next), nil
}

func encodeProfile(p *models.Profile) map[string]any {
	return map[string]any{
		"uid":         p.UID,
		"email":       p.Email,
		"displayName": p.DisplayName,
		"role":        string(p.Role),
		"photoURL":    p.PhotoURL,
		"createdAt":   p.CreatedAt,
		"credits":     int64(p.Credits),
	}
}

// decodeProfile turns a raw document into a Profile. Type mismatches are
// rejected; a missing uid, an unknown role and a negative balance are repaired
// in the returned value so the provisioning layer can decide what to persist.
func decodeProfile(uid string, raw map[string]any) (*models.Profile, error) {
	var p models.Profile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "firestore",
		Result:     &p,
		DecodeHook: timeHook,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedProfile, uid, err)
	}

	if p.UID == "" {
		p.UID = uid
	}
	if p.UID != uid {
		return nil, fmt.Errorf("%w: %s: uid field is %q", ErrMalformedProfile, uid, p.UID)
	}
	if !p.Role.Valid() {
		p.Role = ""
	}
	if p.Credits < 0 {
		p.Credits = 0
	}
	return &p, nil
}

// timeHook lets time.Time values pass through untouched and accepts RFC 3339
// strings written by older clients.
func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("createdAt: %w", err)
		}
		return t, nil
	}
	return data, nil
}
