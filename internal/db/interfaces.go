package db

import (
	"context"
	"errors"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
)

var (
	// ErrNotFound is returned when a profile or creation does not exist.
	ErrNotFound = database.ErrNotFound
	// ErrBelowFloor is returned when a credit adjustment would make the balance negative.
	ErrBelowFloor = database.ErrBelowFloor
	// ErrMalformedProfile is returned when a stored profile cannot be repaired.
	ErrMalformedProfile = errors.New("malformed profile record")
)

// ProfileRepository stores profiles in users/{uid}.
type ProfileRepository interface {
	GetByID(ctx context.Context, uid string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Patch(ctx context.Context, uid string, patch models.ProfilePatch) error
	// AdjustCredits adds delta to the balance and returns the new value. It fails
	// with ErrBelowFloor, without writing, if the balance would go negative.
	AdjustCredits(ctx context.Context, uid string, delta int) (int, error)
}

// CreationRepository stores creations in creations/{id}.
type CreationRepository interface {
	NewID() string
	Create(ctx context.Context, creation *models.Creation) error
	GetByID(ctx context.Context, id string) (*models.Creation, error)
	ListByUser(ctx context.Context, uid string, limit int) ([]*models.Creation, error)
	CountByUser(ctx context.Context, uid string) (int, error)
	Delete(ctx context.Context, id string) error
}
