package core

import (
	"context"
	"io"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// AccountSession is the view of a client session the ledger and the gate need.
type AccountSession interface {
	// Current returns the cached profile, or ErrNotAuthenticated unless the
	// session is fully authenticated.
	Current() (*models.Profile, error)
	// RefreshProfile re-reads the profile from the store into the session.
	RefreshProfile(ctx context.Context) error
}

// ProfileService provisions profiles and resolves roles.
type ProfileService interface {
	// ResolveProfile returns the principal's profile, creating it when absent and
	// repairing its role and credits when they contradict the owner setting.
	ResolveProfile(ctx context.Context, principal models.Principal, displayNameHint string) (*models.Profile, error)
	// CreateProfile writes a brand-new profile for an account that was just signed up.
	CreateProfile(ctx context.Context, principal models.Principal, displayName string) (*models.Profile, error)
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	// UpdateProfile pushes display settings to the identity provider and the profile.
	UpdateProfile(ctx context.Context, uid string, update models.PrincipalUpdate) (*models.Profile, error)
	OwnerUID() string
}

// CreditLedger meters paid actions.
type CreditLedger interface {
	// Consume charges cost to the session's account. Owners are never charged.
	Consume(ctx context.Context, session AccountSession, cost int) error
	// Refund adds amount back to uid's balance and returns the new balance.
	Refund(ctx context.Context, uid string, amount int) (int, error)
}

// ImageGenerator renders an image and stores it, as the generateAiImage callable does.
type ImageGenerator interface {
	Generate(ctx context.Context, uid string, req models.GenerateImageRequest) (*models.GeneratedImage, error)
}

// GenerationGate orchestrates a metered generation.
type GenerationGate interface {
	Generate(ctx context.Context, session AccountSession, req models.GenerationRequest) (*models.Creation, error)
}

// CreationService manages a user's stored creations.
type CreationService interface {
	List(ctx context.Context, uid string) ([]*models.Creation, error)
	Get(ctx context.Context, uid, id string) (*models.Creation, error)
	Delete(ctx context.Context, uid, id string) error
	// Download opens the stored image and returns it with its attachment file name.
	Download(ctx context.Context, uid, id string) (io.ReadCloser, string, error)
	Count(ctx context.Context, uid string) (int, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
