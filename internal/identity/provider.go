// Package identity adapts the external identity provider (Firebase Authentication)
// behind a small capability interface.
package identity

import (
	"context"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// AuthStateFunc receives the current principal, or nil when nobody is signed in.
type AuthStateFunc func(p *models.Principal)

// Provider is the identity provider capability set.
type Provider interface {
	// ObserveAuthState reports the principal behind credential once, then again
	// whenever it changes (for example when the session is revoked elsewhere),
	// until stop is called or ctx ends. An empty credential reports nil.
	ObserveAuthState(ctx context.Context, credential string, fn AuthStateFunc) (stop func())
	// VerifyCredential checks a bearer credential without any side effects.
	VerifyCredential(ctx context.Context, credential string) (*models.Principal, error)
	// SignInFederated completes a federated (Google) sign-in from the ID token
	// the client obtained interactively.
	SignInFederated(ctx context.Context, credential string) (*models.Principal, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Principal, error)
	SignUpWithPassword(ctx context.Context, email, password string) (*models.Principal, error)
	UpdatePrincipalProfile(ctx context.Context, uid string, update models.PrincipalUpdate) (*models.Principal, error)
	// SignOut invalidates the principal's provider-side session.
	SignOut(ctx context.Context, uid string) error
}
