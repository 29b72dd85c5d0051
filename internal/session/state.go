// Package session keeps the per-client authentication state: who is signed in,
// their resolved profile and whether either is still being worked out.
package session

import "github.com/luxemuse/luxe-muse-backend/internal/models"

// State is the resolution state of a session.
type State string

const (
	// StateUnresolved means the identity provider has not reported yet.
	StateUnresolved State = "UNRESOLVED"
	StateAnonymous  State = "ANONYMOUS"
	// StateRolePending means a principal is known but its profile is not.
	StateRolePending   State = "AUTHENTICATED_ROLE_PENDING"
	StateAuthenticated State = "AUTHENTICATED"
)

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID           string            `json:"id"`
	State        State             `json:"state"`
	Principal    *models.Principal `json:"principal,omitempty"`
	Profile      *models.Profile   `json:"profile,omitempty"`
	AuthResolved bool              `json:"authResolved"`
	RoleResolved bool              `json:"roleResolved"`
	AuthLoading  bool              `json:"authLoading"`
	RoleLoading  bool              `json:"roleLoading"`
}

// Settled reports whether the snapshot can be trusted: the provider has
// reported and nothing is in flight.
func (s Snapshot) Settled() bool {
	return s.AuthResolved && !s.AuthLoading && !s.RoleLoading
}

// IsOwner reports whether the session is authenticated as the owner.
func (s Snapshot) IsOwner() bool {
	return s.State == StateAuthenticated && s.Profile.IsOwner()
}

func deriveState(authResolved bool, principal *models.Principal, profile *models.Profile) State {
	switch {
	case !authResolved:
		return StateUnresolved
	case principal == nil:
		return StateAnonymous
	case profile == nil:
		return StateRolePending
	}
	return StateAuthenticated
}
