package models

import "time"

// Role is the access level stored on a profile.
type Role string

const (
	RoleOwner Role = "owner"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleUser
}

const (
	// DefaultUserCredits is the starting allowance of a freshly provisioned user.
	DefaultUserCredits = 100
	// OwnerCredits is the sentinel balance that marks an unlimited account.
	OwnerCredits = 999999
	// CreditsPerGeneration is the default price of one image generation.
	CreditsPerGeneration = 10
)

// Principal is an authenticated identity as reported by the identity provider.
// Empty optional fields mean the provider did not supply them.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Profile is the persisted per-account record, stored in users/{uid}.
type Profile struct {
	UID         string    `json:"uid" firestore:"uid"`
	Email       string    `json:"email,omitempty" firestore:"email"`
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName"`
	Role        Role      `json:"role" firestore:"role"`
	PhotoURL    string    `json:"photoURL,omitempty" firestore:"photoURL"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	Credits     int       `json:"credits" firestore:"credits"`
}

// IsOwner reports whether the profile carries the owner role.
func (p *Profile) IsOwner() bool {
	return p != nil && p.Role == RoleOwner
}

// Unlimited reports whether the balance should be displayed as unlimited.
func (p *Profile) Unlimited() bool {
	return p.IsOwner() && p.Credits >= OwnerCredits
}

// ProfilePatch lists the mutable profile fields. Nil fields are left untouched.
// uid and createdAt are intentionally absent.
type ProfilePatch struct {
	Role        *Role
	Credits     *int
	DisplayName *string
	PhotoURL    *string
}

// Empty reports whether the patch would not change anything.
func (p ProfilePatch) Empty() bool {
	return p.Role == nil && p.Credits == nil && p.DisplayName == nil && p.PhotoURL == nil
}

// PrincipalUpdate carries the display fields that may be pushed back to the provider.
type PrincipalUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}
