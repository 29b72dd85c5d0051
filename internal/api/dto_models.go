package api

import (
	"encoding/json"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

// ErrorResponse is the body of every failed request: a short title, a human
// readable description and, when known, a machine readable code.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// SessionResponse is returned by every endpoint that opens or restores a session.
type SessionResponse struct {
	Token   string           `json:"token,omitempty"`
	Session session.Snapshot `json:"session"`
}

// RestoreSessionRequest carries the ID token of an existing provider session.
// The Authorization bearer header is accepted instead.
type RestoreSessionRequest struct {
	IDToken string `json:"idToken"`
}

type SignOutResponse struct {
	Redirect string `json:"redirect"`
}

// CreditsResponse reports the balance after a charge.
type CreditsResponse struct {
	Credits   int  `json:"credits"`
	Unlimited bool `json:"unlimited"`
}

// GenerationResponse is the body of POST /generations.
type GenerationResponse struct {
	Creation *models.Creation `json:"creation"`
	Credits  CreditsResponse  `json:"credits"`
}

type OwnerOverviewResponse struct {
	Owner          *models.Profile `json:"owner"`
	CreationCount  int             `json:"creationCount"`
	ActiveSessions int             `json:"activeSessions"`
}

type GrantCreditsResponse struct {
	UID     string `json:"uid"`
	Credits int    `json:"credits"`
}

// callableRequest and callableResponse are the callable function envelopes.
type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type callableResponse struct {
	Result any `json:"result"`
}

type callableErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type callableErrorResponse struct {
	Error callableErrorBody `json:"error"`
}

func creditsOf(p *models.Profile) CreditsResponse {
	if p == nil {
		return CreditsResponse{}
	}
	return CreditsResponse{Credits: p.Credits, Unlimited: p.Unlimited()}
}
