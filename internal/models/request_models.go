package models

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FederatedSignInRequest carries an ID token obtained from a federated (Google) sign-in.
type FederatedSignInRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// UpdateProfileRequest is the body of PATCH /profile.
// Pointers distinguish "clear the value" from "leave it alone".
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

// ConsumeCreditsRequest is the body of POST /credits/consume.
type ConsumeCreditsRequest struct {
	Cost int `json:"cost" binding:"min=0"`
}

// GrantCreditsRequest is the body of the owner-only credit grant endpoint.
type GrantCreditsRequest struct {
	Amount int `json:"amount" binding:"required,min=1"`
}

// GenerationRequest is the body of POST /generations. Zero values take the
// catalog defaults.
type GenerationRequest struct {
	Prompt         string `json:"prompt"`
	EnhancedPrompt string `json:"enhancedPrompt,omitempty"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	StylePreset    string `json:"stylePreset,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	Creativity     *int   `json:"creativity,omitempty"`
	DetailLevel    *int   `json:"detailLevel,omitempty"`
	ColorPalette   string `json:"colorPalette,omitempty"`
}

// GenerateImageRequest is the payload of the generateAiImage callable.
type GenerateImageRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
}
