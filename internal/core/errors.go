package core

import "errors"

var (
	// ErrProfileResolution is returned when a profile cannot be fetched, created or repaired.
	ErrProfileResolution = errors.New("profile resolution failed")
	// ErrProfileNotFound is returned when no profile exists for a uid.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNotAuthenticated is returned when an operation needs an authenticated session.
	ErrNotAuthenticated = errors.New("session is not authenticated")
	// ErrInvalidProfileUpdate is returned for settings changes that would blank a field.
	ErrInvalidProfileUpdate = errors.New("invalid profile update")

	ErrInvalidCost         = errors.New("cost cannot be negative")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrLedgerWrite is returned when the balance could not be written. The
	// caller may retry.
	ErrLedgerWrite = errors.New("credit ledger write failed")

	ErrEmptyPrompt          = errors.New("prompt cannot be empty")
	ErrGenerationInProgress = errors.New("a generation is already running for this account")
	ErrGenerationFailed     = errors.New("image generation failed")

	ErrCreationNotFound = errors.New("creation not found")
	ErrAccessDenied     = errors.New("access denied")
)
