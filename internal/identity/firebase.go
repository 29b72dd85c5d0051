package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

const googleSignInProvider = "google.com"

// FirebaseProviderOptions configures FirebaseProvider.
type FirebaseProviderOptions struct {
	Auth *auth.Client
	// APIKey is the web API key used for password sign-in.
	APIKey string
	// PollInterval is how often observed credentials are re-checked for
	// revocation. Zero means one minute.
	PollInterval time.Duration
	Logger       *zap.Logger
}

// FirebaseProvider implements Provider with the Firebase Admin SDK for token
// and account management and the Identity Toolkit API for password sign-in.
type FirebaseProvider struct {
	auth         *auth.Client
	toolkit      *identitytoolkit.Service
	pollInterval time.Duration
	logger       *zap.Logger
	// check re-verifies an observed credential; checkCredential outside tests.
	check func(ctx context.Context, credential string) (*models.Principal, error)
}

// NewFirebaseProvider creates the provider.
func NewFirebaseProvider(ctx context.Context, opts FirebaseProviderOptions) (*FirebaseProvider, error) {
	if opts.Auth == nil {
		return nil, errors.New("firebase auth client is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("firebase web API key is required for password sign-in")
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit service: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &FirebaseProvider{
		auth:         opts.Auth,
		toolkit:      toolkit,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	p.check = p.checkCredential
	return p, nil
}

// ObserveAuthState verifies credential (with a revocation check) right away and
// then on every poll tick. It reports nil and stops once the credential is
// rejected or the account disabled. Other failures during polling are logged
// and the last known principal is kept.
func (p *FirebaseProvider) ObserveAuthState(ctx context.Context, credential string, fn AuthStateFunc) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		if credential == "" {
			fn(nil)
			return
		}
		current, err := p.check(ctx, credential)
		if err != nil {
			// Nothing was signed in yet, so an unverifiable credential resolves to no principal.
			if ctx.Err() == nil {
				p.logger.Info("Observed credential rejected", zap.Error(err))
				fn(nil)
			}
			return
		}
		fn(current)

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			next, err := p.check(ctx, credential)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if !principalLost(err) {
					p.logger.Warn("Credential check failed; keeping principal", zap.String("uid", current.UID), zap.Error(err))
					continue
				}
				p.logger.Info("Observed principal lost", zap.String("uid", current.UID), zap.Error(err))
				fn(nil)
				return
			}
			if *next != *current {
				current = next
				fn(current)
			}
		}
	}()
	return cancel
}

// principalLost reports whether err means the observed account is no longer
// signed in, as opposed to the provider being unreachable.
func principalLost(err error) bool {
	return IsCredentialError(err) || CodeOf(err) == CodeUserDisabled
}

func (p *FirebaseProvider) checkCredential(ctx context.Context, credential string) (*models.Principal, error) {
	token, err := p.auth.VerifyIDTokenAndCheckRevoked(ctx, credential)
	if err != nil {
		return nil, p.translate(err)
	}
	return p.lookup(ctx, token.UID)
}

// VerifyCredential verifies an ID token and builds the principal from its claims.
func (p *FirebaseProvider) VerifyCredential(ctx context.Context, credential string) (*models.Principal, error) {
	if credential == "" {
		return nil, NewAuthError(CodeInvalidCredential, nil)
	}
	token, err := p.auth.VerifyIDToken(ctx, credential)
	if err != nil {
		return nil, p.translate(err)
	}
	principal := &models.Principal{UID: token.UID}
	principal.Email, _ = token.Claims["email"].(string)
	principal.DisplayName, _ = token.Claims["name"].(string)
	principal.PhotoURL, _ = token.Claims["picture"].(string)
	return principal, nil
}

// SignInFederated accepts an ID token minted by a Google sign-in.
func (p *FirebaseProvider) SignInFederated(ctx context.Context, credential string) (*models.Principal, error) {
	if credential == "" {
		return nil, NewAuthError(CodeInvalidCredential, nil)
	}
	token, err := p.auth.VerifyIDTokenAndCheckRevoked(ctx, credential)
	if err != nil {
		return nil, p.translate(err)
	}
	if token.Firebase.SignInProvider != googleSignInProvider {
		return nil, NewAuthError(CodeFederatedRequired,
			fmt.Errorf("token was issued by %q", token.Firebase.SignInProvider))
	}
	return p.lookup(ctx, token.UID)
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, p.translate(err)
	}
	return p.lookup(ctx, resp.LocalId)
}

func (p *FirebaseProvider) SignUpWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	if len(password) < MinPasswordLength {
		return nil, NewAuthError(CodeWeakPassword, nil)
	}
	record, err := p.auth.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		return nil, p.translate(err)
	}
	return principalFromRecord(record), nil
}

func (p *FirebaseProvider) UpdatePrincipalProfile(ctx context.Context, uid string, update models.PrincipalUpdate) (*models.Principal, error) {
	params := &auth.UserToUpdate{}
	changed := false
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
		changed = true
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
		changed = true
	}
	if !changed {
		return p.lookup(ctx, uid)
	}
	record, err := p.auth.UpdateUser(ctx, uid, params)
	if err != nil {
		return nil, p.translate(err)
	}
	return principalFromRecord(record), nil
}

// SignOut revokes the user's refresh tokens, ending sessions on every device.
func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.auth.RevokeRefreshTokens(ctx, uid); err != nil {
		return p.translate(err)
	}
	return nil
}

func (p *FirebaseProvider) lookup(ctx context.Context, uid string) (*models.Principal, error) {
	record, err := p.auth.GetUser(ctx, uid)
	if err != nil {
		return nil, p.translate(err)
	}
	return principalFromRecord(record), nil
}

func principalFromRecord(r *auth.UserRecord) *models.Principal {
	return &models.Principal{
		UID:         r.UID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
	}
}

// translate maps Admin SDK and Identity Toolkit errors onto the credential taxonomy.
func (p *FirebaseProvider) translate(err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case auth.IsEmailAlreadyExists(err):
		return NewAuthError(CodeEmailAlreadyInUse, err)
	case auth.IsUserNotFound(err):
		return NewAuthError(CodeUserNotFound, err)
	case auth.IsInvalidEmail(err):
		return NewAuthError(CodeInvalidEmail, err)
	case auth.IsUserDisabled(err):
		return NewAuthError(CodeUserDisabled, err)
	case auth.IsIDTokenRevoked(err), auth.IsIDTokenExpired(err), auth.IsIDTokenInvalid(err):
		return NewAuthError(CodeInvalidCredential, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return NewAuthError(toolkitCode(gerr.Message), err)
	}

	p.logger.Error("Unclassified identity provider error", zap.Error(err))
	return NewAuthError(CodeInternalError, err)
}

// toolkitCode maps Identity Toolkit error messages such as "INVALID_PASSWORD" or
// "WEAK_PASSWORD : Password should be at least 6 characters".
func toolkitCode(message string) string {
	reason := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch reason {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_IDP_RESPONSE", "INVALID_ID_TOKEN":
		return CodeInvalidCredential
	case "EMAIL_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "WEAK_PASSWORD":
		return CodeWeakPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "USER_DISABLED":
		return CodeUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "OPERATION_NOT_ALLOWED", "PASSWORD_LOGIN_DISABLED":
		return CodeFederatedRequired
	}
	return CodeInternalError
}
