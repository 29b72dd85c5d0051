package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxemuse/luxe-muse-backend/configs"
	"github.com/luxemuse/luxe-muse-backend/internal/api"
	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/crypto"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/middleware"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
	"github.com/luxemuse/luxe-muse-backend/pkg/cache"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
	"github.com/luxemuse/luxe-muse-backend/pkg/storage"
)

const ownerUID = "boss"

type server struct {
	t        *testing.T
	router   *gin.Engine
	provider *identity.MemoryProvider
	profiles db.ProfileRepository
}

func newServer(t *testing.T, overrides ...func(*api.Dependencies)) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := identity.NewMemoryProvider()
	provider.AddUser(models.Principal{UID: "u1", Email: "ada@example.com", DisplayName: "Ada"}, "secret1")
	provider.AddUser(models.Principal{UID: "u2", Email: "lin@example.com", DisplayName: "Lin"}, "secret2")
	provider.AddUser(models.Principal{UID: ownerUID, Email: "boss@example.com"}, "ownerpw")

	store := database.NewMemoryStore()
	profiles := db.NewProfileRepository(store, nil)
	creations := db.NewCreationRepository(store)
	blobs := storage.NewMemoryBlobStore("http://blobs.test")

	profileService := core.NewProfileService(core.ProfileServiceOptions{Profiles: profiles, Provider: provider, OwnerUID: ownerUID})
	ledger := core.NewCreditLedger(core.CreditLedgerOptions{Profiles: profiles, OwnerUID: ownerUID})
	generator := core.NewImageGenerator(core.ImageGeneratorOptions{Blobs: blobs, Creations: creations})

	registry := session.NewRegistry(session.RegistryOptions{Provider: provider, Profiles: profileService})
	t.Cleanup(registry.Close)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewTokenSealer(key)
	require.NoError(t, err)

	deps := api.Dependencies{
		Registry: registry,
		Auth: middleware.NewAuthMiddleware(middleware.AuthOptions{
			Registry:  registry,
			Sealer:    sealer,
			Provider:  provider,
			CookieTTL: time.Hour,
		}),
		Profiles: profileService,
		Ledger:   ledger,
		Gate: core.NewGenerationGate(core.GenerationGateOptions{
			Generator: generator,
			Ledger:    ledger,
			Creations: creations,
			Locks:     cache.NewMemoryCache(),
		}),
		Generator:         generator,
		Creations:         core.NewCreationService(core.CreationServiceOptions{Creations: creations, Blobs: blobs, OwnerUID: ownerUID}),
		AuthRateLimit:     1000,
		AuthRateBurst:     1000,
		CallableRateLimit: 1000,
		CallableRateBurst: 1000,
	}
	for _, override := range overrides {
		override(&deps)
	}
	router := gin.New()
	api.SetupRoutes(router, deps)
	return &server{t: t, router: router, provider: provider, profiles: profiles}
}

func (s *server) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) as(token string) map[string]string {
	return map[string]string{middleware.SessionHeader: token}
}

func (s *server) signIn(email, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/signin", gin.H{"email": email, "password": password}, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp api.SessionResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthzAndCatalog(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", nil, nil).Code)

	w := s.do(http.MethodGet, "/api/v1/catalog", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	catalog := decode[configs.Catalog](t, w)
	assert.Equal(t, "1:1", catalog.DefaultAspectRatio)
	assert.NotEmpty(t, catalog.StylePresets)
}

func TestSignUpAndSignOut(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/signup", gin.H{"email": "grace@example.com", "password": "longenough", "displayName": "Grace"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[api.SessionResponse](t, w)
	assert.Equal(t, session.StateAuthenticated, resp.Session.State)
	assert.Equal(t, models.DefaultUserCredits, resp.Session.Profile.Credits)
	assert.Equal(t, "Grace", resp.Session.Profile.DisplayName)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=")

	w = s.do(http.MethodGet, "/api/v1/profile", nil, s.as(resp.Token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleUser, decode[models.Profile](t, w).Role)

	w = s.do(http.MethodPost, "/api/v1/auth/signout", nil, s.as(resp.Token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", decode[api.SignOutResponse](t, w).Redirect)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/profile", nil, s.as(resp.Token)).Code)
	w = s.do(http.MethodGet, "/api/v1/session", nil, s.as(resp.Token))
	assert.Equal(t, session.StateAnonymous, decode[api.SessionResponse](t, w).Session.State)
}

func TestAuthErrors(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/signin", gin.H{"email": "ada@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	e := decode[api.ErrorResponse](t, w)
	assert.Equal(t, "Login Failed", e.Error)
	assert.Equal(t, identity.CodeWrongPassword, e.Code)
	assert.NotEmpty(t, e.Details)

	w = s.do(http.MethodPost, "/api/v1/auth/signup", gin.H{"email": "new@example.com", "password": "123", "displayName": "New"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e = decode[api.ErrorResponse](t, w)
	assert.Equal(t, "Signup Failed", e.Error)
	assert.Equal(t, identity.CodeWeakPassword, e.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/signup", gin.H{"email": "ada@example.com", "password": "longenough", "displayName": "Ada"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, identity.CodeEmailAlreadyInUse, decode[api.ErrorResponse](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/auth/federated", gin.H{"idToken": s.provider.IssueToken("u1")}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Google Sign-In Failed", decode[api.ErrorResponse](t, w).Error)

	w = s.do(http.MethodPost, "/api/v1/auth/signin", gin.H{"email": "ada@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFederatedSignIn(t *testing.T) {
	s := newServer(t)
	token := s.provider.GoogleToken(models.Principal{UID: "g1", Email: "mo@example.com", DisplayName: "Mo"})

	w := s.do(http.MethodPost, "/api/v1/auth/federated", gin.H{"idToken": token}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[api.SessionResponse](t, w)
	assert.Equal(t, "g1", resp.Session.Profile.UID)
	assert.Equal(t, "Mo", resp.Session.Profile.DisplayName)
}

func TestRestoreSession(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/session", nil, map[string]string{"Authorization": "Bearer " + s.provider.IssueToken("u1")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[api.SessionResponse](t, w)
	assert.Equal(t, session.StateAuthenticated, resp.Session.State)

	w = s.do(http.MethodGet, "/api/v1/profile", nil, s.as(resp.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/session", gin.H{"idToken": "expired"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/v1/auth/session", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateChargesCredits(t *testing.T) {
	s := newServer(t)
	token := s.signIn("ada@example.com", "secret1")

	w := s.do(http.MethodPost, "/api/v1/generations", gin.H{"prompt": "a golden cat", "aspectRatio": "16:9"}, s.as(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[api.GenerationResponse](t, w)
	assert.Equal(t, 90, resp.Credits.Credits)
	assert.False(t, resp.Credits.Unlimited)
	assert.Equal(t, "16:9", resp.Creation.AspectRatio)
	assert.NotEmpty(t, resp.Creation.ImageURL)

	w = s.do(http.MethodPost, "/api/v1/generations", gin.H{"prompt": "   "}, s.as(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty-prompt", decode[api.ErrorResponse](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/generations", gin.H{"enhancedPrompt": "a castle at dusk"}, s.as(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 80, decode[api.GenerationResponse](t, w).Credits.Credits)

	_, err := s.profiles.AdjustCredits(context.Background(), "u1", -75)
	require.NoError(t, err)
	w = s.do(http.MethodPost, "/api/v1/generations", gin.H{"prompt": "another cat"}, s.as(token))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "Insufficient Credits", decode[api.ErrorResponse](t, w).Error)

	w = s.do(http.MethodGet, "/api/v1/profile", nil, s.as(token))
	assert.Equal(t, 5, decode[models.Profile](t, w).Credits)
}

func TestConsumeAndRefresh(t *testing.T) {
	s := newServer(t)
	token := s.signIn("ada@example.com", "secret1")

	w := s.do(http.MethodPost, "/api/v1/credits/consume", gin.H{"cost": 30}, s.as(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 70, decode[api.CreditsResponse](t, w).Credits)

	_, err := s.profiles.AdjustCredits(context.Background(), "u1", 5)
	require.NoError(t, err)
	w = s.do(http.MethodPost, "/api/v1/profile/refresh", nil, s.as(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 75, decode[models.Profile](t, w).Credits)

	w = s.do(http.MethodPost, "/api/v1/credits/consume", gin.H{"cost": 500}, s.as(token))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	s := newServer(t)
	token := s.signIn("ada@example.com", "secret1")

	w := s.do(http.MethodPatch, "/api/v1/profile", gin.H{"displayName": "Ada Lovelace"}, s.as(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ada Lovelace", decode[models.Profile](t, w).DisplayName)

	w = s.do(http.MethodPatch, "/api/v1/profile", gin.H{"displayName": "  "}, s.as(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreations(t *testing.T) {
	s := newServer(t)
	ada := s.signIn("ada@example.com", "secret1")
	lin := s.signIn("lin@example.com", "secret2")

	w := s.do(http.MethodPost, "/api/v1/generations", gin.H{"prompt": "Velvet Cat"}, s.as(ada))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[api.GenerationResponse](t, w).Creation.ID

	w = s.do(http.MethodGet, "/api/v1/creations", nil, s.as(ada))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Creations []models.Creation `json:"creations"`
	}](t, w)
	require.Len(t, list.Creations, 1)
	assert.Equal(t, id, list.Creations[0].ID)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/creations/"+id, nil, s.as(ada)).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/creations/"+id, nil, s.as(lin)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/creations/missing", nil, s.as(ada)).Code)

	w = s.do(http.MethodGet, "/api/v1/creations/"+id+"/download", nil, s.as(ada))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="luxe_muse_velvet_cat.png"`)
	assert.Equal(t, "\x89PNG", w.Body.String()[:4])

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/v1/creations/"+id, nil, s.as(lin)).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/creations/"+id, nil, s.as(ada)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/creations/"+id, nil, s.as(ada)).Code)
}

func TestOwnerRoutes(t *testing.T) {
	s := newServer(t)
	user := s.signIn("ada@example.com", "secret1")
	owner := s.signIn("boss@example.com", "ownerpw")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/owner/overview", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/owner/overview", nil, s.as(user)).Code)

	w := s.do(http.MethodGet, "/api/v1/owner/overview", nil, s.as(owner))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	overview := decode[api.OwnerOverviewResponse](t, w)
	assert.Equal(t, models.OwnerCredits, overview.Owner.Credits)
	assert.Equal(t, 2, overview.ActiveSessions)

	w = s.do(http.MethodPost, "/api/v1/generations", gin.H{"prompt": "free for me"}, s.as(owner))
	require.Equal(t, http.StatusCreated, w.Code)
	generated := decode[api.GenerationResponse](t, w)
	assert.True(t, generated.Credits.Unlimited)

	w = s.do(http.MethodGet, "/api/v1/creations/"+generated.Creation.ID+"/download", nil, s.as(owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="luxe_muse_owner_free_for_me.png"`)

	w = s.do(http.MethodGet, "/api/v1/owner/users/u1", nil, s.as(owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, decode[models.Profile](t, w).Credits)

	w = s.do(http.MethodPost, "/api/v1/owner/users/u1/credits", gin.H{"amount": 25}, s.as(owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 125, decode[api.GrantCreditsResponse](t, w).Credits)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/owner/users/nobody", nil, s.as(owner)).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/owner/users/u1/credits", gin.H{"amount": 0}, s.as(owner)).Code)
}

type callableError struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestGenerateAiImageCallable(t *testing.T) {
	s := newServer(t)
	path := "/api/v1/functions/generateAiImage"

	w := s.do(http.MethodPost, path, gin.H{"data": gin.H{"prompt": "a cat"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[callableError](t, w).Error.Status)

	bearer := map[string]string{"Authorization": "Bearer " + s.provider.IssueToken("u1")}
	w = s.do(http.MethodPost, path, gin.H{"data": gin.H{"prompt": ""}}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[callableError](t, w).Error.Status)

	w = s.do(http.MethodPost, path, gin.H{"prompt": "no envelope"}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, path, gin.H{"data": gin.H{"prompt": "a cat", "aspectRatio": "4:5"}}, bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[struct {
		Result models.GeneratedImage `json:"result"`
	}](t, w).Result
	assert.NotEmpty(t, result.CreationID)
	assert.Equal(t, 640, result.ImageHeight)
	assert.Contains(t, result.ImageURL, "creations/u1/")
}

func TestGenerateAiImageCallableRateLimitedPerPrincipal(t *testing.T) {
	s := newServer(t, func(d *api.Dependencies) {
		d.CallableRateLimit, d.CallableRateBurst = 0.001, 2
	})
	path := "/api/v1/functions/generateAiImage"
	ada := map[string]string{"Authorization": "Bearer " + s.provider.IssueToken("u1")}
	lin := map[string]string{"Authorization": "Bearer " + s.provider.IssueToken("u2")}
	body := gin.H{"data": gin.H{"prompt": "a cat"}}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, path, body, ada).Code)
	}
	w := s.do(http.MethodPost, path, body, ada)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RESOURCE_EXHAUSTED", decode[callableError](t, w).Error.Status)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, path, body, lin).Code, "limits are per principal")
}
