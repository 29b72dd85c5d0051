package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/configs"
	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/middleware"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

// Dependencies are the services the routes are wired to.
type Dependencies struct {
	Registry  *session.Registry
	Auth      *middleware.AuthMiddleware
	Profiles  core.ProfileService
	Ledger    core.CreditLedger
	Gate      core.GenerationGate
	Generator core.ImageGenerator
	Creations core.CreationService
	// Catalog is served to clients. Nil means the built-in catalog.
	Catalog *configs.Catalog
	// AuthRateLimit and AuthRateBurst throttle the credential endpoints per client IP.
	AuthRateLimit float64
	AuthRateBurst int
	// CallableRateLimit and CallableRateBurst throttle the uncharged
	// generateAiImage callable per principal.
	CallableRateLimit float64
	CallableRateBurst int
	Logger            *zap.Logger
}

// SetupRoutes registers every route. Global middleware (logging, recovery,
// CORS) is expected to be on router already.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	authMW := deps.Auth
	if deps.Catalog == nil {
		deps.Catalog = configs.DefaultCatalog()
	}
	if deps.AuthRateLimit <= 0 || deps.AuthRateBurst <= 0 {
		deps.AuthRateLimit, deps.AuthRateBurst = 1, 5
	}
	if deps.CallableRateLimit <= 0 || deps.CallableRateBurst <= 0 {
		deps.CallableRateLimit, deps.CallableRateBurst = 0.1, 3
	}

	authHandler := NewAuthHandler(deps.Registry, authMW, logger)
	profileHandler := NewProfileHandler(deps.Ledger, logger)
	generationHandler := NewGenerationHandler(deps.Gate, deps.Generator, logger)
	creationHandler := NewCreationHandler(deps.Creations, logger)
	ownerHandler := NewOwnerHandler(deps.Profiles, deps.Creations, deps.Ledger, deps.Registry, logger)

	apiV1 := router.Group("/api/v1", authMW.LoadSession())
	{
		authGroup := apiV1.Group("/auth")
		{
			limited := authGroup.Group("", middleware.RateLimit(deps.AuthRateLimit, deps.AuthRateBurst))
			limited.POST("/signup", authHandler.SignUp)
			limited.POST("/signin", authHandler.SignIn)
			limited.POST("/federated", authHandler.SignInFederated)
			limited.POST("/session", authHandler.RestoreSession)
			authGroup.POST("/signout", authHandler.SignOut)
		}
		apiV1.GET("/session", authHandler.GetSession)
		apiV1.GET("/catalog", func(c *gin.Context) {
			c.JSON(http.StatusOK, deps.Catalog)
		})

		protected := apiV1.Group("", authMW.RequireAuth())
		{
			protected.GET("/profile", profileHandler.GetProfile)
			protected.PATCH("/profile", profileHandler.UpdateProfile)
			protected.POST("/profile/refresh", profileHandler.RefreshProfile)
			protected.POST("/credits/consume", profileHandler.ConsumeCredits)

			protected.POST("/generations", generationHandler.Generate)

			protected.GET("/creations", creationHandler.ListCreations)
			protected.GET("/creations/:id", creationHandler.GetCreation)
			protected.DELETE("/creations/:id", creationHandler.DeleteCreation)
			protected.GET("/creations/:id/download", creationHandler.DownloadCreation)

			owner := protected.Group("/owner", authMW.RequireOwner())
			owner.GET("/overview", ownerHandler.Overview)
			owner.GET("/users/:uid", ownerHandler.GetUser)
			owner.POST("/users/:uid/credits", ownerHandler.GrantCredits)
		}

		apiV1.POST("/functions/generateAiImage",
			authMW.BearerPrincipal(),
			middleware.RateLimitBy(deps.CallableRateLimit, deps.CallableRateBurst, middleware.PrincipalOrIP, generationHandler.RateLimited),
			generationHandler.GenerateAiImage)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured under /api/v1 and /healthz")
}
