package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/api"
	"github.com/luxemuse/luxe-muse-backend/internal/bootstrap"
	"github.com/luxemuse/luxe-muse-backend/internal/config"
	"github.com/luxemuse/luxe-muse-backend/internal/crypto"
	"github.com/luxemuse/luxe-muse-backend/internal/middleware"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
	"github.com/luxemuse/luxe-muse-backend/internal/worker"
	"github.com/luxemuse/luxe-muse-backend/pkg/mailer"
)

func main() {
	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	var zapLogger *zap.Logger
	if appConfig.Release() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded", zap.String("backend", appConfig.Backend))

	// --- 3. Connect Backends ---
	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	backends, err := bootstrap.Open(initCtx, appConfig, zapLogger)
	cancelInit()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize backends", zap.Error(err))
	}
	defer backends.Close()

	catalog, err := bootstrap.LoadCatalog(appConfig)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load generation catalog", zap.Error(err))
	}

	// --- 4. Initialize Services ---
	services := bootstrap.NewServices(appConfig, backends, catalog, zapLogger)
	if appConfig.OwnerUID == "" {
		zapLogger.Warn("OWNER_UID is not set; no account can hold the owner role")
	}

	registry := session.NewRegistry(session.RegistryOptions{
		Provider: backends.Provider,
		Profiles: services.Profiles,
		Size:     appConfig.SessionCapacity,
		TTL:      appConfig.SessionTTL,
		Logger:   zapLogger,
	})
	defer registry.Close()

	sealer, err := newSealer(appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Invalid session key", zap.Error(err))
	}
	zapLogger.Info("Core services initialized")

	// --- 5. Start Background Workers ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if mailCfg := bootstrap.MailConfig(appConfig); mailCfg.Enabled() && backends.Queue != nil {
		welcome := worker.NewWelcomeMailer(worker.WelcomeMailerOptions{
			Queue:           backends.Queue,
			QueueName:       appConfig.EventsQueue,
			Sender:          mailer.New(mailCfg),
			StartingCredits: appConfig.DefaultUserCredits,
			Logger:          zapLogger.Named("welcome-mailer"),
		})
		go func() {
			if err := welcome.Run(workerCtx); err != nil {
				zapLogger.Error("Welcome mailer stopped", zap.Error(err))
			}
		}()
	} else {
		zapLogger.Info("Welcome mailer disabled: SMTP is not configured")
	}

	// --- 6. Setup Gin HTTP Engine ---
	if appConfig.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured")
	}

	api.SetupRoutes(router, api.Dependencies{
		Registry: registry,
		Auth: middleware.NewAuthMiddleware(middleware.AuthOptions{
			Registry:     registry,
			Sealer:       sealer,
			Provider:     backends.Provider,
			CookieTTL:    appConfig.SessionTTL,
			SecureCookie: appConfig.Release(),
			Logger:       zapLogger,
		}),
		Profiles:          services.Profiles,
		Ledger:            services.Ledger,
		Gate:              services.Gate,
		Generator:         services.Generator,
		Creations:         services.Creations,
		Catalog:           catalog,
		AuthRateLimit:     appConfig.AuthRateLimit,
		AuthRateBurst:     appConfig.AuthRateBurst,
		CallableRateLimit: appConfig.CallableRateLimit,
		CallableRateBurst: appConfig.CallableRateBurst,
		Logger:            zapLogger,
	})

	// --- 7. Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 8. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopWorkers()
	zapLogger.Info("Server exiting gracefully")
}

// newSealer uses SESSION_KEY, or a random per-process key.
func newSealer(cfg *config.Config, logger *zap.Logger) (*crypto.TokenSealer, error) {
	if cfg.SessionKey != "" {
		key, err := crypto.ParseKey(cfg.SessionKey)
		if err != nil {
			return nil, err
		}
		return crypto.NewTokenSealer(key)
	}
	logger.Warn("SESSION_KEY is not set; generating an ephemeral session key")
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return crypto.NewTokenSealer(key)
}
