// Package bootstrap builds the backends and services shared by the server and
// the admin CLI from a loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/configs"
	"github.com/luxemuse/luxe-muse-backend/internal/config"
	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/firebase"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/pkg/cache"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
	"github.com/luxemuse/luxe-muse-backend/pkg/mailer"
	"github.com/luxemuse/luxe-muse-backend/pkg/messagequeue"
	"github.com/luxemuse/luxe-muse-backend/pkg/storage"
)

// memoryQueueSize bounds the in-process events queue used without RabbitMQ.
const memoryQueueSize = 256

// Backends are the external systems the services run on.
type Backends struct {
	Provider identity.Provider
	Store    database.DocumentStore
	Blobs    storage.BlobStore
	Locks    cache.Cache
	// Queue is nil when events have nowhere to go.
	Queue messagequeue.MessageQueue

	logger *zap.Logger
}

// Open connects every backend selected by cfg. Backends opened before a
// failure are closed again.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Backends, err error) {
	b := &Backends{logger: logger}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	switch cfg.Backend {
	case config.BackendFirebase:
		clients, err := firebase.Init(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.Store = database.NewFirestoreService(clients.Firestore, logger)
		b.Blobs = storage.NewGCSBlobStore(clients.Bucket, clients.BucketName)
		provider, err := identity.NewFirebaseProvider(ctx, identity.FirebaseProviderOptions{
			Auth:         clients.Auth,
			APIKey:       cfg.FirebaseAPIKey,
			PollInterval: cfg.AuthPollInterval,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		b.Provider = provider
		logger.Info("Firebase backends initialized", zap.String("project_id", cfg.FirebaseProjectID), zap.String("bucket", clients.BucketName))
	case config.BackendMemory:
		b.Store = database.NewMemoryStore()
		b.Blobs = storage.NewMemoryBlobStore("memory://blobs")
		b.Provider = identity.NewMemoryProvider()
		logger.Warn("Using in-memory backends; all data is lost on exit")
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.NewRedisCacheConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, err
		}
		b.Locks = redisCache
	} else {
		b.Locks = cache.NewMemoryCache()
	}

	switch {
	case cfg.AMQPURL != "":
		rabbit, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: cfg.AMQPURL}, logger)
		if err != nil {
			return nil, err
		}
		b.Queue = rabbit
	case MailConfig(cfg).Enabled():
		// The welcome mailer consumes in-process.
		b.Queue = messagequeue.NewMemoryQueue(memoryQueueSize)
	default:
		logger.Info("No events queue configured; domain events are dropped")
	}
	return b, nil
}

// Close releases every opened backend.
func (b *Backends) Close() {
	var errs []error
	if b.Queue != nil {
		errs = append(errs, b.Queue.Close())
	}
	if b.Locks != nil {
		errs = append(errs, b.Locks.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		b.logger.Warn("Error while closing backends", zap.Error(err))
	}
}

// Services are the core services wired to a set of backends.
type Services struct {
	ProfileRepo db.ProfileRepository
	Profiles    core.ProfileService
	Ledger      core.CreditLedger
	Generator   core.ImageGenerator
	Gate        core.GenerationGate
	Creations   core.CreationService
	Events      core.EventPublisher
}

// NewServices builds the services. A nil catalog means the built-in one.
func NewServices(cfg *config.Config, b *Backends, catalog *configs.Catalog, logger *zap.Logger) *Services {
	profileRepo := db.NewProfileRepository(b.Store, logger)
	creationRepo := db.NewCreationRepository(b.Store)
	events := core.NewEventPublisher(b.Queue, cfg.EventsQueue, logger)

	ledger := core.NewCreditLedger(core.CreditLedgerOptions{
		Profiles: profileRepo,
		OwnerUID: cfg.OwnerUID,
		Logger:   logger,
	})
	generator := core.NewImageGenerator(core.ImageGeneratorOptions{
		Renderer:  core.NewPlaceholderRenderer(cfg.RenderDelay),
		Blobs:     b.Blobs,
		Creations: creationRepo,
		Catalog:   catalog,
		Logger:    logger,
	})
	return &Services{
		ProfileRepo: profileRepo,
		Profiles: core.NewProfileService(core.ProfileServiceOptions{
			Profiles:       profileRepo,
			Provider:       b.Provider,
			Events:         events,
			OwnerUID:       cfg.OwnerUID,
			DefaultCredits: cfg.DefaultUserCredits,
			Logger:         logger,
		}),
		Ledger:    ledger,
		Generator: generator,
		Gate: core.NewGenerationGate(core.GenerationGateOptions{
			Generator:       generator,
			Ledger:          ledger,
			Creations:       creationRepo,
			Locks:           b.Locks,
			Events:          events,
			Catalog:         catalog,
			Cost:            cfg.CreditsPerGeneration,
			LockTTL:         cfg.GenerationLockTTL,
			RefundOnFailure: cfg.RefundOnFailure,
			Logger:          logger,
		}),
		Creations: core.NewCreationService(core.CreationServiceOptions{
			Creations: creationRepo,
			Blobs:     b.Blobs,
			Events:    events,
			OwnerUID:  cfg.OwnerUID,
			Logger:    logger,
		}),
		Events: events,
	}
}

// LoadCatalog reads CATALOG_FILE, or returns the built-in catalog when unset.
func LoadCatalog(cfg *config.Config) (*configs.Catalog, error) {
	if cfg.CatalogFile == "" {
		return configs.DefaultCatalog(), nil
	}
	catalog, err := configs.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogFile, err)
	}
	return catalog, nil
}

// MailConfig extracts the SMTP settings.
func MailConfig(cfg *config.Config) mailer.Config {
	return mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     strconv.Itoa(cfg.SMTPPort),
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}
}
