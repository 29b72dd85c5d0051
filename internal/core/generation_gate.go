package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/configs"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/cache"
)

const defaultGenerationLockTTL = 2 * time.Minute

// GenerationGateOptions configures NewGenerationGate.
type GenerationGateOptions struct {
	Generator ImageGenerator
	Ledger    CreditLedger
	Creations db.CreationRepository
	// Locks holds the per-account generation lock. Nil disables locking.
	Locks   cache.Cache
	Events  EventPublisher
	Catalog *configs.Catalog
	// Cost is charged per generation. Zero means models.CreditsPerGeneration.
	Cost    int
	LockTTL time.Duration
	// RefundOnFailure gives the credits back when rendering fails.
	RefundOnFailure bool
	Now             func() time.Time
	Logger          *zap.Logger
}

type generationGate struct {
	generator       ImageGenerator
	ledger          CreditLedger
	creations       db.CreationRepository
	locks           cache.Cache
	events          EventPublisher
	catalog         *configs.Catalog
	cost            int
	lockTTL         time.Duration
	refundOnFailure bool
	now             func() time.Time
	logger          *zap.Logger
}

// NewGenerationGate creates a GenerationGate.
func NewGenerationGate(opts GenerationGateOptions) GenerationGate {
	if opts.Cost <= 0 {
		opts.Cost = models.CreditsPerGeneration
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultGenerationLockTTL
	}
	if opts.Catalog == nil {
		opts.Catalog = configs.DefaultCatalog()
	}
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &generationGate{
		generator:       opts.Generator,
		ledger:          opts.Ledger,
		creations:       opts.Creations,
		locks:           opts.Locks,
		events:          opts.Events,
		catalog:         opts.Catalog,
		cost:            opts.Cost,
		lockTTL:         opts.LockTTL,
		refundOnFailure: opts.RefundOnFailure,
		now:             opts.Now,
		logger:          opts.Logger,
	}
}

// Generate charges the account before rendering. A failed render is not
// refunded unless RefundOnFailure is set.
func (g *generationGate) Generate(ctx context.Context, session AccountSession, req models.GenerationRequest) (*models.Creation, error) {
	profile, err := session.Current()
	if err != nil {
		return nil, err
	}
	opts, err := ComposePrompt(g.catalog, req)
	if err != nil {
		return nil, err
	}

	unlock, err := g.lock(ctx, profile.UID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	charged := false
	if !profile.IsOwner() {
		if err := g.ledger.Consume(ctx, session, g.cost); err != nil {
			return nil, err
		}
		charged = true
	}

	image, err := g.generator.Generate(ctx, profile.UID, models.GenerateImageRequest{
		Prompt:         opts.Prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    opts.AspectRatio.Value,
	})
	if err != nil {
		g.logger.Warn("Generation failed after charging",
			zap.String("uid", profile.UID), zap.Bool("charged", charged), zap.Error(err))
		if charged && g.refundOnFailure {
			if _, rerr := g.ledger.Refund(context.WithoutCancel(ctx), profile.UID, g.cost); rerr != nil {
				g.logger.Error("Failed to refund credits", zap.String("uid", profile.UID), zap.Error(rerr))
			}
		}
		g.refresh(ctx, session, profile.UID)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	creation := &models.Creation{
		ID:               image.CreationID,
		UserID:           profile.UID,
		Prompt:           req.Prompt,
		EnhancedPrompt:   req.EnhancedPrompt,
		NegativePrompt:   req.NegativePrompt,
		StylePreset:      opts.Preset.Value,
		AspectRatio:      opts.AspectRatio.Value,
		AspectRatioLabel: opts.AspectRatio.Label,
		Creativity:       opts.Creativity,
		DetailLevel:      opts.DetailLevel,
		ColorPalette:     opts.ColorPalette,
		ImageURL:         image.ImageURL,
		StoragePath:      image.StoragePath,
		ImageWidth:       image.ImageWidth,
		ImageHeight:      image.ImageHeight,
		CreatedAt:        g.now().UTC(),
	}
	if opts.Preset.Value != g.catalog.DefaultStylePreset {
		creation.StylePresetName = opts.Preset.Name
	}
	if err := g.creations.Create(ctx, creation); err != nil {
		g.logger.Error("Failed to save creation", zap.String("uid", profile.UID), zap.String("creation_id", creation.ID), zap.Error(err))
		return nil, fmt.Errorf("save creation: %w", err)
	}

	publishBestEffort(ctx, g.events, g.logger, Event{
		Type:       EventCreationCreated,
		UserID:     profile.UID,
		CreationID: creation.ID,
		OccurredAt: creation.CreatedAt,
	})
	g.refresh(ctx, session, profile.UID)
	return creation, nil
}

// lock takes generation:<uid> for the lock TTL and returns its release func.
func (g *generationGate) lock(ctx context.Context, uid string) (func(), error) {
	if g.locks == nil {
		return func() {}, nil
	}
	key := "generation:" + uid
	token := uuid.NewString()
	ok, err := g.locks.SetNX(ctx, key, token, g.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return nil, ErrGenerationInProgress
	}
	return func() {
		if err := g.locks.DeleteIfEqual(context.WithoutCancel(ctx), key, token); err != nil {
			g.logger.Warn("Failed to release generation lock", zap.String("uid", uid), zap.Error(err))
		}
	}, nil
}

func (g *generationGate) refresh(ctx context.Context, session AccountSession, uid string) {
	if err := session.RefreshProfile(ctx); err != nil {
		g.logger.Warn("Failed to refresh profile after generation", zap.String("uid", uid), zap.Error(err))
	}
}
