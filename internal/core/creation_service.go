package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/storage"
)

// CreationServiceOptions configures NewCreationService.
type CreationServiceOptions struct {
	Creations db.CreationRepository
	Blobs     storage.BlobStore
	Events    EventPublisher
	// ListLimit caps List results. Zero means no cap.
	ListLimit int
	// OwnerUID gets the owner console's download names.
	OwnerUID string
	Logger   *zap.Logger
}

type creationService struct {
	creations db.CreationRepository
	blobs     storage.BlobStore
	events    EventPublisher
	listLimit int
	ownerUID  string
	logger    *zap.Logger
}

// NewCreationService creates a CreationService.
func NewCreationService(opts CreationServiceOptions) CreationService {
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &creationService{
		creations: opts.Creations,
		blobs:     opts.Blobs,
		events:    opts.Events,
		listLimit: opts.ListLimit,
		ownerUID:  opts.OwnerUID,
		logger:    opts.Logger,
	}
}

func (s *creationService) List(ctx context.Context, uid string) ([]*models.Creation, error) {
	creations, err := s.creations.ListByUser(ctx, uid, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list creations: %w", err)
	}
	return creations, nil
}

func (s *creationService) Count(ctx context.Context, uid string) (int, error) {
	n, err := s.creations.CountByUser(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("count creations: %w", err)
	}
	return n, nil
}

// Get returns the creation if uid owns it.
func (s *creationService) Get(ctx context.Context, uid, id string) (*models.Creation, error) {
	creation, err := s.creations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCreationNotFound, id)
		}
		return nil, fmt.Errorf("get creation %s: %w", id, err)
	}
	if creation.UserID != uid {
		s.logger.Warn("Creation accessed by another user", zap.String("uid", uid), zap.String("creation_id", id))
		return nil, fmt.Errorf("%w: creation %s", ErrAccessDenied, id)
	}
	return creation, nil
}

// Delete removes the document, then the stored image on a best-effort basis.
func (s *creationService) Delete(ctx context.Context, uid, id string) error {
	creation, err := s.Get(ctx, uid, id)
	if err != nil {
		return err
	}
	if err := s.creations.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete creation %s: %w", id, err)
	}
	if path := storagePathOf(creation); path != "" {
		if err := s.blobs.Delete(ctx, path); err != nil {
			s.logger.Warn("Failed to delete creation image", zap.String("path", path), zap.Error(err))
		}
	}
	publishBestEffort(ctx, s.events, s.logger, Event{
		Type:       EventCreationDeleted,
		UserID:     uid,
		CreationID: id,
	})
	return nil
}

func (s *creationService) Download(ctx context.Context, uid, id string) (io.ReadCloser, string, error) {
	creation, err := s.Get(ctx, uid, id)
	if err != nil {
		return nil, "", err
	}
	path := storagePathOf(creation)
	if path == "" {
		return nil, "", fmt.Errorf("%w: creation %s has no stored image", ErrCreationNotFound, id)
	}
	r, err := s.blobs.Open(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", fmt.Errorf("%w: image for creation %s", ErrCreationNotFound, id)
		}
		return nil, "", fmt.Errorf("open creation image %s: %w", id, err)
	}
	return r, DownloadFileName(creation.Prompt, s.ownerUID != "" && uid == s.ownerUID), nil
}

// storagePathOf falls back to the conventional path for records written
// without one.
func storagePathOf(c *models.Creation) string {
	if c.StoragePath != "" {
		return c.StoragePath
	}
	if c.UserID == "" || c.ID == "" {
		return ""
	}
	return fmt.Sprintf("creations/%s/%s.png", c.UserID, c.ID)
}

// DownloadFileName builds luxe_muse_<prompt>.png from the first 20 characters
// of the lowercased prompt with everything but letters and digits replaced by _.
// Owner downloads are named luxe_muse_owner_<prompt>.png.
func DownloadFileName(prompt string, owner bool) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, prompt)
	if runes := []rune(safe); len(runes) > 20 {
		safe = string(runes[:20])
	}
	if safe == "" {
		safe = "creation"
	}
	if owner {
		return "luxe_muse_owner_" + safe + ".png"
	}
	return "luxe_muse_" + safe + ".png"
}
