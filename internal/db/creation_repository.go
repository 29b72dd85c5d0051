package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/database"
)

const creationsCollection = "creations"

type creationRepository struct {
	store database.DocumentStore
}

// NewCreationRepository creates a CreationRepository on top of a document store.
func NewCreationRepository(store database.DocumentStore) CreationRepository {
	return &creationRepository{store: store}
}

func (r *creationRepository) NewID() string {
	return r.store.NewID(creationsCollection)
}

func (r *creationRepository) Create(ctx context.Context, c *models.Creation) error {
	if c == nil || c.ID == "" {
		return errors.New("creation id cannot be empty")
	}
	if err := r.store.Set(ctx, creationsCollection, c.ID, encodeCreation(c)); err != nil {
		return fmt.Errorf("create creation %s: %w", c.ID, err)
	}
	return nil
}

func (r *creationRepository) GetByID(ctx context.Context, id string) (*models.Creation, error) {
	raw, err := r.store.Get(ctx, creationsCollection, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("creation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get creation %s: %w", id, err)
	}
	return decodeCreation(id, raw)
}

// ListByUser returns the user's creations, newest first.
func (r *creationRepository) ListByUser(ctx context.Context, uid string, limit int) ([]*models.Creation, error) {
	docs, err := r.store.Query(ctx, creationsCollection, database.Query{
		Field:      "userId",
		Value:      uid,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list creations for %s: %w", uid, err)
	}
	out := make([]*models.Creation, 0, len(docs))
	for _, doc := range docs {
		c, err := decodeCreation(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *creationRepository) CountByUser(ctx context.Context, uid string) (int, error) {
	docs, err := r.store.Query(ctx, creationsCollection, database.Query{Field: "userId", Value: uid})
	if err != nil {
		return 0, fmt.Errorf("count creations for %s: %w", uid, err)
	}
	return len(docs), nil
}

func (r *creationRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, creationsCollection, id); err != nil {
		return fmt.Errorf("delete creation %s: %w", id, err)
	}
	return nil
}

func encodeCreation(c *models.Creation) map[string]any {
	return map[string]any{
		"userId":           c.UserID,
		"prompt":           c.Prompt,
		"enhancedPrompt":   c.EnhancedPrompt,
		"negativePrompt":   c.NegativePrompt,
		"stylePreset":      c.StylePreset,
		"stylePresetName":  c.StylePresetName,
		"aspectRatio":      c.AspectRatio,
		"aspectRatioLabel": c.AspectRatioLabel,
		"creativity":       int64(c.Creativity),
		"detailLevel":      int64(c.DetailLevel),
		"colorPalette":     c.ColorPalette,
		"imageUrl":         c.ImageURL,
		"storagePath":      c.StoragePath,
		"imageWidth":       int64(c.ImageWidth),
		"imageHeight":      int64(c.ImageHeight),
		"createdAt":        c.CreatedAt,
	}
}

func decodeCreation(id string, raw map[string]any) (*models.Creation, error) {
	var c models.Creation
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "firestore",
		Result:     &c,
		DecodeHook: timeHook,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode creation %s: %w", id, err)
	}
	c.ID = id
	return &c, nil
}
