// Package firebase initialises the Firebase Admin SDK and the clients built on it.
package firebase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/luxemuse/luxe-muse-backend/internal/config"
)

// Clients bundles the Firebase services the backend talks to.
type Clients struct {
	App        *firebase.App
	Auth       *auth.Client
	Firestore  *firestore.Client
	Bucket     *gcs.BucketHandle
	BucketName string
}

// CredentialsOption picks the service account source from cfg.
func CredentialsOption(cfg *config.Config) (option.ClientOption, error) {
	switch {
	case cfg.GoogleApplicationCredentials != "":
		return option.WithCredentialsFile(cfg.GoogleApplicationCredentials), nil
	case cfg.FirebaseServiceAccountJSONBase64 != "":
		jsonKey, err := base64.StdEncoding.DecodeString(cfg.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, errors.New("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is not a valid base64 string")
		}
		return option.WithCredentialsJSON(jsonKey), nil
	}
	return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 must be set")
}

// Init creates the Firebase app and its Auth, Firestore and Storage clients.
func Init(ctx context.Context, cfg *config.Config) (*Clients, error) {
	opt, err := CredentialsOption(cfg)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.Bucket(),
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase auth client: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firestore client: %w", err)
	}
	storageClient, err := app.Storage(ctx)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("get storage client: %w", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("open storage bucket %s: %w", cfg.Bucket(), err)
	}

	return &Clients{
		App:        app,
		Auth:       authClient,
		Firestore:  fs,
		Bucket:     bucket,
		BucketName: cfg.Bucket(),
	}, nil
}

// Close releases the Firestore connection.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
