package firebase

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Client holds the Firebase clients shared by the sync job and the broker.
// It is constructed once in main and passed down; Close releases the Firestore connection.
type Client struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

// NewClient initializes the Firebase app using the provided credentials file.
// An empty credentials file falls back to application default credentials.
func NewClient(ctx context.Context, credentialsFile, projectID string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}

	log.Println("[Firebase] Client initialized successfully")
	return &Client{
		Auth:      authClient,
		Firestore: fsClient,
	}, nil
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
