package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"calsync/internal/calendar/domain"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserDocument(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]interface{}
		wantGoogle *domain.Credential
		wantMS     *domain.Credential
		wantErr    error
		wantEmail  string
	}{
		{
			name: "map credentials",
			data: map[string]interface{}{
				"email":     "ada@example.com",
				"google":    map[string]interface{}{"refresh_token": "g-rt", "scope": "calendar"},
				"microsoft": map[string]interface{}{"refreshToken": "m-rt"},
			},
			wantGoogle: &domain.Credential{RefreshToken: "g-rt", FieldPath: "google.refresh_token"},
			wantMS:     &domain.Credential{RefreshToken: "m-rt", FieldPath: "microsoft.refreshToken"},
			wantEmail:  "ada@example.com",
		},
		{
			name:       "bare refresh token string",
			data:       map[string]interface{}{"google": "g-rt"},
			wantGoogle: &domain.Credential{RefreshToken: "g-rt", FieldPath: "google"},
		},
		{
			name:      "no linked providers",
			data:      map[string]interface{}{"email": "bob@example.com"},
			wantEmail: "bob@example.com",
		},
		{
			name:    "credential of wrong type",
			data:    map[string]interface{}{"microsoft": 42},
			wantErr: domain.ErrMalformedDocument,
		},
		{
			name:    "refresh token of wrong type",
			data:    map[string]interface{}{"google": map[string]interface{}{"refresh_token": true}},
			wantErr: domain.ErrMalformedDocument,
		},
		{
			name:    "empty document",
			data:    nil,
			wantErr: domain.ErrMalformedDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parseUserDocument("uid", tt.data)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "uid", doc.ID)
			assert.Equal(t, tt.wantEmail, doc.Email)
			assert.Equal(t, tt.wantGoogle, doc.Credential(domain.ProviderGoogle))
			assert.Equal(t, tt.wantMS, doc.Credential(domain.ProviderMicrosoft))
		})
	}
}

func TestParseUserDocument_CredentialWithoutToken(t *testing.T) {
	doc, err := parseUserDocument("uid", map[string]interface{}{
		"microsoft": map[string]interface{}{"linked_at": "2026-01-01"},
	})
	require.NoError(t, err)

	// present but unusable: treated as not linked
	assert.Nil(t, doc.Credential(domain.ProviderMicrosoft))
}

// newEmulatorClient connects to the Firestore emulator, skipping when it is not running.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "calsync-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFirestoreUserRepository_Emulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	repo := NewFirestoreUserRepository(client)

	userID := "user-" + uuid.NewString()
	_, err := client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"email":     "ada@example.com",
		"microsoft": map[string]interface{}{"refresh_token": "m-rt"},
	})
	require.NoError(t, err)

	doc, err := repo.FindByID(ctx, userID)
	require.NoError(t, err)
	cred := doc.Credential(domain.ProviderMicrosoft)
	require.NotNil(t, cred)

	events := []domain.Event{{"id": "AAMk1", "subject": "Review"}}
	require.NoError(t, repo.UpdateCalendar(ctx, userID, domain.ProviderMicrosoft, events))
	require.NoError(t, repo.UpdateRefreshToken(ctx, userID, cred, "m-rt-2"))
	require.NoError(t, repo.UpdateRefreshToken(ctx, userID, cred, ""))

	snap, err := client.Collection(usersCollection).Doc(userID).Get(ctx)
	require.NoError(t, err)
	data := snap.Data()
	assert.Equal(t, []interface{}{map[string]interface{}{"id": "AAMk1", "subject": "Review"}}, data["outlook_calendars"])
	assert.Equal(t, "m-rt-2", data["microsoft"].(map[string]interface{})["refresh_token"])

	_, err = repo.FindByID(ctx, "missing-"+uuid.NewString())
	var persistErr *domain.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.True(t, errors.Is(err, domain.ErrUserDocumentNotFound))
}

func TestFirestoreLeaseRepository_Emulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	repo := NewFirestoreLeaseRepository(client)
	name := "lease-" + uuid.NewString()

	require.NoError(t, repo.Acquire(ctx, name, "holder-a", time.Hour))
	assert.ErrorIs(t, repo.Acquire(ctx, name, "holder-b", time.Hour), domain.ErrRunInProgress)

	// a non-owner release leaves the lease in place
	require.NoError(t, repo.Release(ctx, name, "holder-b"))
	assert.ErrorIs(t, repo.Acquire(ctx, name, "holder-b", time.Hour), domain.ErrRunInProgress)

	require.NoError(t, repo.Release(ctx, name, "holder-a"))
	require.NoError(t, repo.Acquire(ctx, name, "holder-b", time.Hour))
}

func TestFirestoreLeaseRepository_ExpiryAndRenewal_Emulator(t *testing.T) {
	client := newEmulatorClient(t)
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &firestoreLeaseRepository{client: client, now: func() time.Time { return clock }}
	name := "lease-" + uuid.NewString()
	ttl := 30 * time.Minute

	require.NoError(t, repo.Acquire(ctx, name, "holder-a", ttl))

	// renewed at 20m, so still held at 40m
	clock = clock.Add(20 * time.Minute)
	require.NoError(t, repo.Acquire(ctx, name, "holder-a", ttl))
	clock = clock.Add(20 * time.Minute)
	assert.ErrorIs(t, repo.Acquire(ctx, name, "holder-b", ttl), domain.ErrRunInProgress)

	// holder-a stops renewing and the lease lapses
	clock = clock.Add(11 * time.Minute)
	require.NoError(t, repo.Acquire(ctx, name, "holder-b", ttl))
	assert.ErrorIs(t, repo.Acquire(ctx, name, "holder-a", ttl), domain.ErrRunInProgress)
}
