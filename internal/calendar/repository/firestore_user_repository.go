package repository

import (
	"context"
	"fmt"

	"calsync/internal/calendar/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

// Stored credential fields may hold either of these keys.
var refreshTokenKeys = []string{"refresh_token", "refreshToken"}

// firestoreUserRepository implements UserRepository over the users collection
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

func (r *firestoreUserRepository) FindByID(ctx context.Context, userID string) (*domain.UserDocument, error) {
	snap, err := r.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, &domain.PersistenceError{UserID: userID, Op: "read", Err: domain.ErrUserDocumentNotFound}
		}
		return nil, &domain.PersistenceError{UserID: userID, Op: "read", Err: err}
	}

	doc, err := parseUserDocument(userID, snap.Data())
	if err != nil {
		return nil, &domain.PersistenceError{UserID: userID, Op: "read", Err: err}
	}
	return doc, nil
}

func (r *firestoreUserRepository) UpdateCalendar(ctx context.Context, userID string, provider domain.Provider, events []domain.Event) error {
	field := provider.CalendarField()
	if field == "" {
		return &domain.PersistenceError{UserID: userID, Op: "write", Err: fmt.Errorf("unknown provider %q", provider)}
	}

	values := make([]map[string]interface{}, 0, len(events))
	for _, event := range events {
		values = append(values, map[string]interface{}(event))
	}

	_, err := r.doc(userID).Update(ctx, []firestore.Update{{Path: field, Value: values}})
	if err != nil {
		return &domain.PersistenceError{UserID: userID, Op: "write " + field, Err: err}
	}
	return nil
}

func (r *firestoreUserRepository) UpdateRefreshToken(ctx context.Context, userID string, cred *domain.Credential, refreshToken string) error {
	if cred == nil || refreshToken == "" || cred.FieldPath == "" {
		return nil
	}

	_, err := r.doc(userID).Update(ctx, []firestore.Update{{Path: cred.FieldPath, Value: refreshToken}})
	if err != nil {
		return &domain.PersistenceError{UserID: userID, Op: "write " + cred.FieldPath, Err: err}
	}
	return nil
}

// parseUserDocument maps raw document data onto a UserDocument.
func parseUserDocument(userID string, data map[string]interface{}) (*domain.UserDocument, error) {
	if data == nil {
		return nil, domain.ErrMalformedDocument
	}

	doc := &domain.UserDocument{
		ID:          userID,
		Credentials: make(map[domain.Provider]*domain.Credential),
	}
	if email, ok := data["email"].(string); ok {
		doc.Email = email
	}

	for _, provider := range []domain.Provider{domain.ProviderGoogle, domain.ProviderMicrosoft} {
		cred, err := parseCredential(string(provider), data[string(provider)])
		if err != nil {
			return nil, err
		}
		if cred != nil {
			doc.Credentials[provider] = cred
		}
	}
	return doc, nil
}

func parseCredential(field string, value interface{}) (*domain.Credential, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return &domain.Credential{RefreshToken: v, FieldPath: field}, nil
	case map[string]interface{}:
		for _, key := range refreshTokenKeys {
			raw, present := v[key]
			if !present {
				continue
			}
			token, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s is %T", domain.ErrMalformedDocument, field, key, raw)
			}
			return &domain.Credential{RefreshToken: token, FieldPath: field + "." + key}, nil
		}
		return &domain.Credential{FieldPath: field + "." + refreshTokenKeys[0]}, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T", domain.ErrMalformedDocument, field, value)
	}
}
