package repository

import (
	"context"

	"calsync/internal/calendar/domain"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
)

// firebaseDirectory implements UserDirectory over Firebase Auth
type firebaseDirectory struct {
	client *auth.Client
}

// NewFirebaseDirectory creates a directory backed by the Firebase Auth user list
func NewFirebaseDirectory(client *auth.Client) UserDirectory {
	return &firebaseDirectory{client: client}
}

func (d *firebaseDirectory) ListUsers(ctx context.Context, pageSize int, pageToken string) ([]domain.User, string, error) {
	pager := iterator.NewPager(d.client.Users(ctx, ""), pageSize, pageToken)

	var records []*auth.ExportedUserRecord
	nextPageToken, err := pager.NextPage(&records)
	if err != nil {
		return nil, "", err
	}

	users := make([]domain.User, 0, len(records))
	for _, record := range records {
		users = append(users, toUser(record.UserRecord))
	}
	return users, nextPageToken, nil
}

func toUser(record *auth.UserRecord) domain.User {
	user := domain.User{}
	if record == nil {
		return user
	}
	if record.UserInfo != nil {
		user.UID = record.UID
		user.Email = record.Email
	}
	for _, info := range record.ProviderUserInfo {
		if info != nil {
			user.ProviderIDs = append(user.ProviderIDs, info.ProviderID)
		}
	}
	return user
}
