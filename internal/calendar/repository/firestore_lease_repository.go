package repository

import (
	"context"
	"time"

	"calsync/internal/calendar/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const locksCollection = "locks"

type lease struct {
	Holder     string    `firestore:"holder"`
	AcquiredAt time.Time `firestore:"acquired_at"`
	ExpiresAt  time.Time `firestore:"expires_at"`
}

// firestoreLeaseRepository implements LeaseRepository with one document per lease
type firestoreLeaseRepository struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreLeaseRepository creates a new instance of firestoreLeaseRepository
func NewFirestoreLeaseRepository(client *firestore.Client) LeaseRepository {
	return &firestoreLeaseRepository{client: client, now: time.Now}
}

func (r *firestoreLeaseRepository) Acquire(ctx context.Context, name, holder string, ttl time.Duration) error {
	ref := r.client.Collection(locksCollection).Doc(name)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := r.now()

		current, err := readLease(tx, ref)
		if err != nil {
			return err
		}
		if current != nil && current.Holder != holder && now.Before(current.ExpiresAt) {
			return domain.ErrRunInProgress
		}

		return tx.Set(ref, lease{
			Holder:     holder,
			AcquiredAt: now,
			ExpiresAt:  now.Add(ttl),
		})
	})
}

func (r *firestoreLeaseRepository) Release(ctx context.Context, name, holder string) error {
	ref := r.client.Collection(locksCollection).Doc(name)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := readLease(tx, ref)
		if err != nil {
			return err
		}
		if current == nil || current.Holder != holder {
			return nil
		}
		return tx.Delete(ref)
	})
}

func readLease(tx *firestore.Transaction, ref *firestore.DocumentRef) (*lease, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	if !snap.Exists() {
		return nil, nil
	}

	var l lease
	if err := snap.DataTo(&l); err != nil {
		return nil, err
	}
	return &l, nil
}
