package repository

import (
	"sync"
	"time"

	authdomain "calsync/internal/auth/domain"
)

// StateRepository tracks issued OAuth states so each can be redeemed once.
type StateRepository interface {
	Save(state *authdomain.AuthState) error
	// Consume removes the state and reports whether it was pending and unexpired.
	Consume(id string, now time.Time) (bool, error)
}

// memoryStateRepository implements StateRepository in process memory.
// Pending states are lost on restart and not shared between instances.
type memoryStateRepository struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewMemoryStateRepository creates a new instance of memoryStateRepository
func NewMemoryStateRepository() StateRepository {
	return &memoryStateRepository{
		states: make(map[string]time.Time),
	}
}

func (r *memoryStateRepository) Save(state *authdomain.AuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(time.Now())
	r.states[state.ID] = state.ExpiresAt
	return nil
}

func (r *memoryStateRepository) Consume(id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.states[id]
	if !ok {
		return false, nil
	}
	delete(r.states, id)
	return now.Before(expiresAt), nil
}

func (r *memoryStateRepository) pruneLocked(now time.Time) {
	for id, expiresAt := range r.states {
		if !now.Before(expiresAt) {
			delete(r.states, id)
		}
	}
}
