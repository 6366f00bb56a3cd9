package user

import (
	"context"
	"sync"
)

// InMemoryRepository stores users in an in-process map keyed by email,
// ideal for local development or tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]User
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byEmail: make(map[string]User)}
}

// FindByEmail returns the user owning the email, or nil.
func (r *InMemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Create stores a new user, enforcing email uniqueness the way the
// database unique index does.
func (r *InMemoryRepository) Create(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	r.byEmail[u.Email] = u
	return nil
}

// Len returns the number of stored users.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}
