package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service reconciles verified external identities into local user records.
type Service struct {
	repo Repository
}

// NewService creates a user Service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetOrCreate returns the user owning the given email, creating the record
// on first authentication. Existing rows are returned unmodified: a login
// never refreshes name or creation date. Under a race between two first
// authentications for the same email, the losing insert is recovered by
// re-reading the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, name, email string, observedAt time.Time) (*User, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	newUser := User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: "",
		CreatedAt:    observedAt,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			winner, findErr := s.repo.FindByEmail(ctx, email)
			if findErr != nil {
				return nil, fmt.Errorf("re-read after duplicate insert: %w", findErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("duplicate insert but no row for %q: %w", email, err)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &newUser, nil
}
