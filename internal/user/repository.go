package user

import (
	"context"
	"errors"
)

// ErrEmailTaken reports an insert that lost the uniqueness race on email.
// The service recovers from it by re-reading; it never reaches callers.
var ErrEmailTaken = errors.New("user: email already registered")

// Repository defines user persistence. Create runs inside a single
// transaction and must surface a uniqueness violation as ErrEmailTaken.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u User) error
}
