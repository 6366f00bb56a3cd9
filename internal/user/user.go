package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a local account reconciled from a verified external identity.
// Accounts created through single sign-on never hold a password hash.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
