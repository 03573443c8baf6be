// Package user holds the local user record, the store collaborator
// interface, and the idempotent provisioning of users from federated
// identities.
package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no user exists for the lookup key.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when an insert would violate the unique
// email constraint. Concurrent first logins for the same email resolve
// through this error rather than in-process locking.
var ErrDuplicateEmail = errors.New("email already registered")

// User is the local user record.
type User struct {
	ID             uuid.UUID `json:"id" firestore:"id"`
	Email          string    `json:"email" firestore:"email"`
	FullName       string    `json:"fullName" firestore:"full_name"`
	PictureURL     string    `json:"pictureUrl,omitempty" firestore:"picture_url"`
	EmailConfirmed bool      `json:"emailConfirmed" firestore:"email_confirmed"`
	CreatedAt      time.Time `json:"createdAt" firestore:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" firestore:"updated_at"`
}

// Store is the durable-user collaborator. Implementations must enforce
// email uniqueness on Create.
type Store interface {
	// FindByEmail looks up a user by normalized email, ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a new user, ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, u *User) (*User, error)

	// Update overwrites an existing user record.
	Update(ctx context.Context, u *User) (*User, error)
}
