// Package users declares the repository contract for account records.
package users

import (
	"context"

	"github.com/basketlog/auth-service/internal/server/models"
)

type Repository interface {
	// Create inserts a new user and returns it with the generated id.
	// A duplicate email yields common.ErrUserAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByID returns the user with the given id, or common.ErrorNotFound.
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// FindByEmail returns the user with the given email, or common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateEmail changes the email and resets the verification flag.
	UpdateEmail(ctx context.Context, id int64, email string) error

	// SetVerified marks the user with the given email as verified.
	SetVerified(ctx context.Context, email string) error
}
