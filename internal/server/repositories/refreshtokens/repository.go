// Package refreshtokens declares the repository contract for the durable
// ledger of live refresh tokens: at most one row per user.
package refreshtokens

import (
	"context"
	"time"

	"github.com/basketlog/auth-service/internal/server/models"
)

// Repository is the single source of truth for refresh-token liveness.
type Repository interface {
	// Upsert inserts or replaces the row keyed by userID in one atomic
	// statement, so concurrent writers for the same user are serialized by
	// the storage layer (last writer wins).
	Upsert(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Find returns the row for the given token string, or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// FindByUser returns the user's row, or common.ErrorNotFound.
	FindByUser(ctx context.Context, userID int64) (*models.RefreshToken, error)

	// IsValid reports whether a row exists for token and its expiry is still
	// in the future. An expired row that has not been garbage-collected is
	// not valid.
	IsValid(ctx context.Context, token string) (bool, error)

	// Delete removes the row for token. Deleting a non-existent token is not
	// an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes the user's row, if any.
	DeleteByUser(ctx context.Context, userID int64) error
}
