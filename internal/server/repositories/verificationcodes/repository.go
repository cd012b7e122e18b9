// Package verificationcodes stores short-lived email verification codes.
package verificationcodes

import (
	"context"
	"time"
)

type Repository interface {
	// Set stores the code for email with the given time-to-live, replacing any
	// outstanding code for the same address.
	Set(ctx context.Context, email, code string, ttl time.Duration) error

	// Get returns the stored code, or common.ErrorNotFound when no code is
	// outstanding (never stored or already expired).
	Get(ctx context.Context, email string) (string, error)

	// Delete removes the stored code. Deleting an absent code is not an error.
	Delete(ctx context.Context, email string) error
}
