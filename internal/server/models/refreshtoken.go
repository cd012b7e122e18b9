package models

import "time"

// RefreshToken mirrors the single live refresh token per user. The row being
// present does not imply validity: Expires must still be in the future.
type RefreshToken struct {
	UserID    int64
	Token     string
	CreatedAt time.Time
	Expires   time.Time
}
