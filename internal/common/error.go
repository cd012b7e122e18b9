// Package common defines shared constants and sentinel errors used across
// the auth service. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Credential errors surfaced by the guard and token service.
	ErrTokenMissing        = errors.New("token missing")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or expired")

	// Account errors.
	ErrUserNotExist        = errors.New("user does not exist")
	ErrUserNotVerified     = errors.New("user is not verified")
	ErrUserAlreadyVerified = errors.New("user is already verified")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrForbiddenAccess     = errors.New("access to this resource is forbidden")

	// Email verification errors.
	ErrVerificationCodeExpired = errors.New("verification code invalid or expired")
)
