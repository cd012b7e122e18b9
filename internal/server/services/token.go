// Package services contains server-side business logic: token issuance and
// refresh, account registration and login, and email verification.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/keys"
	"github.com/basketlog/auth-service/internal/server/config"
	"github.com/basketlog/auth-service/internal/server/repositories/repomanager"
	"github.com/basketlog/auth-service/internal/token"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService orchestrates issuance, refresh, and revocation of tokens using
// the key store for signing material and the refresh-token ledger for
// refresh-token liveness.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	keys                         *keys.Store
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewTokenService constructs a TokenService from explicit collaborators and
// server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, ks *keys.Store, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		keys:                         ks,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// IssueAccessToken mints a short-lived access token for userID. Access tokens
// are stateless and never stored.
func (s *TokenService) IssueAccessToken(userID int64) (string, error) {
	expiresAt := time.Now().Add(s.accessTokenValidityDuration)
	tok, err := token.Encode(userID, token.ClassAccess, expiresAt, s.keys.Signer(token.ClassAccess))
	if err != nil {
		return "", fmt.Errorf("error signing access token: %w", err)
	}
	return tok, nil
}

// IssueOrReuseRefreshToken returns the user's live refresh token verbatim when
// one exists, avoiding refresh-token churn on rapid re-login. Otherwise it
// mints a new one and records it in the ledger, replacing any expired row.
func (s *TokenService) IssueOrReuseRefreshToken(ctx context.Context, userID int64) (string, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	record, err := repo.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("error searching refresh token: %w", err)
	}
	if err == nil && record.Expires.After(time.Now()) {
		return record.Token, nil
	}

	expiresAt := time.Now().Add(s.refreshTokenValidityDuration)
	tok, err := token.Encode(userID, token.ClassRefresh, expiresAt, s.keys.Signer(token.ClassRefresh))
	if err != nil {
		return "", fmt.Errorf("error signing refresh token: %w", err)
	}

	if err := repo.Upsert(ctx, userID, tok, expiresAt); err != nil {
		return "", fmt.Errorf("error storing refresh token: %w", err)
	}
	return tok, nil
}

// IssueTokenPair is the single entry point called on login and registration.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID int64) (*TokenPair, error) {
	accessToken, err := s.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.IssueOrReuseRefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshAccessToken mints a fresh access token for the subject of a live
// refresh token. The ledger is the only place refresh-token validity is
// computed; an absent, expired, or tampered refresh token yields
// common.ErrRefreshTokenInvalid. The refresh token itself is left untouched.
func (s *TokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	valid, err := repo.IsValid(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("error checking refresh token: %w", err)
	}
	if !valid {
		return "", common.ErrRefreshTokenInvalid
	}

	claims, err := token.DecodeWithCandidates(refreshToken, s.keys.VerificationKeys(token.ClassRefresh), token.ClassRefresh)
	if err != nil {
		return "", common.ErrRefreshTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", common.ErrRefreshTokenInvalid
	}

	return s.IssueAccessToken(userID)
}

// Revoke deletes the ledger record for refreshToken. Revoking a token that
// was never issued, or revoking twice, is not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}
