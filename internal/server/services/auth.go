package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/dbx"
	"github.com/basketlog/auth-service/internal/server/models"
	"github.com/basketlog/auth-service/internal/server/repositories/repomanager"
)

// AuthService handles account lifecycle: registration, login, credential
// changes, and email verification status.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager) *AuthService {
	return &AuthService{db: db, repomanager: m}
}

// Register creates a new user with a bcrypt password hash. A taken email
// yields common.ErrUserAlreadyExists.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: string(hash), FullName: fullName}
	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return nil, common.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// Login verifies the email/password pair. Both an unknown email and a wrong
// password yield common.ErrInvalidCredentials so existence does not leak.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the user's password hash after checking the old
// password, and revokes the user's refresh token in the same transaction so
// other sessions must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotExist
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return common.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, userID, string(hash)); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		return nil
	})
}

// ChangeEmail updates the user's email after checking the password. The
// verification flag resets together with the email.
func (s *AuthService) ChangeEmail(ctx context.Context, userID int64, password, newEmail string) error {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotExist
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return common.ErrInvalidCredentials
	}

	if err := s.repomanager.Users(s.db).UpdateEmail(ctx, userID, newEmail); err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return common.ErrUserAlreadyExists
		}
		return fmt.Errorf("error updating email: %w", err)
	}
	return nil
}

// VerifyUserByEmail marks the account with the given email as verified.
func (s *AuthService) VerifyUserByEmail(ctx context.Context, email string) error {
	if err := s.repomanager.Users(s.db).SetVerified(ctx, email); err != nil {
		return fmt.Errorf("error verifying user: %w", err)
	}
	return nil
}

// FindUserByID looks up a user by id, mapping an absent row to
// common.ErrUserNotExist.
func (s *AuthService) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotExist
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}
