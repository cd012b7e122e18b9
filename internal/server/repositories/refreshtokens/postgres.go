package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/dbx"
	"github.com/basketlog/auth-service/internal/server/models"
)

// PostgresRepository implements the ledger over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert relies on the database's native conflict handling rather than a
// read-then-write pair, which would race under concurrent logins.
func (r *PostgresRepository) Upsert(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Find returns the refresh token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT user_id, token, created_at, expires_at
		FROM refresh_tokens
		WHERE token = $1
	`
	return r.scanRow(r.db.QueryRowContext(ctx, query, token))
}

// FindByUser returns the refresh token row for the given user id.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindByUser(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	query := `
		SELECT user_id, token, created_at, expires_at
		FROM refresh_tokens
		WHERE user_id = $1
	`
	return r.scanRow(r.db.QueryRowContext(ctx, query, userID))
}

// IsValid computes validity in SQL so the row lookup and the expiry check
// share one consistent notion of "now".
func (r *PostgresRepository) IsValid(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens
			WHERE token = $1 AND expires_at > now()
		)
	`
	var valid bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&valid); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return valid, nil
}

// Delete removes a refresh token by its token string.
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByUser removes the refresh token row of the given user.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanRow(row *sql.Row) (*models.RefreshToken, error) {
	refreshToken := &models.RefreshToken{}
	if err := row.Scan(&refreshToken.UserID, &refreshToken.Token, &refreshToken.CreatedAt, &refreshToken.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return refreshToken, nil
}
