package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/dbx"
	"github.com/basketlog/auth-service/internal/server/models"
)

// PostgresRepository implements CRUD operations for users over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, fullname)
		VALUES ($1, $2, $3)
		RETURNING id, is_verified, role, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.FullName).
		Scan(&user.ID, &user.IsVerified, &user.Role, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, common.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, fullname, is_verified, role, created_at
		FROM users
		WHERE id = $1
	`
	return r.scanRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, fullname, is_verified, role, created_at
		FROM users
		WHERE email = $1
	`
	return r.scanRow(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateEmail resets the verification flag in the same statement: the new
// address has not been confirmed yet.
func (r *PostgresRepository) UpdateEmail(ctx context.Context, id int64, email string) error {
	query := `
		UPDATE users
		SET email = $2, is_verified = FALSE
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, email); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return common.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetVerified(ctx context.Context, email string) error {
	query := `
		UPDATE users
		SET is_verified = TRUE
		WHERE email = $1
	`
	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanRow(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsVerified, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
