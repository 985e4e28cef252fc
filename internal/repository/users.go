// Package repository provides PostgreSQL persistence for users and catalog entries.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/globify/internal/dbx"
	"github.com/atinyakov/globify/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, username, email, hashed_password, is_verified, verify_token, avatar_url, bio, created_at`

// PostgresUserRepository implements user persistence on PostgreSQL.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sqlx.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// CreateUser inserts u and returns its new ID. The existence check and the
// insert share one transaction; a taken username or email, including one
// inserted concurrently, yields models.ErrConflict.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	var id int64
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists bool
		if err := sqlx.GetContext(ctx, tx, &exists,
			`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
			u.Username, u.Email,
		); err != nil {
			return fmt.Errorf("CreateUser check: %w", err)
		}
		if exists {
			return models.ErrConflict
		}

		err := sqlx.GetContext(ctx, tx, &id, `
			INSERT INTO users (username, email, hashed_password, is_verified, verify_token)
			VALUES ($1, $2, $3, FALSE, $4)
			RETURNING id
		`, u.Username, u.Email, u.PasswordHash, u.VerifyToken)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("CreateUser insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByUsername returns the user with the given username,
// or models.ErrNotFound.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByUsername failed: %w", err)
	}
	return &u, nil
}

// VerifyByToken marks the holder of token as verified and clears the token.
// Unknown or already redeemed tokens yield models.ErrInvalidToken.
func (r *PostgresUserRepository) VerifyByToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", models.ErrInvalidToken
	}

	var username string
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var row struct {
			ID       int64  `db:"id"`
			Username string `db:"username"`
		}
		err := sqlx.GetContext(ctx, tx, &row,
			`SELECT id, username FROM users WHERE verify_token = $1 FOR UPDATE`, token)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("VerifyByToken lookup: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET is_verified = TRUE, verify_token = '' WHERE id = $1`, row.ID,
		); err != nil {
			return fmt.Errorf("VerifyByToken update: %w", err)
		}
		username = row.Username
		return nil
	})
	if err != nil {
		return "", err
	}
	return username, nil
}

// UpdateProfile sets the bio of user id and, when avatarURL is non-nil, its
// avatar. It returns the avatar URL that was stored before the update.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id int64, bio string, avatarURL *string) (string, error) {
	var previous string
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := sqlx.GetContext(ctx, tx, &previous,
			`SELECT avatar_url FROM users WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("UpdateProfile lookup: %w", err)
		}

		if avatarURL != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET bio = $1, avatar_url = $2 WHERE id = $3`, bio, *avatarURL, id)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET bio = $1 WHERE id = $2`, bio, id)
		}
		if err != nil {
			return fmt.Errorf("UpdateProfile update: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
