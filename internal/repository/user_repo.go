package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-contacts-api/internal/database"
	"go-contacts-api/internal/model"
)

const userColumns = `id, username, email, password_hash, role, confirmed, refresh_token, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Confirmed,
		&u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	return u, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, confirmed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.Confirmed, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateRefreshToken overwrites the stored refresh token; nil clears it.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, userID string, token *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken replaces presented with next only while presented is
// still the stored value. The row is locked for the duration of the check.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID string, presented string, next string) (bool, error) {
	rotated := false
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current *string
		err := tx.QueryRow(ctx,
			`SELECT refresh_token FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user row: %w", err)
		}

		if current == nil || *current != presented {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
			userID, next, time.Now().UTC()); err != nil {
			return fmt.Errorf("store rotated refresh token: %w", err)
		}
		rotated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return rotated, nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET confirmed = TRUE, updated_at = $2 WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and revokes the live refresh token.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, refresh_token = NULL, updated_at = $3 WHERE id = $1`,
		userID, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
