// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sameboatplatform/sameboat/internal/auth"
)

// UserRepository implements auth.UserRepository using PostgreSQL. The
// case-insensitive unique index on users.email is the authority for
// duplicate detection; Create maps its violation to auth.ErrEmailTaken.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, avatar_url, bio, timezone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.AvatarURL,
		user.Bio,
		user.Timezone,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, avatar_url, bio, timezone, role, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, avatar_url, bio, timezone, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, display_name = $3, avatar_url = $4, bio = $5, timezone = $6, role = $7, updated_at = $8
		WHERE id = $1
	`,
		user.ID.String(),
		user.PasswordHash,
		user.DisplayName,
		user.AvatarURL,
		user.Bio,
		user.Timezone,
		user.Role,
		user.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", user.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", user.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User. Callers handle pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr     string
		u         auth.User
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Bio, &u.Timezone, &u.Role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	u.ID = id
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return &u, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
