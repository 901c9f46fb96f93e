// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sameboatplatform/sameboat/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, last_seen_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.ID.String(),
		session.UserID.String(),
		session.CreatedAt,
		session.LastSeenAt,
		session.ExpiresAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by id. Expiry is the caller's concern; the
// row comes back regardless of expires_at.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, created_at, last_seen_at, expires_at
		FROM sessions
		WHERE id = $1
	`, id.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by id").
			Wrap(err)
	}
	return session, nil
}

// UpdateLastSeen stamps the session's last-seen timestamp.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE sessions SET last_seen_at = $2 WHERE id = $1
	`, id.String(), lastSeen)
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").
			With("operation", "update last seen").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session. Deleting an absent id returns ErrNotFound.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpiredBefore bulk-deletes sessions that expired before the
// cutoff and returns how many rows went away.
func (r *SessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session. Callers handle
// pgx.ErrNoRows.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr     string
		userIDStr string
		s         auth.Session
	)

	err := row.Scan(&idStr, &userIDStr, &s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("user_id", userIDStr).
			Wrap(err)
	}

	s.ID = id
	s.UserID = userID
	return &s, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
