// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultSessionTTL is the session lifetime applied when configuration
// does not override it.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session represents an authenticated browser session. The ULID id is
// also the bearer token handed to the client; no separate secret is
// stored. Timestamps are UTC.
type Session struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// Token returns the canonical string form of the session id, the value
// carried in the session cookie.
func (s *Session) Token() string {
	return s.ID.String()
}

// IsExpiredAt reports whether the session is expired at the given
// instant. A session is valid only while ExpiresAt is strictly in the
// future; at the expiry instant itself it is already invalid.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.After(t)
}

// SessionRepository manages session persistence. Writes must be visible
// to an immediately following read in the same request flow.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error

	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// Delete removes a session. Deleting an id that does not exist
	// returns ErrNotFound; callers that want idempotent semantics
	// (logout) swallow it.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpiredBefore removes all sessions with expires_at earlier
	// than the cutoff in one bulk statement and returns the count.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
