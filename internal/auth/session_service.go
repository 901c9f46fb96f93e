// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionService encapsulates session lifecycle: creation, read-time
// expiry filtering, last-seen touches, invalidation and the bulk expiry
// sweep. Expiry is evaluated against the injected Clock on every read;
// the store schema never enforces it.
type SessionService struct {
	sessions SessionRepository
	clock    Clock
	logger   *slog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions SessionRepository, clock Clock, logger *slog.Logger) (*SessionService, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{sessions: sessions, clock: clock, logger: logger}, nil
}

// Create mints and persists a new session for the user. The persisted
// record is immediately visible to a follow-up read in the same flow.
func (s *SessionService) Create(ctx context.Context, userID ulid.ULID, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").Errorf("ttl must be positive, got %s", ttl)
	}

	now := s.clock.Now().UTC()
	// The session id doubles as the bearer token, so its entropy must
	// come from crypto/rand; ulid.Make's math/rand entropy is guessable.
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session id").
			Wrap(err)
	}

	session := &Session{
		ID:         id,
		UserID:     userID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.Debug("session created",
		"user_id", userID.String(),
		"expires_at", session.ExpiresAt)
	return session, nil
}

// FindValid returns the session if it exists and is not expired at the
// current clock reading. Absent and expired both yield (nil, nil).
func (s *SessionService) FindValid(ctx context.Context, id ulid.ULID) (*Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").Wrap(err)
	}
	if session.IsExpiredAt(s.clock.Now()) {
		return nil, nil
	}
	return session, nil
}

// Touch updates the session's last-seen timestamp. Best-effort: a
// failure is logged and swallowed, never fatal to the request.
func (s *SessionService) Touch(ctx context.Context, session *Session) {
	now := s.clock.Now().UTC()
	if err := s.sessions.UpdateLastSeen(ctx, session.ID, now); err != nil {
		s.logger.Warn("session touch failed",
			"user_id", session.UserID.String(),
			"error", err)
		return
	}
	session.LastSeenAt = now
}

// Invalidate deletes the session named by the token. A token that does
// not parse as a ULID, or one with no stored session, is a no-op.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	id, err := ulid.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

// PruneExpired bulk-deletes every session whose expiry is before now
// and returns the count. Safe to run concurrently with normal reads and
// writes; missing a run is harmless because expiry is re-checked on
// every read anyway.
func (s *SessionService) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.sessions.DeleteExpiredBefore(ctx, now)
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").Wrap(err)
	}
	if deleted > 0 {
		s.logger.Info("pruned expired sessions", "deleted", deleted)
	}
	return deleted, nil
}
