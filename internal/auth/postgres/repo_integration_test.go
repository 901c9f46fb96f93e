// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sameboatplatform/sameboat/internal/auth"
	"github.com/sameboatplatform/sameboat/internal/auth/postgres"
)

func createTestUser(ctx context.Context, t *testing.T, email string) *auth.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		DisplayName:  email,
		Role:         auth.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	repo := postgres.NewUserRepository(testPool)
	require.NoError(t, repo.Create(ctx, user))

	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID.String())
	})
	return user
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	t.Run("round trip by email and id", func(t *testing.T) {
		user := createTestUser(ctx, t, "roundtrip@example.com")

		byEmail, err := repo.GetByEmail(ctx, "roundtrip@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		user := createTestUser(ctx, t, "mixedcase@example.com")

		found, err := repo.GetByEmail(ctx, "MixedCase@Example.COM")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("duplicate email violates the unique index regardless of case", func(t *testing.T) {
		createTestUser(ctx, t, "unique@example.com")

		now := time.Now().UTC()
		dupe := &auth.User{
			ID:           ulid.Make(),
			Email:        "UNIQUE@example.com",
			PasswordHash: "hash",
			DisplayName:  "dupe",
			Role:         auth.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err := repo.Create(ctx, dupe)
		require.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("update persists profile changes", func(t *testing.T) {
		user := createTestUser(ctx, t, "update@example.com")

		user.DisplayName = "Renamed"
		user.Timezone = "Europe/Berlin"
		user.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.Update(ctx, user))

		stored, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.DisplayName)
		assert.Equal(t, "Europe/Berlin", stored.Timezone)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, ulid.Make())
		require.ErrorIs(t, err, auth.ErrNotFound)

		_, err = repo.GetByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)

	newSession := func(t *testing.T, userID ulid.ULID, ttl time.Duration) *auth.Session {
		t.Helper()
		now := time.Now().UTC().Truncate(time.Microsecond)
		session := &auth.Session{
			ID:         ulid.Make(),
			UserID:     userID,
			CreatedAt:  now,
			LastSeenAt: now,
			ExpiresAt:  now.Add(ttl),
		}
		require.NoError(t, repo.Create(ctx, session))
		t.Cleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, session.ID.String())
		})
		return session
	}

	t.Run("round trip", func(t *testing.T) {
		user := createTestUser(ctx, t, "sess-roundtrip@example.com")
		session := newSession(t, user.ID, time.Hour)

		stored, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.UserID, stored.UserID)
		assert.Equal(t, session.ExpiresAt, stored.ExpiresAt)
	})

	t.Run("touch updates last seen", func(t *testing.T) {
		user := createTestUser(ctx, t, "sess-touch@example.com")
		session := newSession(t, user.ID, time.Hour)

		lastSeen := session.LastSeenAt.Add(10 * time.Minute)
		require.NoError(t, repo.UpdateLastSeen(ctx, session.ID, lastSeen))

		stored, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, lastSeen, stored.LastSeenAt)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		user := createTestUser(ctx, t, "sess-delete@example.com")
		session := newSession(t, user.ID, time.Hour)

		require.NoError(t, repo.Delete(ctx, session.ID))
		_, err := repo.GetByID(ctx, session.ID)
		require.ErrorIs(t, err, auth.ErrNotFound)

		require.ErrorIs(t, repo.Delete(ctx, session.ID), auth.ErrNotFound)
	})

	t.Run("prune deletes only expired sessions", func(t *testing.T) {
		user := createTestUser(ctx, t, "sess-prune@example.com")
		expired := newSession(t, user.ID, -time.Hour)
		live := newSession(t, user.ID, time.Hour)

		deleted, err := repo.DeleteExpiredBefore(ctx, time.Now().UTC())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(1))

		_, err = repo.GetByID(ctx, expired.ID)
		require.ErrorIs(t, err, auth.ErrNotFound)

		_, err = repo.GetByID(ctx, live.ID)
		require.NoError(t, err)
	})

	t.Run("deleting the user cascades to sessions", func(t *testing.T) {
		user := createTestUser(ctx, t, "sess-cascade@example.com")
		session := newSession(t, user.ID, time.Hour)

		_, err := testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID.String())
		require.NoError(t, err)

		_, err = repo.GetByID(ctx, session.ID)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}
