// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RoleUser is the role assigned to accounts at registration.
const RoleUser = "user"

// User represents a registered account.
type User struct {
	ID           ulid.ULID
	Email        string // always stored normalized
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	Bio          string
	Timezone     string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Lowercasing is ASCII-only so the result is locale-independent; the
// function is pure and idempotent.
func NormalizeEmail(email string) string {
	trimmed := strings.TrimSpace(email)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, trimmed)
}

// ProfileUpdate carries a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
	Timezone    *string
}

// Apply copies the non-nil fields onto the user and bumps UpdatedAt.
func (u *User) Apply(update ProfileUpdate, now time.Time) {
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Timezone != nil {
		u.Timezone = *update.Timezone
	}
	u.UpdatedAt = now
}

// UserRepository manages account persistence. Implementations must
// enforce a case-insensitive unique constraint on email; Create returns
// ErrEmailTaken when it is violated.
type UserRepository interface {
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	Update(ctx context.Context, user *User) error
}
