// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sameboatplatform/sameboat/internal/auth"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memUserRepo is an in-memory UserRepository with case-insensitive email
// uniqueness, mirroring the database index.
type memUserRepo struct {
	mu        sync.Mutex
	byID      map[ulid.ULID]*auth.User
	createErr error
	getErr    error
	updateErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[ulid.ULID]*auth.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if auth.NormalizeEmail(existing.Email) == auth.NormalizeEmail(user.Email) {
			return auth.ErrEmailTaken
		}
	}
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if auth.NormalizeEmail(u.Email) == auth.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[user.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

// memSessionRepo is an in-memory SessionRepository.
type memSessionRepo struct {
	mu        sync.Mutex
	byID      map[ulid.ULID]*auth.Session
	createErr error
	getErr    error
	touchErr  error
	deleteErr error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: make(map[ulid.ULID]*auth.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *session
	r.byID[session.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.touchErr != nil {
		return r.touchErr
	}
	s, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	s.LastSeenAt = lastSeen
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.byID[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memSessionRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var deleted int64
	for id, s := range r.byID {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
