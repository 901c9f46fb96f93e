// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Config carries the orchestrator's recognized options.
type Config struct {
	// SessionTTL is the lifetime of newly minted sessions.
	SessionTTL time.Duration

	// DevAutoCreate, when enabled, auto-creates an account on login if
	// the supplied password equals StubPassword. Dev/test convenience only.
	DevAutoCreate bool
	StubPassword  string

	PasswordPolicy PasswordPolicy
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks: verification still runs so response time stays consistent.
// This is NOT a real credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Principal identifies the authenticated caller attached to a request.
type Principal struct {
	UserID ulid.ULID
	Email  string
	Role   string
}

// Service composes the credential verifier, rate limiter and session
// service into register/login/logout flows.
type Service struct {
	users    UserRepository
	sessions *SessionService
	hasher   PasswordHasher
	limiter  *RateLimiter
	clock    Clock
	cfg      Config
	logger   *slog.Logger
}

// NewService creates the auth orchestrator.
func NewService(users UserRepository, sessions *SessionService, hasher PasswordHasher, limiter *RateLimiter, clock Clock, cfg Config, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if limiter == nil {
		return nil, oops.Errorf("rate limiter is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		limiter:  limiter,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// RateLimitKey builds the limiter key for a login attempt: normalized
// email plus the client origin identifier (remote IP).
func RateLimitKey(normalizedEmail, origin string) string {
	return normalizedEmail + "|" + origin
}

// Register creates a new account and mints a session for it. A
// normalized email that is already registered yields AUTH_EMAIL_EXISTS.
// Registration is intentionally not rate limited.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Session, *User, error) {
	emailNorm := NormalizeEmail(email)

	// Fast-path duplicate check; the unique index is the authority.
	if _, err := s.users.GetByEmail(ctx, emailNorm); err == nil {
		return nil, nil, oops.Code(CodeEmailExists).Errorf("email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "lookup email").
			Wrap(err)
	}

	user, err := s.createUser(ctx, emailNorm, password, displayName)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Create(ctx, user.ID, s.cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("registration success",
		"user_id", user.ID.String(),
		"email", user.Email)
	return session, user, nil
}

// Login authenticates the credentials and mints a session. Unknown email
// and wrong password produce the same AUTH_BAD_CREDENTIALS signal to
// avoid account enumeration; a limited key produces AUTH_RATE_LIMITED
// without touching the account at all.
func (s *Service) Login(ctx context.Context, email, password, origin string) (*Session, *User, error) {
	emailNorm := NormalizeEmail(email)
	key := RateLimitKey(emailNorm, origin)

	if s.limiter.IsLimited(key) {
		return nil, nil, oops.Code(CodeRateLimited).Errorf("too many failed attempts")
	}

	user, lookupErr := s.users.GetByEmail(ctx, emailNorm)
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "lookup email").
				Wrap(lookupErr)
		}

		if s.cfg.DevAutoCreate && s.cfg.StubPassword != "" && password == s.cfg.StubPassword {
			s.logger.Info("auto-creating dev user", "email", emailNorm)
			created, err := s.createUser(ctx, emailNorm, password, "")
			if err != nil {
				return nil, nil, err
			}
			return s.succeed(ctx, created, key)
		}

		// Verify against a dummy hash so response time matches the
		// known-account path.
		_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing only
		return nil, nil, s.failAttempt(key, emailNorm)
	}

	valid, verifyErr := s.hasher.Verify(password, user.PasswordHash)
	if verifyErr != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !valid {
		return nil, nil, s.failAttempt(key, emailNorm)
	}

	// Opportunistic hash upgrade (e.g., from bcrypt). Login succeeds
	// even if the update fails.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			user.PasswordHash = newHash
			user.UpdatedAt = s.clock.Now().UTC()
			if err := s.users.Update(ctx, user); err != nil {
				s.logger.Warn("password hash upgrade failed",
					"user_id", user.ID.String(),
					"error", err)
			}
		}
	}

	return s.succeed(ctx, user, key)
}

// Logout invalidates the presented token. Idempotent: malformed and
// unknown tokens are no-ops, and the caller never sees an error.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		s.logger.Warn("logout invalidation failed", "error", err)
		return
	}
	// The session id doubles as the bearer token, so it never reaches
	// the log.
	s.logger.Info("logout")
}

// Authenticate resolves a bearer token to a principal, touching the
// session's last-seen timestamp on the way. Malformed, unknown and
// expired tokens all collapse to AUTH_UNAUTHENTICATED.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, *Session, error) {
	id, err := ulid.Parse(token)
	if err != nil {
		return nil, nil, oops.Code(CodeUnauthenticated).Errorf("unauthenticated")
	}

	session, err := s.sessions.FindValid(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, oops.Code(CodeUnauthenticated).Errorf("unauthenticated")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("user not found for session",
				"user_id", session.UserID.String())
			return nil, nil, oops.Code(CodeUnauthenticated).Errorf("unauthenticated")
		}
		return nil, nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	s.sessions.Touch(ctx, session)

	return &Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, session, nil
}

// GetUser returns the account by id.
func (s *Service) GetUser(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("NOT_FOUND").With("user_id", id.String()).Wrap(err)
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile change to the account.
func (s *Service) UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Apply(update, s.clock.Now().UTC())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, oops.Code("AUTH_UPDATE_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// createUser hashes the password and persists a new account. The email
// must already be normalized.
func (s *Service) createUser(ctx context.Context, emailNorm, password, displayName string) (*User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if displayName == "" {
		displayName = emailNorm
	}

	now := s.clock.Now().UTC()
	user := &User{
		ID:           ulid.Make(),
		Email:        emailNorm,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// Lost the race to the unique index; same outward conflict.
			return nil, oops.Code(CodeEmailExists).Errorf("email already registered")
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}
	return user, nil
}

// succeed resets the limiter bucket and mints a session.
func (s *Service) succeed(ctx context.Context, user *User, key string) (*Session, *User, error) {
	s.limiter.Reset(key)

	session, err := s.sessions.Create(ctx, user.ID, s.cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("login success",
		"user_id", user.ID.String(),
		"email", user.Email)
	return session, user, nil
}

// failAttempt records a failure and maps the outcome: crossing the
// threshold on this push yields AUTH_RATE_LIMITED, otherwise the caller
// sees AUTH_BAD_CREDENTIALS.
func (s *Service) failAttempt(key, emailNorm string) error {
	if s.limiter.RecordFailure(key) {
		return oops.Code(CodeRateLimited).Errorf("too many failed attempts")
	}
	s.logger.Info("login failed", "email", emailNorm)
	return oops.Code(CodeBadCredentials).Errorf("email or password is incorrect")
}
