// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

// Package auth implements the session and credential lifecycle engine.
//
// # Domain Types
//
// User and Session are plain domain structs persisted through the
// UserRepository and SessionRepository interfaces. Session ids double as
// bearer tokens: the canonical ULID string is the cookie value, and a
// token that does not parse as a ULID is treated as no session at all.
//
// # Services
//
// Service orchestrates register/login/logout on top of SessionService,
// RateLimiter and a PasswordHasher. SessionService owns session
// creation, read-time expiry filtering, last-seen touches and the bulk
// expiry sweep. All time reads go through an injected Clock so tests
// are deterministic.
package auth
