// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import "errors"

// ErrNotFound is returned by repositories when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by UserRepository.Create when the normalized
// email is already registered. The unique index on users.email is the
// authority; service-level duplicate checks are only a fast path.
var ErrEmailTaken = errors.New("email already registered")

// Stable oops error codes shared with the HTTP layer.
const (
	CodeBadCredentials   = "AUTH_BAD_CREDENTIALS"
	CodeRateLimited      = "AUTH_RATE_LIMITED"
	CodeEmailExists      = "AUTH_EMAIL_EXISTS"
	CodeUnauthenticated  = "AUTH_UNAUTHENTICATED"
	CodeValidationFailed = "AUTH_VALIDATION_FAILED"
)
