// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import (
	"unicode"

	"github.com/samber/oops"
)

// PasswordPolicy describes the complexity rules applied at registration.
// The rules are configuration rather than a fixed contract: earlier
// deployments disagreed on the minimum length and character classes, so
// the recognized current values live in DefaultPasswordPolicy and can be
// overridden per deployment.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	RequireUpper     bool
	RequireLower     bool
	RequireDigit     bool
	ForbidWhitespace bool
}

// DefaultPasswordPolicy returns the currently recognized rules:
// at least 8 characters, upper+lower+digit, no whitespace.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		MaxLength:        100,
		RequireUpper:     true,
		RequireLower:     true,
		RequireDigit:     true,
		ForbidWhitespace: true,
	}
}

// Validate checks a raw password against the policy. The raw password is
// never included in the returned error.
func (p PasswordPolicy) Validate(password string) error {
	runes := []rune(password)
	if len(runes) < p.MinLength {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			Errorf("password must be at least %d characters", p.MinLength)
	}
	if p.MaxLength > 0 && len(runes) > p.MaxLength {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			Errorf("password must be at most %d characters", p.MaxLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSpace(r):
			if p.ForbidWhitespace {
				return oops.Code(CodeValidationFailed).
					With("field", "password").
					Errorf("password must not contain whitespace")
			}
		}
	}

	if p.RequireUpper && !hasUpper {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			Errorf("password must contain an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			Errorf("password must contain a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			Errorf("password must contain a digit")
	}
	return nil
}
