// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package httpapi

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/sameboatplatform/sameboat/internal/auth"
)

// Display name length bounds, in runes.
const (
	displayNameMinLen = 2
	displayNameMaxLen = 50
)

// emailPattern is deliberately loose: one @, non-empty local part, and a
// dotted domain. The mailbox itself is the real validator.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateRegistration(req registerRequest, policy auth.PasswordPolicy) error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := policy.Validate(req.Password); err != nil {
		return err
	}
	if req.DisplayName != "" {
		if err := validateDisplayName(req.DisplayName); err != nil {
			return err
		}
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return oops.Code(auth.CodeValidationFailed).
			With("field", "email").
			Errorf("email is required")
	}
	if !emailPattern.MatchString(email) {
		return oops.Code(auth.CodeValidationFailed).
			With("field", "email").
			Errorf("email address is not valid")
	}
	return nil
}

func validateDisplayName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < displayNameMinLen || n > displayNameMaxLen {
		return oops.Code(auth.CodeValidationFailed).
			With("field", "displayName").
			Errorf("display name must be between %d and %d characters", displayNameMinLen, displayNameMaxLen)
	}
	return nil
}

func validateProfileUpdate(req updateMeRequest) error {
	if req.DisplayName != nil {
		if err := validateDisplayName(*req.DisplayName); err != nil {
			return err
		}
	}
	if req.Timezone != nil && *req.Timezone != "" {
		if strings.ContainsAny(*req.Timezone, " \t\n") {
			return oops.Code(auth.CodeValidationFailed).
				With("field", "timezone").
				Errorf("timezone must not contain whitespace")
		}
	}
	return nil
}
