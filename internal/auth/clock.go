// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package auth

import "time"

// Clock supplies the current time. Injected so expiry and rate-limit
// behavior can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
