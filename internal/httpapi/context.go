// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package httpapi

import (
	"context"

	"github.com/sameboatplatform/sameboat/internal/auth"
)

type principalKey struct{}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*auth.Principal)
	return p, ok && p != nil
}
