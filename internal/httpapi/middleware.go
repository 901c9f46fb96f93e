// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/sameboatplatform/sameboat/internal/auth"
	"github.com/sameboatplatform/sameboat/pkg/errutil"
)

// SessionMiddleware resolves the session cookie to a principal and
// attaches it to the request context. Requests without a cookie, or with
// an invalid or expired token, continue anonymously; RequireAuth is the
// gate, not this middleware.
func SessionMiddleware(svc *auth.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, _, err := svc.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				if errutil.Code(err) != auth.CodeUnauthenticated {
					errutil.LogError(logger, "session authentication failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects anonymous requests with a 401 envelope.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, auth.CodeUnauthenticated, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
