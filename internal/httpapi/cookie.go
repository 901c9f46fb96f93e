// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "sbsession"

// CookieConfig controls how session cookies are scoped.
type CookieConfig struct {
	// Secure marks cookies as HTTPS-only. Off for local development.
	Secure bool

	// Domain, when set, is used verbatim as the cookie domain (a leading
	// dot is stripped; modern browsers ignore it anyway).
	Domain string

	// ValidApexDomains lists apex domains the service may scope cookies
	// to. A request host equal to an apex, or a subdomain of one, gets a
	// cookie scoped to that apex so sibling subdomains share the session.
	ValidApexDomains []string
}

// ResolveCookieDomain decides the Domain attribute for a session cookie.
// Precedence: an explicitly configured domain wins; otherwise the request
// host is matched against the apex allowlist; otherwise the cookie is
// host-only and the second return is false. Never returns a leading dot.
func ResolveCookieDomain(cfg CookieConfig, host string) (string, bool) {
	if cfg.Domain != "" {
		return strings.TrimPrefix(cfg.Domain, "."), true
	}

	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return "", false
	}
	if stripped, _, err := net.SplitHostPort(h); err == nil {
		h = stripped
	}

	for _, apex := range cfg.ValidApexDomains {
		apex = strings.ToLower(strings.TrimPrefix(apex, "."))
		if apex == "" {
			continue
		}
		if h == apex || strings.HasSuffix(h, "."+apex) {
			return apex, true
		}
	}
	return "", false
}

// SessionCookie builds the session cookie for a freshly minted token.
func SessionCookie(cfg CookieConfig, host, token string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
	if domain, ok := ResolveCookieDomain(cfg, host); ok {
		c.Domain = domain
	}
	return c
}

// ClearCookie builds an expired session cookie with the same scoping as
// SessionCookie so the browser actually drops the original.
func ClearCookie(cfg CookieConfig, host string) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
	if domain, ok := ResolveCookieDomain(cfg, host); ok {
		c.Domain = domain
	}
	return c
}

// requestHost returns the host the client addressed, preferring the
// first X-Forwarded-Host entry set by a fronting proxy.
func requestHost(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(host)
	}
	return r.Host
}

// clientOrigin identifies the remote client for rate limiting, preferring
// the first X-Forwarded-For entry.
func clientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		origin, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(origin)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
