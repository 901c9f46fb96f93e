// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/sameboatplatform/sameboat/internal/auth"
	"github.com/sameboatplatform/sameboat/internal/observability"
	"github.com/sameboatplatform/sameboat/pkg/errutil"
)

// maxBodyBytes caps request bodies; auth payloads are tiny.
const maxBodyBytes = 64 << 10

// Handlers holds the auth endpoint implementations.
type Handlers struct {
	svc        *auth.Service
	cookies    CookieConfig
	sessionTTL time.Duration
	policy     auth.PasswordPolicy
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewHandlers creates the auth endpoint handlers. metrics may be nil.
func NewHandlers(svc *auth.Service, cookies CookieConfig, sessionTTL time.Duration, policy auth.PasswordPolicy, metrics *observability.Metrics, logger *slog.Logger) (*Handlers, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = auth.DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		svc:        svc,
		cookies:    cookies,
		sessionTTL: sessionTTL,
		policy:     policy,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Register installs the routes on the mux. PATCH /me and GET /me sit
// behind RequireAuth; the auth endpoints are open.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.Handle("GET /me", RequireAuth(http.HandlerFunc(h.handleMe)))
	mux.Handle("PATCH /me", RequireAuth(http.HandlerFunc(h.handleUpdateMe)))
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateMeRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	Bio         *string `json:"bio"`
	Timezone    *string `json:"timezone"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		h.countRegistration("invalid")
		return
	}

	if err := validateRegistration(req, h.policy); err != nil {
		h.countRegistration("invalid")
		h.writeError(w, err)
		return
	}

	session, user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.countRegistration("failure")
		h.writeError(w, err)
		return
	}
	h.countRegistration("success")

	http.SetCookie(w, SessionCookie(h.cookies, requestHost(r), session.Token(), h.sessionTTL))
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		h.countLogin("invalid")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.countLogin("invalid")
		writeJSONError(w, http.StatusBadRequest, auth.CodeValidationFailed, "email and password are required")
		return
	}

	session, user, err := h.svc.Login(r.Context(), req.Email, req.Password, clientOrigin(r))
	if err != nil {
		if errutil.Code(err) == auth.CodeRateLimited {
			h.countLogin("rate_limited")
			if h.metrics != nil {
				h.metrics.RateLimitHits.Inc()
			}
		} else {
			h.countLogin("failure")
		}
		h.writeError(w, err)
		return
	}
	h.countLogin("success")

	http.SetCookie(w, SessionCookie(h.cookies, requestHost(r), session.Token(), h.sessionTTL))
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleLogout always clears the cookie and answers 204, whatever the
// token's state.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		h.svc.Logout(r.Context(), cookie.Value)
	}
	http.SetCookie(w, ClearCookie(h.cookies, requestHost(r)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	user, err := h.svc.GetUser(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handlers) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateProfileUpdate(req); err != nil {
		h.writeError(w, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), principal.UserID, auth.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
		Timezone:    req.Timezone,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Timezone:    u.Timezone,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (h *Handlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handlers) countRegistration(outcome string) {
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

// writeError maps domain error codes to HTTP status and the JSON
// envelope. Unrecognized errors become an opaque 500.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	code := errutil.Code(err)
	switch code {
	case auth.CodeRateLimited:
		writeJSONError(w, http.StatusTooManyRequests, code, "too many failed attempts, try again later")
	case auth.CodeBadCredentials:
		writeJSONError(w, http.StatusUnauthorized, code, "email or password is incorrect")
	case auth.CodeUnauthenticated:
		writeJSONError(w, http.StatusUnauthorized, code, "authentication required")
	case auth.CodeEmailExists:
		writeJSONError(w, http.StatusConflict, code, "email already registered")
	case auth.CodeValidationFailed:
		writeJSONError(w, http.StatusBadRequest, code, err.Error())
	case "NOT_FOUND":
		writeJSONError(w, http.StatusNotFound, code, "not found")
	default:
		errutil.LogError(h.logger, "request failed", err)
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, auth.CodeValidationFailed, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
