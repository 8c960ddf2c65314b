// Package auth resolves inbound requests to an authenticated identity and
// its rank. Sessions are signed HS256 cookies carrying only the username;
// the rank is re-read from the store on every request, so a rank
// reassignment takes effect on the next request without reissuing tokens.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidgate/vidgate/internal/httputil"
	"github.com/vidgate/vidgate/internal/rank"
	"github.com/vidgate/vidgate/internal/store"
)

const sessionCookieName = "session"

// AdminUsername is the account allowed onto the admin surface, matching
// the seeded deployment.
const AdminUsername = "admin"

type contextKey string

const identityKey contextKey = "identity"

// Identity is a resolved (identity, rank) pair.
type Identity struct {
	Username string
	Rank     rank.Rank
}

func (id Identity) IsAdmin() bool {
	return id.Username == AdminUsername
}

type Handler struct {
	store         *store.Store
	jwtSecret     string
	secureCookies bool
}

func NewHandler(s *store.Store, jwtSecret string, secureCookies bool) *Handler {
	return &Handler{store: s, jwtSecret: jwtSecret, secureCookies: secureCookies}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username string `json:"username"`
	Rank     string `json:"rank"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.GetUser(req.Username)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := GenerateSessionToken(h.jwtSecret, user.Username)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setSessionCookie(w, token, int(SessionDuration/time.Second))
	httputil.WriteJSON(w, http.StatusOK, loginResponse{Username: user.Username, Rank: user.Rank.String()})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// Middleware resolves the session cookie to an Identity and attaches it to
// the request context. It never rejects: downstream handlers decide how an
// anonymous request is reported. A session naming a since-deleted user
// resolves to anonymous.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ValidateSessionToken(h.jwtSecret, cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.store.GetUser(claims.Username)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		id := Identity{Username: user.Username, Rank: user.Rank}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// RequireAuth rejects anonymous requests with 401. Used on API surfaces
// where revealing login state leaks nothing about any particular video.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates the admin surface: 401 anonymous, 403 authenticated
// non-admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !id.IsAdmin() {
			httputil.WriteError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
