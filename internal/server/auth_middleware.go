package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"equipcat/internal/store"
)

type principalKey struct{}

// authPrincipal is the admin identity attached to an authenticated request.
// User is nil for the static API token.
type authPrincipal struct {
	AuthType string
	User     *store.AuthUser
}

func principalFromContext(ctx context.Context) (authPrincipal, bool) {
	principal, ok := ctx.Value(principalKey{}).(authPrincipal)
	return principal, ok
}

// requireAdmin admits requests carrying the static API token or a live admin session.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok, err := s.authenticate(r)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if !ok {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
	}
}

func (s *Server) authenticate(r *http.Request) (authPrincipal, bool, error) {
	bearer := bearerToken(r)
	if s.apiToken != "" && bearer != "" &&
		subtle.ConstantTimeCompare([]byte(bearer), []byte(s.apiToken)) == 1 {
		return authPrincipal{AuthType: authTypeToken}, true, nil
	}

	token := sessionTokenFromRequest(r)
	if token == "" || s.authService == nil {
		return authPrincipal{}, false, nil
	}
	user, err := s.authService.AuthenticateSessionToken(r.Context(), token, time.Now().UTC())
	if err != nil {
		return authPrincipal{}, false, err
	}
	if user == nil {
		return authPrincipal{}, false, nil
	}
	return authPrincipal{AuthType: authTypeSession, User: user}, true, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// sessionTokenFromRequest prefers the session cookie and falls back to a bearer token.
func sessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	return bearerToken(r)
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(strings.Split(proto, ",")[0])
	}
	return "http"
}
