package server

import (
	"fmt"
	"net/http"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/store"
)

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.authService == nil {
		s.writeServiceError(w, r, notImplemented(fmt.Errorf("auth login not supported")))
		return
	}

	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	result, err := s.authService.Login(r.Context(), req.Username, req.Password, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(defaultSessionTTL / time.Second),
		Expires:  result.ExpiresAt,
	})
	s.log().Info("admin logged in", "username", result.User.Username)

	s.writeJSON(w, http.StatusOK, api.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toAPIAdminUser(*result.User),
	})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromRequest(r)
	if token != "" && s.authService != nil {
		if err := s.authService.RevokeSessionToken(r.Context(), token, time.Now().UTC()); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	resp := api.AuthMeResponse{Authenticated: true, AuthType: principal.AuthType}
	if principal.User != nil {
		user := toAPIAdminUser(*principal.User)
		resp.User = &user
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.AdminUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	updated, err := s.authService.UpdateCredentials(r.Context(), CredentialUpdate{
		CurrentUsername: req.CurrentUsername,
		NewUsername:     req.NewUsername,
		NewPassword:     req.NewPassword,
	}, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log().Info("admin credentials updated", "user_id", updated.ID, "username", updated.Username)

	s.writeJSON(w, http.StatusOK, toAPIAdminUser(*updated))
}

func toAPIAdminUser(user store.AuthUser) api.AdminUser {
	return api.AdminUser{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}
