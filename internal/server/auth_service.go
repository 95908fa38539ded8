package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "equipcat/internal/auth"
	"equipcat/internal/store"
)

const (
	sessionCookieName = "equipcat_session"
	authTypeToken     = "token"
	authTypeSession   = "session"
)

var (
	defaultSessionTTL     = 24 * time.Hour
	errInvalidCredentials = errors.New("invalid credentials")
)

// AuthService encapsulates admin login and session operations backed by the store.
type AuthService struct {
	store      store.AuthStore
	sessionTTL time.Duration
}

type authLoginResult struct {
	User      *store.AuthUser
	Token     string
	ExpiresAt time.Time
}

// CredentialUpdate changes one admin's username and/or password.
type CredentialUpdate struct {
	CurrentUsername string
	NewUsername     *string
	NewPassword     *string
}

func NewAuthService(authStore store.AuthStore) *AuthService {
	if authStore == nil {
		return nil
	}
	return &AuthService{store: authStore, sessionTTL: defaultSessionTTL}
}

func (a *AuthService) Login(ctx context.Context, username, password string, now time.Time) (*authLoginResult, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	if strings.TrimSpace(password) == "" {
		return nil, badRequestCode(fmt.Errorf("password is required"), ErrCodeMissingRequired)
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, unauthorized(errInvalidCredentials)
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, internalError(err)
	}
	expiresAt := now.Add(a.sessionTTL)
	if err := a.store.CreateSession(ctx, user.ID, hashSessionToken(token), expiresAt, now); err != nil {
		return nil, storeFailure(err)
	}

	return &authLoginResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, hashSessionToken(token), now)
}

func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.store == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

// UpdateCredentials rewrites username and/or password and revokes every
// session of that admin.
func (a *AuthService) UpdateCredentials(ctx context.Context, in CredentialUpdate, now time.Time) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, notImplemented(fmt.Errorf("auth is not configured"))
	}
	current, err := internalauth.NormalizeUsername(in.CurrentUsername)
	if err != nil {
		return nil, badRequestCode(fmt.Errorf("current_username: %w", err), ErrCodeInvalidArgument)
	}
	if in.NewUsername == nil && in.NewPassword == nil {
		return nil, badRequestCode(fmt.Errorf("new_username or new_password is required"), ErrCodeMissingRequired)
	}

	user, err := a.store.GetUserByUsername(ctx, current)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil {
		return nil, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound)
	}

	username := user.Username
	if in.NewUsername != nil {
		username, err = internalauth.NormalizeUsername(*in.NewUsername)
		if err != nil {
			return nil, badRequestCode(fmt.Errorf("new_username: %w", err), ErrCodeInvalidArgument)
		}
	}
	hash := user.PasswordHash
	if in.NewPassword != nil {
		hash, err = internalauth.HashPassword(*in.NewPassword)
		if err != nil {
			return nil, badRequestCode(fmt.Errorf("new_password: %w", err), ErrCodeInvalidArgument)
		}
	}

	updated, err := a.store.UpdateUserCredentials(ctx, user.ID, username, hash, now)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, conflictCode(fmt.Errorf("username already exists"), ErrCodeEntityExists)
		}
		return nil, storeFailure(err)
	}
	if updated == nil {
		return nil, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound)
	}
	if err := a.store.RevokeUserSessions(ctx, user.ID, now); err != nil {
		return nil, storeFailure(err)
	}
	return updated, nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
