package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	adminRole = "admin"

	userColumns        = "id, username, email, password_hash, role, created_at, updated_at"
	sessionUserColumns = "u.id, u.username, u.email, u.password_hash, u.role, u.created_at, u.updated_at"
)

// ErrUsernameTaken is returned when a create or rename collides with an
// existing admin username.
var ErrUsernameTaken = errors.New("username already exists")

// AuthUser is one admin account. Every account holds the single admin role.
type AuthUser struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CreateAdminUser inserts an admin account. The username is stored lowercased.
func (s *Store) CreateAdminUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*AuthUser, error) {
	user := &AuthUser{
		Username:     canonicalUsername(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Role:         adminRole,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	if err := requireCredentials(user.Username, user.PasswordHash); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	user.ID = id

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
		dbFormatTime(user.CreatedAt), dbFormatTime(user.UpdatedAt))
	if err != nil {
		return nil, usernameConflict(err)
	}
	return user, nil
}

// GetUserByUsername returns nil when no account matches.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*AuthUser, error) {
	return s.userWhere(ctx, "username", canonicalUsername(username))
}

// GetUserByID returns nil when no account matches.
func (s *Store) GetUserByID(ctx context.Context, id string) (*AuthUser, error) {
	return s.userWhere(ctx, "id", strings.TrimSpace(id))
}

// ListUsers returns every account ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]AuthUser, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]AuthUser, 0)
	for rows.Next() {
		user, err := scanAuthUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserCredentials replaces the username and password hash of one
// account. It returns nil, nil when the account does not exist and
// ErrUsernameTaken when the new name belongs to another account.
func (s *Store) UpdateUserCredentials(ctx context.Context, id, username, passwordHash string, now time.Time) (*AuthUser, error) {
	username = canonicalUsername(username)
	if err := requireCredentials(username, passwordHash); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, password_hash = ?, updated_at = ? WHERE id = ?",
		username, passwordHash, dbFormatTime(now), id)
	if err != nil {
		return nil, usernameConflict(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, nil
	}
	return s.GetUserByID(ctx, id)
}

// CreateSession records a login. Only the token hash is stored.
func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error {
	userID, tokenHash = strings.TrimSpace(userID), strings.TrimSpace(tokenHash)
	switch {
	case userID == "":
		return fmt.Errorf("user id is required")
	case tokenHash == "":
		return fmt.Errorf("token hash is required")
	}

	id, err := newID()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, created_at) VALUES (?, ?, ?, ?, NULL, ?)",
		id, userID, tokenHash, dbFormatTime(expiresAt), dbFormatTime(createdAt))
	return err
}

// GetUserBySessionTokenHash resolves a session that is neither revoked nor
// expired at now. It returns nil for anything else.
func (s *Store) GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionUserColumns+`
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ? AND s.revoked_at IS NULL AND s.expires_at > ?
	`, tokenHash, dbFormatTime(now))
	return scanOptionalUser(row)
}

// RevokeSessionByTokenHash ends one session (logout).
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	return s.revokeSessions(ctx, "token_hash", tokenHash, revokedAt)
}

// RevokeUserSessions ends every open session of one account.
func (s *Store) RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error {
	return s.revokeSessions(ctx, "user_id", userID, revokedAt)
}

// column is always a constant from this file.
func (s *Store) revokeSessions(ctx context.Context, column, value string, revokedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE "+column+" = ? AND revoked_at IS NULL",
		dbFormatTime(revokedAt), value)
	return err
}

// column is always a constant from this file.
func (s *Store) userWhere(ctx context.Context, column, value string) (*AuthUser, error) {
	if value == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	return scanOptionalUser(row)
}

func scanOptionalUser(scanner rowScanner) (*AuthUser, error) {
	user, err := scanAuthUser(scanner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func scanAuthUser(scanner rowScanner) (*AuthUser, error) {
	var user AuthUser
	var created, updated string
	if err := scanner.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if user.CreatedAt, err = dbParseTime(created); err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", user.ID, err)
	}
	if user.UpdatedAt, err = dbParseTime(updated); err != nil {
		return nil, fmt.Errorf("user %s updated_at: %w", user.ID, err)
	}
	return &user, nil
}

func requireCredentials(username, passwordHash string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}

func usernameConflict(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
		return ErrUsernameTaken
	}
	return err
}

func canonicalUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
