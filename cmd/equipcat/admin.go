package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	internalauth "equipcat/internal/auth"
	"equipcat/internal/config"
	"equipcat/internal/store"
)

// passwordInput is swapped in tests.
var passwordInput io.Reader = os.Stdin

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminUserCmd(cfg, jsonOutput))
	return cmd
}

// Admin accounts are provisioned against the local database; the HTTP API only
// lets an authenticated admin change their own credentials.
func newAdminUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin accounts in the local database",
	}
	cmd.AddCommand(newAdminUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserPasswdCmd(cfg, jsonOutput))
	return cmd
}

func newAdminUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		passwordStdin bool
		email         string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one admin account",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}

			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			hash, err := readPasswordHash()
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				ctx := commandContext(cmd)
				existing, err := st.GetUserByUsername(ctx, username)
				if err != nil {
					return err
				}
				if existing != nil {
					return fmt.Errorf("admin user %s already exists", username)
				}

				created, err := st.CreateAdminUser(ctx, username, email, hash, time.Now().UTC())
				if errors.Is(err, store.ErrUsernameTaken) {
					return fmt.Errorf("admin user %s already exists", username)
				}
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(adminUserPayload(created))
				}
				return writePlain("created admin user %s (%s)\n", created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&email, "email", "", "contact email for the account")
	return cmd
}

func newAdminUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				users, err := st.ListUsers(commandContext(cmd))
				if err != nil {
					return err
				}
				if *jsonOutput {
					payload := make([]map[string]any, 0, len(users))
					for i := range users {
						payload = append(payload, adminUserPayload(&users[i]))
					}
					return writeJSON(map[string]any{"count": len(users), "users": payload})
				}
				if len(users) == 0 {
					return writePlain("no admin users configured\n")
				}
				if err := writePlain("USERNAME\tEMAIL\tCREATED\tID\n"); err != nil {
					return err
				}
				for _, user := range users {
					if err := writePlain("%s\t%s\t%s\t%s\n", user.Username, user.Email, formatTime(user.CreatedAt), user.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAdminUserPasswdCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset an admin password and revoke its sessions",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}

			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			hash, err := readPasswordHash()
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				ctx := commandContext(cmd)
				user, err := st.GetUserByUsername(ctx, username)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("admin user %s not found", username)
				}

				now := time.Now().UTC()
				updated, err := st.UpdateUserCredentials(ctx, user.ID, user.Username, hash, now)
				if err != nil {
					return err
				}
				if updated == nil {
					return fmt.Errorf("admin user %s not found", username)
				}
				if err := st.RevokeUserSessions(ctx, user.ID, now); err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(adminUserPayload(updated))
				}
				return writePlain("password updated for %s; existing sessions revoked\n", updated.Username)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func readPasswordHash() (string, error) {
	raw, err := io.ReadAll(passwordInput)
	if err != nil {
		return "", err
	}
	return internalauth.HashPassword(strings.TrimSpace(string(raw)))
}

func withStore(cfg *config.Config, fn func(*store.Store) error) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func adminUserPayload(user *store.AuthUser) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": formatTime(user.CreatedAt),
	}
}

