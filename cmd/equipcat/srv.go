package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"equipcat/internal/assets"
	"equipcat/internal/config"
	"equipcat/internal/mailer"
	"equipcat/internal/server"
	"equipcat/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the equipcat API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			if cfg.UploadRoot == "" {
				return fmt.Errorf("upload root is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			files, err := assets.NewFolderStore(cfg.UploadRoot)
			if err != nil {
				return err
			}
			meta, err := assets.NewSidecar(files.Root())
			if err != nil {
				return err
			}
			logger.Info("serving uploads", "root", files.Root(), "prefix", cfg.PublicPrefix)

			opts := server.Options{
				Addr:   addr,
				Store:  st,
				Files:  files,
				Meta:   meta,
				Config: *cfg,
				Logger: logger,
			}
			if m := mailer.NewSMTPMailer(cfg.Mail); m != nil {
				opts.Mailer = m
				logger.Info("contact mail enabled", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
			} else {
				logger.Warn("contact mail disabled; set mail.host and mail.to to enable")
			}

			srv, err := server.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}

// commandContext returns cmd's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
