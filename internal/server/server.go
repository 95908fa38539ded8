package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"equipcat/internal/assets"
	"equipcat/internal/config"
	"equipcat/internal/mailer"
	"equipcat/internal/store"
)

const (
	apiTokenEnvKey    = "EQUIPCAT_API_TOKEN"
	allowRemoteEnvKey = "EQUIPCAT_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Store is everything the server needs from persistence.
type Store interface {
	store.CatalogStore
	store.ReferenceStore
	store.AuthStore
}

// Options wires a Server.
type Options struct {
	Addr   string
	Store  Store
	Files  assets.Store
	Meta   assets.MetaStore
	Mailer mailer.Mailer
	Config config.Config
	Logger *slog.Logger
}

// Server wraps HTTP handlers for the equipcat API.
type Server struct {
	addr        string
	store       Store
	files       assets.Store
	media       *MediaService
	authService *AuthService
	mailer      mailer.Mailer
	mail        config.MailConfig
	logger      *slog.Logger
	apiToken    string

	maxUploadBytes  int64
	multipartMemory int64
}

// New creates a new server instance.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Files == nil || opts.Meta == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	refs := NewReferenceIndex(opts.Store, cfg.PublicPrefix, logger)
	media := NewMediaService(opts.Files, opts.Meta, refs, cfg.PublicPrefix, logger)
	media.ConfigurePolicy(cfg.Media.AllowedMediaTypes)

	maxUpload := cfg.Media.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = config.DefaultMediaMaxUploadBytes
	}
	multipartMemory := cfg.Media.MultipartMaxMemory
	if multipartMemory <= 0 {
		multipartMemory = config.DefaultMediaMultipartMemory
	}

	return &Server{
		addr:            opts.Addr,
		store:           opts.Store,
		files:           opts.Files,
		media:           media,
		authService:     NewAuthService(opts.Store),
		mailer:          opts.Mailer,
		mail:            cfg.Mail,
		logger:          logger,
		apiToken:        strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		maxUploadBytes:  maxUpload,
		multipartMemory: multipartMemory,
	}, nil
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
