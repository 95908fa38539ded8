package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/config"
)

const (
	pingTimeout        = 500 * time.Millisecond
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

// localServer is an `equipcat srv` child started for one CLI command.
type localServer struct {
	cmd *exec.Cmd
}

func (l *localServer) stop() {
	if l == nil || l.cmd == nil || l.cmd.Process == nil {
		return
	}
	_ = l.cmd.Process.Kill()
	_ = l.cmd.Wait()
}

// withClient runs fn against the configured API, spawning a local server
// when nothing answers there.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	client := api.NewClient(cfg.APIURL)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	err := client.Ping(ctx)
	cancel()
	if err != nil {
		local, startErr := startLocalServer(cfg, client)
		if startErr != nil {
			return startErr
		}
		defer local.stop()
	}

	return fn(client)
}

func startLocalServer(cfg *config.Config, client *api.Client) (*localServer, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate equipcat binary: %w", err)
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(), localServerEnv(cfg)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start local server: %w", err)
	}

	local := &localServer{cmd: cmd}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		local.stop()
		return nil, err
	}
	return local, nil
}

// localServerEnv pins the child to the same database, upload root and address.
func localServerEnv(cfg *config.Config) []string {
	return []string{
		"EQUIPCAT_DB=" + cfg.DBPath,
		"EQUIPCAT_UPLOAD_ROOT=" + cfg.UploadRoot,
		"EQUIPCAT_API_URL=" + cfg.APIURL,
	}
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*serverPollInterval)
		err := client.Ping(ctx)
		cancel()
		switch {
		case err == nil:
			return nil
		case !isConnRefused(err):
			// Something else owns the port.
			return err
		}

		select {
		case <-deadline:
			return errors.New("server did not start in time")
		case <-ticker.C:
		}
	}
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
