package main

import (
	"context"
	"errors"
	"net"

	"equipcat/internal/api"
	"equipcat/internal/server"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: set EQUIPCAT_API_TOKEN or log in with an admin account.")
		case "invalid_path":
			lines = append(lines, "hint: folders are products, posts, banners and categories; names are bare filenames.")
		}
		if apiErr.ErrorCode == server.ErrCodeAssetInUse {
			lines = append(lines, "hint: run `equipcat media usage <folder> <name>` and detach the file before deleting.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify EQUIPCAT_API_URL points to an equipcat server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase EQUIPCAT_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an equipcat server is running at EQUIPCAT_API_URL.",
			"hint: start local server manually with: equipcat srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
