package main

import (
	"net"
	"testing"

	"equipcat/internal/api"
	"equipcat/internal/server"
)

func TestFormatCLIError_NetworkGuidance(t *testing.T) {
	err := &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: ensure an equipcat server is running at EQUIPCAT_API_URL.") {
		t.Fatalf("expected connectivity guidance, got %v", lines)
	}
	if !containsLine(lines, "hint: start local server manually with: equipcat srv") {
		t.Fatalf("expected manual-start guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIUnknownServiceGuidance(t *testing.T) {
	err := &api.APIError{Status: 404, Message: "api error: 404 Not Found"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify EQUIPCAT_API_URL points to an equipcat server.") {
		t.Fatalf("expected api-url guidance, got %v", lines)
	}
}

func TestFormatCLIError_AssetInUseGuidance(t *testing.T) {
	err := &api.APIError{Status: 409, Code: "conflict", ErrorCode: server.ErrCodeAssetInUse, Message: "file is referenced"}
	lines := formatCLIError(err)
	if lines[0] != "conflict: file is referenced" {
		t.Fatalf("expected error first, got %v", lines)
	}
	if !containsLine(lines, "hint: run `equipcat media usage <folder> <name>` and detach the file before deleting.") {
		t.Fatalf("expected usage guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIInternalGuidance(t *testing.T) {
	err := &api.APIError{Status: 500, Code: "internal", Message: "internal error"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: server returned an internal error; check server logs for details.") {
		t.Fatalf("expected internal-error guidance, got %v", lines)
	}
}

func TestUniqueLinesDropsEmptyAndRepeats(t *testing.T) {
	got := uniqueLines([]string{"a", "", "b", "a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected lines %v", got)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
