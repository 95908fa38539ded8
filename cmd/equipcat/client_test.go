package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"equipcat/internal/api"
)

func TestLocalServerEnvPinsPaths(t *testing.T) {
	cfg := testCLIConfig(t)
	cfg.APIURL = "http://127.0.0.1:7411"
	env := strings.Join(localServerEnv(&cfg), "\n")
	for _, want := range []string{"EQUIPCAT_DB=" + cfg.DBPath, "EQUIPCAT_UPLOAD_ROOT=" + cfg.UploadRoot, "EQUIPCAT_API_URL=http://127.0.0.1:7411"} {
		if !strings.Contains(env, want) {
			t.Fatalf("expected %q in %q", want, env)
		}
	}
}

func TestWaitForServerReturnsNonConnectionErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	err := waitForServer(api.NewClient(ts.URL), time.Second)
	if err == nil {
		t.Fatal("expected foreign server error")
	}
	if isConnRefused(err) {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestWaitForServerSucceedsWhenHealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	if err := waitForServer(api.NewClient(ts.URL), time.Second); err != nil {
		t.Fatalf("wait for server: %v", err)
	}
}

func TestLocalServerStopIsNilSafe(t *testing.T) {
	var local *localServer
	local.stop()
	(&localServer{}).stop()
}
