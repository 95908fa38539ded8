package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"equipcat/internal/api"
	"equipcat/internal/assets"
	internalauth "equipcat/internal/auth"
	"equipcat/internal/config"
	"equipcat/internal/mailer"
	"equipcat/internal/models"
	"equipcat/internal/store"
)

const testAPIToken = "test-token"

type testEnv struct {
	srv     *Server
	handler http.Handler
	store   *store.Store
	files   *assets.FolderStore
	meta    *assets.Sidecar
	root    string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithMailer(t, nil)
}

func newTestEnvWithMailer(t *testing.T, m mailer.Mailer) *testEnv {
	t.Helper()
	t.Setenv(apiTokenEnvKey, testAPIToken)

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "equipcat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	root := filepath.Join(dir, "uploads")
	files, err := assets.NewFolderStore(root)
	if err != nil {
		t.Fatalf("open folder store: %v", err)
	}
	meta, err := assets.NewSidecar(root)
	if err != nil {
		t.Fatalf("open sidecar: %v", err)
	}

	cfg := config.Default()
	cfg.Mail = config.MailConfig{From: "site@example.com", To: "sales@example.com"}
	srv, err := New(Options{Store: st, Files: files, Meta: meta, Mailer: m, Config: cfg})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), store: st, files: files, meta: meta, root: files.Root()}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func adminRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAPIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

type formFilePart struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, method, target string, values map[string]string, files []formFilePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range values {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, file := range files {
		part, err := mw.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testAPIToken)
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status, errCode int) api.ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	resp := decodeBody[api.ErrorResponse](t, w)
	if errCode != 0 && resp.ErrorCode != errCode {
		t.Fatalf("expected error_code %d, got %d (%s)", errCode, resp.ErrorCode, w.Body.String())
	}
	return resp
}

func (e *testEnv) putAsset(t *testing.T, folder models.MediaFolder, name, content string) string {
	t.Helper()
	info, err := e.files.Put(context.Background(), folder, name, bytes.NewReader([]byte(content)))
	if err != nil {
		t.Fatalf("put asset: %v", err)
	}
	return info.Name
}

func seedAdmin(t *testing.T, st *store.Store, username, password string) *store.AuthUser {
	t.Helper()
	hash, err := internalauth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := st.CreateAdminUser(context.Background(), username, "", hash, time.Now().UTC())
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return user
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:5000")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:5000" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("http://0.0.0.0:5000"); err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:5000")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:5000" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("denies missing auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/media", nil)
		expectError(t, env.do(t, req), http.StatusUnauthorized, ErrCodeUnauthorized)
	})

	t.Run("denies wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/media", nil)
		req.Header.Set("Authorization", "Bearer nope")
		expectError(t, env.do(t, req), http.StatusUnauthorized, ErrCodeUnauthorized)
	})

	t.Run("allows api token", func(t *testing.T) {
		w := env.do(t, adminRequest(http.MethodGet, "/api/media", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("public routes stay open", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/category/userview", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decodeBody[api.HealthResponse](t, w); resp.Status != "ok" {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestServerErrorsAreMasked(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	env.srv.writeServiceError(w, req, storeFailure(context.DeadlineExceeded))
	resp := expectError(t, w, http.StatusInternalServerError, ErrCodeStoreFailure)
	if resp.Error != "internal error" {
		t.Fatalf("expected masked message, got %q", resp.Error)
	}
}
