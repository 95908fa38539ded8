package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"equipcat/internal/api"
	"equipcat/internal/mailer"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func contactRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestContactProductInquiry(t *testing.T) {
	m := &recordingMailer{}
	env := newTestEnvWithMailer(t, m)

	w := env.do(t, contactRequest(`{"name":"Ada","email":"ada@example.com","phone":"555","message":"Price?","product_name":"Drill","prod_id":"D-9"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody[api.ContactResponse](t, w)
	if !resp.Sent || resp.Subject != "Product Inquiry: Drill (ID: D-9)" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(m.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(m.sent))
	}
	msg := m.sent[0]
	if msg.From != "site@example.com" || len(msg.To) != 1 || msg.To[0] != "sales@example.com" || msg.ReplyTo != "ada@example.com" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if !strings.Contains(msg.HTML, "New Product Inquiry") || !strings.Contains(msg.HTML, "D-9") {
		t.Fatalf("unexpected body: %s", msg.HTML)
	}
}

func TestContactValidation(t *testing.T) {
	m := &recordingMailer{}
	env := newTestEnvWithMailer(t, m)

	expectError(t, env.do(t, contactRequest(`{"name":"Ada","email":"ada@example.com"}`)), http.StatusBadRequest, ErrCodeMissingRequired)
	expectError(t, env.do(t, contactRequest(`{"name":"Ada","email":"not-an-email","message":"hi"}`)), http.StatusBadRequest, ErrCodeInvalidArgument)
	expectError(t, env.do(t, contactRequest(`{"name":`)), http.StatusBadRequest, ErrCodeInvalidJSON)
	if len(m.sent) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(m.sent))
	}
}

func TestContactMailFailure(t *testing.T) {
	env := newTestEnvWithMailer(t, &recordingMailer{err: errors.New("connection refused")})
	resp := expectError(t, env.do(t, contactRequest(`{"name":"Ada","email":"ada@example.com","message":"hi"}`)), http.StatusInternalServerError, ErrCodeMailFailure)
	if resp.Error != "internal error" {
		t.Fatalf("expected masked error, got %q", resp.Error)
	}
}

func TestContactWithoutMailer(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, contactRequest(`{"name":"Ada","email":"ada@example.com","message":"hi"}`)), http.StatusNotImplemented, ErrCodeNotImplemented)
}
