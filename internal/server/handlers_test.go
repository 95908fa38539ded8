package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMakeAPIErrorKeepsInnerClassification(t *testing.T) {
	inner := notFoundCode(errors.New("product not found"), ErrCodeEntityNotFound)
	err := storeFailure(fmt.Errorf("load: %w", inner))

	if got := httpStatusFromError(err); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
	if got := errorNumericCode(http.StatusInternalServerError, err); got != ErrCodeEntityNotFound {
		t.Fatalf("expected %d, got %d", ErrCodeEntityNotFound, got)
	}
	if got := httpStatusFromError(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unclassified error, got %d", got)
	}
}

func TestErrorCodesFallBackToStatus(t *testing.T) {
	plain := errors.New("boom")
	cases := []struct {
		status  int
		code    string
		errCode int
	}{
		{http.StatusBadRequest, "invalid_argument", ErrCodeInvalidArgument},
		{http.StatusForbidden, "forbidden", ErrCodeForbidden},
		{http.StatusConflict, "conflict", ErrCodeConflict},
		{http.StatusTeapot, "", 0},
	}
	for _, tc := range cases {
		if got := errorCode(tc.status, plain); got != tc.code {
			t.Errorf("status %d: code %q, want %q", tc.status, got, tc.code)
		}
		if got := errorNumericCode(tc.status, plain); got != tc.errCode {
			t.Errorf("status %d: error_code %d, want %d", tc.status, got, tc.errCode)
		}
	}
}

func TestWriteErrorReqHidesInternalMessages(t *testing.T) {
	srv := &Server{}

	w := httptest.NewRecorder()
	srv.writeServiceError(w, nil, storageFailure(errors.New("disk /var/lib/equipcat is full")))
	resp := expectError(t, w, http.StatusInternalServerError, ErrCodeStorageFailure)
	if resp.Error != "internal error" || resp.Code != "internal" || len(resp.Details) != 0 {
		t.Fatalf("unexpected 500 body: %+v", resp)
	}

	w = httptest.NewRecorder()
	srv.writeServiceError(w, nil, conflictWithDetails(errors.New("in use"), ErrCodeAssetInUse, map[string]int{"products": 2}))
	resp = expectError(t, w, http.StatusConflict, ErrCodeAssetInUse)
	if resp.Error != "in use" || string(resp.Details) != `{"products":2}` {
		t.Fatalf("unexpected 409 body: %+v", resp)
	}
}

func TestDecodeJSONClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		errCode int
	}{
		{"empty", "", ErrCodeInvalidJSON},
		{"truncated", `{"name":`, ErrCodeInvalidJSON},
		{"wrong type", `{"name": 3}`, ErrCodeInvalidJSON},
		{"too large", `{"name":"` + strings.Repeat("x", maxJSONBody) + `"}`, ErrCodeRequestTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewBufferString(tc.body))
			var dst struct {
				Name string `json:"name"`
			}
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if got := httpStatusFromError(err); got != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%v)", got, err)
			}
			if got := errorNumericCode(http.StatusBadRequest, err); got != tc.errCode {
				t.Fatalf("expected error_code %d, got %d", tc.errCode, got)
			}
		})
	}

	r := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewBufferString(`{"name":"Drills"}`))
	var dst struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(httptest.NewRecorder(), r, &dst); err != nil || dst.Name != "Drills" {
		t.Fatalf("decode valid body: %+v (%v)", dst, err)
	}
}

func TestSQLiteConstraintMatching(t *testing.T) {
	unique := errors.New("constraint failed: UNIQUE constraint failed: categories.slug (2067)")
	fk := errors.New("constraint failed: FOREIGN KEY constraint failed (787)")
	if !isUniqueConstraint(unique) || isUniqueConstraint(fk) || isUniqueConstraint(nil) {
		t.Fatal("unique constraint matching is wrong")
	}
	if !isForeignKeyConstraint(fk) || isForeignKeyConstraint(unique) {
		t.Fatal("foreign key constraint matching is wrong")
	}
}
