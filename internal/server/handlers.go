package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"equipcat/internal/api"
)

const maxJSONBody = 1 << 20

// apiError binds an error to the status and codes a client sees. details,
// when non-nil, is encoded into the response body of a 4xx.
type apiError struct {
	status  int
	code    string
	errCode int
	err     error
	details any
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error { return e.err }

func asAPIError(err error) (apiError, bool) {
	var apiErr apiError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// makeAPIError wraps err unless it already carries a status, in which case
// the inner classification wins.
func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	if existing, ok := asAPIError(err); ok && existing.status != 0 {
		return existing
	}
	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func invalidPath(err error) error {
	return makeAPIError(http.StatusBadRequest, "invalid_path", ErrCodeInvalidPath, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func conflictWithDetails(err error, code int, details any) error {
	return apiError{status: http.StatusConflict, code: "conflict", errCode: code, err: err, details: details}
}

func notImplemented(err error) error {
	return makeAPIError(http.StatusNotImplemented, "not_implemented", ErrCodeNotImplemented, err)
}

func internalCode(err error, code int) error {
	return makeAPIError(http.StatusInternalServerError, "internal", code, err)
}

func internalError(err error) error { return internalCode(err, ErrCodeInternal) }
func storeFailure(err error) error { return internalCode(err, ErrCodeStoreFailure) }
func storageFailure(err error) error { return internalCode(err, ErrCodeStorageFailure) }
func mailFailure(err error) error { return internalCode(err, ErrCodeMailFailure) }

func httpStatusFromError(err error) int {
	if apiErr, ok := asAPIError(err); ok && apiErr.status != 0 {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	if apiErr, ok := asAPIError(err); ok && apiErr.code != "" {
		return apiErr.code
	}
	return statusFallbacks[status].code
}

func errorNumericCode(status int, err error) int {
	if apiErr, ok := asAPIError(err); ok && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return statusFallbacks[status].errCode
}

func errorDetails(err error) json.RawMessage {
	apiErr, ok := asAPIError(err)
	if !ok || apiErr.details == nil {
		return nil
	}
	encoded, marshalErr := json.Marshal(apiErr.details)
	if marshalErr != nil {
		return nil
	}
	return encoded
}

// writeErrorReq renders err as an api.ErrorResponse. Messages of 5xx errors
// stay in the log and the client only sees "internal error".
func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	resp := api.ErrorResponse{
		Code:      errorCode(status, err),
		ErrorCode: errorNumericCode(status, err),
		Error:     err.Error(),
	}
	msg := "request rejected"
	if status >= http.StatusInternalServerError {
		msg = "request error"
		resp.Error = "internal error"
	} else {
		resp.Details = errorDetails(err)
	}

	ctx := context.Background()
	fields := []any{"status", status, "code", resp.Code, "error_code", resp.ErrorCode, "error", err}
	if r != nil {
		ctx = r.Context()
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}
	s.log().Log(ctx, requestLogLevel(status), msg, fields...)

	s.writeJSON(w, status, resp)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

func isUniqueConstraint(err error) bool {
	return sqliteConstraint(err, "UNIQUE")
}

func isForeignKeyConstraint(err error) bool {
	return sqliteConstraint(err, "FOREIGN KEY")
}

func sqliteConstraint(err error, kind string) bool {
	return err != nil && strings.Contains(err.Error(), kind+" constraint failed")
}

// decodeJSON reads one JSON value from a size-capped body and classifies
// any failure as a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return badRequestCode(errors.New("request body too large"), ErrCodeRequestTooLarge)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return badRequestCode(errors.New("invalid JSON payload"), ErrCodeInvalidJSON)
	default:
		return badRequestCode(err, ErrCodeInvalidJSON)
	}
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

func queryIntDefault(r *http.Request, key string, def int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, badRequestCode(fmt.Errorf("invalid %s", key), ErrCodeInvalidQuery)
	}
	return parsed, nil
}
