package api

import (
	"encoding/json"
	"fmt"
)

// APIError is a structured error returned by the HTTP API.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
	Details   json.RawMessage
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Status > 0 {
		return fmt.Sprintf("api error: %d", e.Status)
	}
	return "api error"
}

// DecodeDetails unmarshals the error details into dst.
// It returns false when the error carried no details.
func (e *APIError) DecodeDetails(dst any) (bool, error) {
	if e == nil || len(e.Details) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(e.Details, dst); err != nil {
		return false, err
	}
	return true, nil
}
