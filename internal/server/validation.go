package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

func validateID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func requirePathID(r *http.Request, key string) (string, error) {
	id := strings.TrimSpace(r.PathValue(key))
	if !validateID(id) {
		return "", badRequestCode(fmt.Errorf("invalid %s", key), ErrCodeInvalidID)
	}
	return id, nil
}

func requireBodyID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", badRequestCode(fmt.Errorf("id is required"), ErrCodeMissingRequired)
	}
	if !validateID(id) {
		return "", badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}
	return id, nil
}

func (s *Server) pathIDOrBadRequest(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	id, err := requirePathID(r, key)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

// requireFields returns a missing-field error naming the first empty value.
// Pairs are given as name, value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return badRequestCode(fmt.Errorf("%s is required", pairs[i]), ErrCodeMissingRequired)
		}
	}
	return nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequestCode(fmt.Errorf("date: expected RFC3339 or YYYY-MM-DD format"), ErrCodeInvalidArgument)
}
