package store

import (
	"fmt"

	"github.com/google/uuid"
)

// newID returns a time-ordered UUIDv7 string for a new row.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
