package sdk

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateID checks that value is a UUID, which is how the backend identifies
// users and sessions.
func ValidateID(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("invalid %s %q: %w", kind, value, err)
	}
	return nil
}
