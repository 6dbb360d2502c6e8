package validation

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
)

// ParseID parses a positive integer path identifier.
func ParseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrInvalidID, raw)
	}
	return id, nil
}

// ValidateUUID checks that raw is a UUID, as used by banner ids.
func ValidateUUID(raw string) error {
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidID, raw)
	}
	return nil
}
