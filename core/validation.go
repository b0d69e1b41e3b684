package core

import (
	"fmt"
	"regexp"
)

var waferSizePattern = regexp.MustCompile(`^\d+ inch$`)

// ValidateEquipment validates an Equipment according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Name must not be empty
//   - TempMin must not exceed TempMax when both are known
//   - Wafer sizes must be normalized ("6 inch")
//
// NOT validated (populated by ingestion):
//   - Vector (empty until embedded)
//   - InsertedAt/UpdatedAt
func ValidateEquipment(e *Equipment) error {
	if e == nil {
		return fmt.Errorf("%w: equipment is nil", ErrInvalidEquipment)
	}

	if e.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEquipment, ErrEmptyEquipmentID)
	}

	if e.Name == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidEquipment, e.ID, ErrEmptyName)
	}

	if e.TempMin != nil && e.TempMax != nil && *e.TempMin > *e.TempMax {
		return fmt.Errorf("%w: %s: %w", ErrInvalidEquipment, e.ID, ErrInvalidTemperatureRange)
	}

	for _, size := range e.WaferSizes {
		if !waferSizePattern.MatchString(size) {
			return fmt.Errorf("%w: %s: %w %q", ErrInvalidEquipment, e.ID, ErrInvalidWaferSize, size)
		}
	}

	return nil
}
