package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidEquipment indicates an Equipment failed validation.
	ErrInvalidEquipment = errors.New("invalid equipment")

	// ErrEmptyEquipmentID indicates the ID field is empty.
	ErrEmptyEquipmentID = errors.New("equipment id cannot be empty")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("equipment name cannot be empty")

	// ErrInvalidTemperatureRange indicates TempMin is greater than TempMax.
	ErrInvalidTemperatureRange = errors.New("temperature minimum exceeds maximum")

	// ErrInvalidWaferSize indicates a wafer size is not of the form "<n> inch".
	ErrInvalidWaferSize = errors.New("invalid wafer size")
)
