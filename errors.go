package fabmatch

import "errors"

var (
	// ErrDBPathRequired is returned when neither a database path nor an
	// in-memory store is configured.
	ErrDBPathRequired = errors.New("database path is required")

	// ErrEquipmentFileRequired is returned by Seed when no data file is configured.
	ErrEquipmentFileRequired = errors.New("equipment file is required")
)
