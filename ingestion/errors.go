package ingestion

import "errors"

var (
	// ErrEquipmentRepositoryRequired is returned when an equipment repository is not provided.
	ErrEquipmentRepositoryRequired = errors.New("equipment repository required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidBatchSize is returned when the embedding batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrMalformedDataFile is returned when the data file cannot be decoded.
	ErrMalformedDataFile = errors.New("malformed equipment data file")

	// ErrDuplicateID is returned when a data file lists the same ID twice.
	ErrDuplicateID = errors.New("duplicate equipment id")
)
