package policy

import "errors"

var (
	// ErrInvalidPolicyFile is returned when a policy file cannot be parsed.
	ErrInvalidPolicyFile = errors.New("invalid policy file")

	// ErrPolicyDirRequired is returned when no policy directory is given.
	ErrPolicyDirRequired = errors.New("policy directory is required")
)
