package extract

import "errors"

// ErrInvalidRules is returned when a rules file cannot be parsed.
var ErrInvalidRules = errors.New("invalid filter rules")
