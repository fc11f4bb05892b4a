package rules

import "errors"

// Sentinel error kinds for this package. Both are fatal at startup.
var (
	ErrLoadRules    = errors.New("load rules failed")
	ErrInvalidRules = errors.New("invalid rules")
)
