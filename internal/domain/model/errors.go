package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidPhase = errors.New("invalid phase")
)
