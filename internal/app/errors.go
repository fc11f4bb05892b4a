package service

import "errors"

// ErrInvalidRequest marks caller mistakes: unknown heroes, bad phases or
// out-of-range query values. It wraps the more specific cause.
var ErrInvalidRequest = errors.New("invalid request")
