package hero

import "errors"

// ErrUnknownHero marks a hero reference that is neither a known slug nor id.
var ErrUnknownHero = errors.New("unknown hero")
