// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Phase is one of the four coarse stages of a match.
type Phase string

// Known phases.
const (
	PhaseStart Phase = "start"
	PhaseEarly Phase = "early"
	PhaseMid   Phase = "mid"
	PhaseLate  Phase = "late"
)

// Phases lists every phase in match order.
var Phases = []Phase{PhaseStart, PhaseEarly, PhaseMid, PhaseLate}

const popularitySuffix = "_game_items"

var phaseAliases = map[string]Phase{
	"start":    PhaseStart,
	"starting": PhaseStart,
	"lane":     PhaseStart,
	"early":    PhaseEarly,
	"mid":      PhaseMid,
	"midgame":  PhaseMid,
	"late":     PhaseLate,
	"lategame": PhaseLate,
}

// ParsePhase maps user input (including common aliases and popularity keys
// such as "mid_game_items") to a Phase.
func ParsePhase(s string) (Phase, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, popularitySuffix)
	if p, ok := phaseAliases[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}

// PopularityKey is the key the stats source uses for this phase.
func (p Phase) PopularityKey() string {
	return string(p) + popularitySuffix
}

func (p Phase) String() string { return string(p) }
