package service

import (
	json "github.com/goccy/go-json"
	"github.com/okian/counterpick/internal/domain/hero"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/internal/domain/rules"
	"github.com/okian/counterpick/internal/domain/scoring"
	"github.com/okian/counterpick/internal/domain/types"
)

// Request asks for counter items for Ally against Enemy. An empty Phase
// means all four phases. Top <= 0 means the default.
type Request struct {
	Ally  string
	Enemy string
	Phase string
	Top   int
}

// Meta explains a single-phase ranking.
type Meta struct {
	EnemyTags     rules.TagSet         `json:"enemyTags"`
	AppliedBoosts map[string]float64   `json:"appliedBoosts"`
	TopScores     []scoring.ScoredItem `json:"topScores"`
}

// PhaseRecommendation is the single-phase answer.
type PhaseRecommendation struct {
	Ally            hero.Hero     `json:"ally"`
	Enemy           hero.Hero     `json:"enemy"`
	Phase           model.Phase   `json:"phase"`
	Recommendations types.Ranking `json:"recommendations"`
	Meta            Meta          `json:"meta"`
}

// PhaseRankings holds one ranking per phase.
type PhaseRankings struct {
	Start types.Ranking `json:"start"`
	Early types.Ranking `json:"early"`
	Mid   types.Ranking `json:"mid"`
	Late  types.Ranking `json:"late"`
}

func (r *PhaseRankings) set(p model.Phase, rk types.Ranking) {
	switch p {
	case model.PhaseStart:
		r.Start = rk
	case model.PhaseEarly:
		r.Early = rk
	case model.PhaseMid:
		r.Mid = rk
	case model.PhaseLate:
		r.Late = rk
	}
}

// Get returns the ranking for p.
func (r PhaseRankings) Get(p model.Phase) types.Ranking {
	switch p {
	case model.PhaseStart:
		return r.Start
	case model.PhaseEarly:
		return r.Early
	case model.PhaseMid:
		return r.Mid
	case model.PhaseLate:
		return r.Late
	}
	return nil
}

// AllPhaseRecommendation is the four-phase answer. The phase keys sit at the
// top level next to ally and enemy. Scores and diagnostics stay with the
// single-phase view.
type AllPhaseRecommendation struct {
	Ally  hero.Hero `json:"ally"`
	Enemy hero.Hero `json:"enemy"`
	PhaseRankings
}

// Recommendation carries exactly one of the two views.
type Recommendation struct {
	Single *PhaseRecommendation
	All    *AllPhaseRecommendation
}

// MarshalJSON encodes whichever view is set.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	if r.Single != nil {
		return json.Marshal(r.Single)
	}
	return json.Marshal(r.All)
}

// PopularityView is a hero's item counts keyed by popularity key
// ("start_game_items", ...). Named views use item display names, raw views
// use item ids.
type PopularityView struct {
	Hero   hero.Hero                 `json:"hero"`
	Named  bool                      `json:"named"`
	Phases map[string]map[string]int `json:"phases"`
}

// TimingQuery bounds an item timing lookup.
type TimingQuery struct {
	MinCount int
	Limit    int
}

// TimingsView lists median purchase minutes, earliest first.
type TimingsView struct {
	Hero     hero.Hero          `json:"hero"`
	MinCount int                `json:"minCount"`
	Limit    int                `json:"limit"`
	Timings  []types.ItemTiming `json:"timings"`
}
