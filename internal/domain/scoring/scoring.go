// Package scoring ranks items by blending popularity counts with counter
// boosts. The computation is pure: no I/O and no shared state.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/counterpick/internal/domain/types"
)

// Default scoring constants.
const (
	// VirtualBase is the synthetic count given to boosted items that have no
	// popularity data.
	VirtualBase = 25
	// Gamma damps raw popularity counts.
	Gamma = 0.70
	// Beta amplifies boosts.
	Beta = 1.50
	// BoostFloor is the minimum effective boost of any positively boosted item.
	BoostFloor = 0.20
	// TopScoresLimit caps the diagnostic rows in Meta.
	TopScoresLimit = 10
)

// ScoredItem is one ranked item with its score breakdown. Boost is the raw
// summed boost before the floor is applied.
type ScoredItem struct {
	Item  string  `json:"item"`
	Count int     `json:"count"`
	Boost float64 `json:"boost"`
	Score float64 `json:"score"`
}

// Meta carries explainability data for a ranking.
type Meta struct {
	AppliedBoosts map[string]float64 `json:"appliedBoosts"`
	TopScores     []ScoredItem       `json:"topScores"`
}

// Result is the output of Score.
type Result struct {
	// Items is the truncated ranking with full breakdown.
	Items []ScoredItem
	// Recommendations is Items reduced to item -> count in rank order.
	Recommendations types.Ranking
	Meta            Meta
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithExponents sets the popularity damping and boost amplification exponents.
func WithExponents(gamma, beta float64) Option {
	return func(e *Engine) {
		if gamma > 0 {
			e.gamma = gamma
		}
		if beta > 0 {
			e.beta = beta
		}
	}
}

// WithVirtualBase sets the synthetic count for boost-only items.
func WithVirtualBase(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.virtualBase = n
		}
	}
}

// WithBoostFloor sets the minimum effective boost.
func WithBoostFloor(f float64) Option {
	return func(e *Engine) {
		if f >= 0 {
			e.boostFloor = f
		}
	}
}

// Engine scores items. The zero value is not usable; call New.
type Engine struct {
	virtualBase int
	gamma       float64
	beta        float64
	boostFloor  float64
}

// New creates an Engine with the default constants.
func New(opts ...Option) *Engine {
	e := &Engine{
		virtualBase: VirtualBase,
		gamma:       Gamma,
		beta:        Beta,
		boostFloor:  BoostFloor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ItemScore returns max(1, count)^gamma * (1 + effectiveBoost)^beta where the
// effective boost is raised to the floor when positive and is 0 otherwise.
func (e *Engine) ItemScore(count int, boost float64) float64 {
	eb := 0.0
	if boost > 0 {
		eb = math.Max(boost, e.boostFloor)
	}
	return math.Pow(float64(max(1, count)), e.gamma) * math.Pow(1+eb, e.beta)
}

// Score ranks every item of popularity plus every boosted item missing from
// it, which enters with the virtual base count. Results are ordered by score
// descending, then item name ascending, and truncated to max(1, topN).
// The inputs are not modified.
func (e *Engine) Score(popularity map[string]int, boosts map[string]float64, topN int) Result {
	counts := make(map[string]int, len(popularity)+len(boosts))
	for item, c := range popularity {
		counts[item] = c
	}
	for item := range boosts {
		if _, ok := counts[item]; !ok {
			counts[item] = e.virtualBase
		}
	}

	scored := make([]ScoredItem, 0, len(counts))
	for item, c := range counts {
		b := boosts[item]
		scored = append(scored, ScoredItem{
			Item:  item,
			Count: c,
			Boost: b,
			Score: e.ItemScore(c, b),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item < scored[j].Item
	})

	applied := make(map[string]float64, len(boosts))
	for item, b := range boosts {
		applied[item] = b
	}
	top := make([]ScoredItem, min(TopScoresLimit, len(scored)))
	copy(top, scored)

	items := scored[:min(max(1, topN), len(scored))]
	rec := make(types.Ranking, len(items))
	for i, s := range items {
		rec[i] = types.ItemCount{Item: s.Item, Count: s.Count}
	}

	return Result{
		Items:           items,
		Recommendations: rec,
		Meta: Meta{
			AppliedBoosts: applied,
			TopScores:     top,
		},
	}
}
