// Package service orchestrates the recommendation flow: hero resolution,
// enemy tag inference, ally popularity and scoring. It also serves the
// supporting read endpoints of the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/okian/counterpick/internal/adapters/metadata"
	"github.com/okian/counterpick/internal/adapters/opendota"
	"github.com/okian/counterpick/internal/domain/hero"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/internal/domain/popularity"
	"github.com/okian/counterpick/internal/domain/rules"
	"github.com/okian/counterpick/internal/domain/scoring"
	"github.com/okian/counterpick/internal/domain/tags"
	"github.com/okian/counterpick/internal/domain/types"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Defaults for request shaping and outbound timeouts.
const (
	DefaultTop             = 6
	DefaultMaxTop          = 50
	DefaultExplorerTimeout = 15 * time.Second
	DefaultHealthTimeout   = 5 * time.Second

	minTimingCount     = 5
	minTimingLimit     = 10
	defaultTimingLimit = 50
	ageUpdateInterval  = 15 * time.Second
)

// Upstream is everything the service needs from the stats source.
type Upstream interface {
	metadata.Fetcher
	popularity.Source
	Explorer(ctx context.Context, sql string) ([]json.RawMessage, error)
	Health(ctx context.Context) (map[string]any, error)
}

// Service implements the API dependencies for the recommendation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	upstream   Upstream
	rules      *rules.Tables
	engine     *scoring.Engine
	cache      *metadata.Cache
	tags       *tags.Engine
	popularity *popularity.Aggregator

	// Configuration
	defaultTop        int
	maxTop            int
	metadataTTL       time.Duration
	metadataTimeout   time.Duration
	popularityTimeout time.Duration
	explorerTimeout   time.Duration
	healthTimeout     time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithUpstream sets the stats source client.
func WithUpstream(u Upstream) Option {
	return func(s *Service) {
		if u != nil {
			s.upstream = u
		}
	}
}

// WithRules sets the loaded rule tables.
func WithRules(t *rules.Tables) Option {
	return func(s *Service) {
		if t != nil {
			s.rules = t
		}
	}
}

// WithEngine sets a tuned scoring engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithTop sets the default and maximum result counts.
func WithTop(defaultTop, maxTop int) Option {
	return func(s *Service) {
		if defaultTop > 0 {
			s.defaultTop = defaultTop
		}
		if maxTop > 0 {
			s.maxTop = maxTop
		}
	}
}

// WithMetadata sets the metadata TTL and per-dataset fetch timeout.
func WithMetadata(ttl, fetchTimeout time.Duration) Option {
	return func(s *Service) {
		s.metadataTTL = ttl
		s.metadataTimeout = fetchTimeout
	}
}

// WithPopularityTimeout bounds the popularity fetch.
func WithPopularityTimeout(d time.Duration) Option {
	return func(s *Service) { s.popularityTimeout = d }
}

// WithExplorerTimeout bounds item timing queries.
func WithExplorerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.explorerTimeout = d
		}
	}
}

// WithHealthTimeout bounds the upstream health probe.
func WithHealthTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.healthTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires the service. Without WithRules the embedded rule tables are
// loaded; without WithUpstream the public OpenDota API is used.
func New(ctx context.Context, opts ...Option) (*Service, error) {
	s := &Service{
		defaultTop:      DefaultTop,
		maxTop:          DefaultMaxTop,
		explorerTimeout: DefaultExplorerTimeout,
		healthTimeout:   DefaultHealthTimeout,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.defaultTop > s.maxTop {
		s.defaultTop = s.maxTop
	}
	if s.rules == nil {
		t, err := rules.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load rule tables: %w", err)
		}
		s.rules = t
	}
	if s.upstream == nil {
		s.upstream = opendota.New()
	}
	if s.engine == nil {
		s.engine = scoring.New()
	}

	s.cache = metadata.New(s.upstream,
		metadata.WithTTL(s.metadataTTL),
		metadata.WithFetchTimeout(s.metadataTimeout),
	)
	s.tags = tags.New(s.cache, s.rules)
	s.cache.OnInstall(func(snap *model.Snapshot) { s.tags.Observe(snap.Generation) })
	s.popularity = popularity.New(s.upstream, popularity.WithTimeout(s.popularityTimeout))
	return s, nil
}

// Start warms the metadata cache in the background and keeps the snapshot
// age gauge current.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting recommendation service...")

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cache.Snapshot(bg)

		ticker := time.NewTicker(ageUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				metrics.UpdateMetadataSnapshotAge(s.cache.Age())
			}
		}
	}()

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("defaultTop", s.defaultTop),
		logger.Int("maxTop", s.maxTop),
	)
	return nil
}

// Stop stops background work.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping recommendation service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(context.Background(), "recommendation service stopped")
}

// Recommend ranks counter items for req. Caller mistakes are reported as
// ErrInvalidRequest before any upstream call; upstream trouble only thins
// the result.
func (s *Service) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	ally, err := resolve("ally", req.Ally)
	if err != nil {
		return Recommendation{}, err
	}
	enemy, err := resolve("enemy", req.Enemy)
	if err != nil {
		return Recommendation{}, err
	}
	phase, single, err := parsePhase(req.Phase)
	if err != nil {
		return Recommendation{}, err
	}
	top := s.top(req.Top)

	var (
		enemyTags rules.TagSet
		pop       model.PopularityTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		enemyTags = s.tags.TagsForHero(gctx, enemy.Slug)
		return nil
	})
	g.Go(func() error {
		pop = s.popularity.Named(gctx, ally.ID)
		return nil
	})
	_ = g.Wait()

	if single {
		res := s.score(phase, enemyTags, pop, top)
		return Recommendation{Single: &PhaseRecommendation{
			Ally:            ally,
			Enemy:           enemy,
			Phase:           phase,
			Recommendations: res.Recommendations,
			Meta: Meta{
				EnemyTags:     enemyTags,
				AppliedBoosts: res.Meta.AppliedBoosts,
				TopScores:     res.Meta.TopScores,
			},
		}}, nil
	}

	all := &AllPhaseRecommendation{Ally: ally, Enemy: enemy}
	for _, p := range model.Phases {
		all.set(p, s.score(p, enemyTags, pop, top).Recommendations)
	}
	return Recommendation{All: all}, nil
}

func (s *Service) score(p model.Phase, enemyTags rules.TagSet, pop model.PopularityTable, top int) scoring.Result {
	start := time.Now()
	res := s.engine.Score(pop.Phase(p), s.rules.BoostsFor(enemyTags, p), top)
	metrics.RecordScoring(float64(time.Since(start).Microseconds())/1000, len(res.Items))
	metrics.RecordRecommendation(string(p))
	return res
}

func (s *Service) top(n int) int {
	if n <= 0 {
		n = s.defaultTop
	}
	return min(n, s.maxTop)
}

// Popularity returns the hero's item counts, all phases or just one.
func (s *Service) Popularity(ctx context.Context, ref, phase string, named bool) (PopularityView, error) {
	h, err := resolve("hero", ref)
	if err != nil {
		return PopularityView{}, err
	}
	p, single, err := parsePhase(phase)
	if err != nil {
		return PopularityView{}, err
	}

	view := PopularityView{Hero: h, Named: named, Phases: make(map[string]map[string]int, len(model.Phases))}
	if named {
		table := s.popularity.Named(ctx, h.ID)
		for _, ph := range model.Phases {
			view.Phases[ph.PopularityKey()] = table.Phase(ph)
		}
	} else {
		for k, v := range s.popularity.Raw(ctx, h.ID) {
			view.Phases[k] = v
		}
	}
	if single {
		view.Phases = map[string]map[string]int{p.PopularityKey(): view.Phases[p.PopularityKey()]}
	}
	return view, nil
}

// HeroTags explains where a hero's tags come from.
func (s *Service) HeroTags(ctx context.Context, ref string) (tags.Explanation, error) {
	h, err := resolve("hero", ref)
	if err != nil {
		return tags.Explanation{}, err
	}
	return s.tags.Explain(ctx, h.Slug), nil
}

// ItemTimings returns median purchase minutes per item from the explorer.
// Failures yield an empty list.
func (s *Service) ItemTimings(ctx context.Context, ref string, q TimingQuery) (TimingsView, error) {
	h, err := resolve("hero", ref)
	if err != nil {
		return TimingsView{}, err
	}
	minCount := max(minTimingCount, q.MinCount)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTimingLimit
	}
	limit = max(minTimingLimit, limit)

	view := TimingsView{Hero: h, MinCount: minCount, Limit: limit, Timings: []types.ItemTiming{}}
	qctx, cancel := context.WithTimeout(ctx, s.explorerTimeout)
	defer cancel()
	rows, err := s.upstream.Explorer(qctx, timingSQL(h.ID, minCount, limit))
	if err != nil {
		s.logger.Warn(ctx, "item timings unavailable",
			logger.String("hero", h.Slug),
			logger.Error(err),
		)
		return view, nil
	}
	view.Timings = opendota.DecodeTimings(rows)
	return view, nil
}

func timingSQL(heroID, minCount, limit int) string {
	return fmt.Sprintf(`WITH pls AS (
  SELECT pm.purchase_log
  FROM player_matches pm
  WHERE pm.hero_id = %d
  AND pm.purchase_log IS NOT NULL
  LIMIT 50000
),
items AS (
  SELECT (pl->>'key') AS item_key,
         ((pl->>'time')::int)/60.0 AS minute
  FROM pls, LATERAL jsonb_array_elements(purchase_log) AS pl
  WHERE (pl->>'time') ~ '^[0-9]+$'
),
agg AS (
  SELECT item_key,
         percentile_disc(0.5) WITHIN GROUP (ORDER BY minute) AS median_min,
         COUNT(*) AS uses
  FROM items
  GROUP BY item_key
  HAVING COUNT(*) >= %d
)
SELECT item_key, median_min, uses
FROM agg
ORDER BY median_min
LIMIT %d;`, heroID, minCount, limit)
}

// UpstreamHealth passes the stats source's health document through.
func (s *Service) UpstreamHealth(ctx context.Context) map[string]any {
	hctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()
	h, err := s.upstream.Health(hctx)
	if err != nil {
		s.logger.Warn(ctx, "upstream health unavailable", logger.Error(err))
		return map[string]any{"status": "unavailable", "error": err.Error()}
	}
	return h
}

// Heroes lists the hero table.
func (s *Service) Heroes() []hero.Hero {
	return hero.All()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]any{
		"started":            started,
		"metadataGeneration": s.cache.Generation(),
		"metadataAgeSeconds": s.cache.Age().Seconds(),
		"tagMemo":            s.tags.MemoSize(),
		"itemCatalog":        s.popularity.CatalogSize(),
		"rules":              s.rules.Summary(),
		"defaultTop":         s.defaultTop,
		"maxTop":             s.maxTop,
	}
	if snap := s.cache.Current(); snap != nil {
		stats["heroes"] = len(snap.Heroes)
		stats["abilities"] = len(snap.Abilities)
	}
	if b, ok := s.upstream.(interface{ BreakerState() string }); ok {
		stats["breaker"] = b.BreakerState()
	}
	metrics.UpdateMetadataSnapshotAge(s.cache.Age())
	return stats
}

func resolve(role, ref string) (hero.Hero, error) {
	h, err := hero.Resolve(ref)
	if err != nil {
		return hero.Hero{}, fmt.Errorf("%w: %s %q: %w", ErrInvalidRequest, role, ref, err)
	}
	return h, nil
}

// parsePhase returns single=false for an empty phase.
func parsePhase(raw string) (model.Phase, bool, error) {
	if strings.TrimSpace(raw) == "" {
		return "", false, nil
	}
	p, err := model.ParsePhase(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return p, true, nil
}
