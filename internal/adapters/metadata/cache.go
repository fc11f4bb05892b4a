// Package metadata caches the hero roster, hero abilities and ability
// details fetched from the stats source. The cached snapshot is swapped
// atomically and refreshed at most once at a time.
package metadata

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Default cache settings.
const (
	DefaultTTL          = 30 * time.Minute
	DefaultFetchTimeout = 10 * time.Second

	refreshKey = "refresh"
)

// Dataset names used in logs and metrics.
const (
	DatasetHeroes        = "heroes"
	DatasetHeroAbilities = "hero_abilities"
	DatasetAbilities     = "abilities"
)

// Fetcher loads the three metadata datasets.
type Fetcher interface {
	HeroStats(ctx context.Context) ([]model.HeroMeta, error)
	HeroAbilities(ctx context.Context) (map[string][]string, error)
	Abilities(ctx context.Context) (map[string]model.Ability, error)
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long a snapshot stays fresh.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFetchTimeout bounds each dataset fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cache serves metadata snapshots, refreshing them when stale.
type Cache struct {
	fetcher      Fetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       logger.Logger

	current atomic.Pointer[model.Snapshot]
	group   singleflight.Group

	mu    sync.RWMutex
	hooks []func(*model.Snapshot)
}

// New creates a Cache. Nothing is fetched until the first Snapshot call.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:      f,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("metadata")
	}
	return c
}

// OnInstall registers fn to run after every snapshot install.
func (c *Cache) OnInstall(fn func(*model.Snapshot)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Snapshot returns the current snapshot, refreshing it first when it is
// absent or older than the TTL. It never fails: datasets that could not be
// fetched are empty.
func (c *Cache) Snapshot(ctx context.Context) *model.Snapshot {
	if s := c.current.Load(); !c.stale(s) {
		return s
	}
	return c.refresh(ctx, false)
}

// Refresh forces a refresh. Concurrent callers still share one fetch.
func (c *Cache) Refresh(ctx context.Context) *model.Snapshot {
	return c.refresh(ctx, true)
}

// Current returns the installed snapshot without refreshing. It may be nil.
func (c *Cache) Current() *model.Snapshot {
	return c.current.Load()
}

// Generation is the installed snapshot's generation, 0 before the first install.
func (c *Cache) Generation() uint64 {
	if s := c.current.Load(); s != nil {
		return s.Generation
	}
	return 0
}

// Age is the time since the installed snapshot was fetched.
func (c *Cache) Age() time.Duration {
	if s := c.current.Load(); s != nil {
		return c.now().Sub(s.FetchedAt)
	}
	return 0
}

func (c *Cache) stale(s *model.Snapshot) bool {
	return s == nil || c.now().Sub(s.FetchedAt) >= c.ttl
}

func (c *Cache) refresh(ctx context.Context, force bool) *model.Snapshot {
	// The shared fetch must not die with whichever caller started it.
	ctx = context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(refreshKey, func() (any, error) {
		if s := c.current.Load(); !force && !c.stale(s) {
			return s, nil
		}
		return c.load(ctx), nil
	})
	return v.(*model.Snapshot)
}

func (c *Cache) load(ctx context.Context) *model.Snapshot {
	start := time.Now()

	var (
		heroes        []model.HeroMeta
		heroAbilities map[string][]string
		abilities     map[string]model.Ability
		failed        atomic.Int32
	)
	var g errgroup.Group
	g.Go(func() error {
		var ok bool
		if heroes, ok = fetchDataset(ctx, c, DatasetHeroes, c.fetcher.HeroStats); !ok {
			failed.Add(1)
		}
		return nil
	})
	g.Go(func() error {
		var ok bool
		if heroAbilities, ok = fetchDataset(ctx, c, DatasetHeroAbilities, c.fetcher.HeroAbilities); !ok {
			failed.Add(1)
		}
		return nil
	})
	g.Go(func() error {
		var ok bool
		if abilities, ok = fetchDataset(ctx, c, DatasetAbilities, c.fetcher.Abilities); !ok {
			failed.Add(1)
		}
		return nil
	})
	_ = g.Wait()

	var gen uint64 = 1
	if prev := c.current.Load(); prev != nil {
		gen = prev.Generation + 1
	}
	snap := model.NewSnapshot(heroes, heroAbilities, abilities, c.now(), gen)
	c.current.Store(snap)

	outcome := "complete"
	switch failed.Load() {
	case 0:
	case 3:
		outcome = "failed"
	default:
		outcome = "partial"
	}
	took := time.Since(start)
	metrics.RecordMetadataRefresh(outcome, float64(took.Microseconds())/1000)
	metrics.UpdateMetadataSnapshot(gen, len(snap.Heroes), len(snap.Abilities))
	metrics.UpdateMetadataSnapshotAge(0)
	c.logger.Info(ctx, "metadata snapshot installed",
		logger.Uint64("generation", gen),
		logger.String("outcome", outcome),
		logger.Bool("empty", snap.Empty()),
		logger.Int("heroes", len(snap.Heroes)),
		logger.Int("heroAbilities", len(snap.HeroAbilities)),
		logger.Int("abilities", len(snap.Abilities)),
		logger.Duration("took", took),
	)

	c.mu.RLock()
	hooks := make([]func(*model.Snapshot), len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(snap)
	}
	return snap
}

func fetchDataset[T any](ctx context.Context, c *Cache, name string, fn func(context.Context) (T, error)) (T, bool) {
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	v, err := fn(fctx)
	if err != nil {
		c.logger.Warn(ctx, "metadata fetch failed, using empty dataset",
			logger.String("dataset", name),
			logger.Error(err),
		)
		metrics.RecordMetadataFetchError(name)
		var zero T
		return zero, false
	}
	return v, true
}
