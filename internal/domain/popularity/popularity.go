// Package popularity turns the stats source's id-keyed item purchase counts
// into per-phase counts keyed by item display name.
package popularity

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Default timeouts.
const (
	DefaultTimeout        = 5 * time.Second
	DefaultCatalogTimeout = 10 * time.Second

	unknownItemPrefix = "item#"
	catalogKey        = "catalog"
)

// Source fetches raw popularity and the item catalog.
type Source interface {
	ItemPopularity(ctx context.Context, heroID int) (model.RawPopularity, error)
	Items(ctx context.Context) (map[int]model.Item, error)
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds the popularity fetch.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCatalogTimeout bounds the item catalog fetch.
func WithCatalogTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.catalogTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Aggregator resolves popularity tables. The item catalog is loaded once and
// kept for the process lifetime; a failed load is retried on the next call.
type Aggregator struct {
	source         Source
	timeout        time.Duration
	catalogTimeout time.Duration
	logger         logger.Logger

	catalog atomic.Pointer[map[int]string]
	group   singleflight.Group
}

// New creates an Aggregator.
func New(source Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:         source,
		timeout:        DefaultTimeout,
		catalogTimeout: DefaultCatalogTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Named("popularity")
	}
	return a
}

// Named returns the hero's item counts for all four phases, keyed by item
// display name. It never fails: an upstream failure yields four empty phases.
func (a *Aggregator) Named(ctx context.Context, heroID int) model.PopularityTable {
	out := model.NewPopularityTable()
	raw, ok := a.fetch(ctx, heroID)
	if !ok {
		return out
	}

	names := a.names(ctx)
	dropped := 0
	for _, p := range model.Phases {
		counts := out[p]
		for key, c := range raw[p.PopularityKey()] {
			id, err := strconv.Atoi(key)
			if err != nil {
				dropped++
				continue
			}
			name, ok := names[id]
			if !ok {
				name = unknownItemPrefix + strconv.Itoa(id)
			}
			// Distinct ids can share a display name (recipes, levels).
			counts[name] += max(0, c)
		}
	}
	if dropped > 0 {
		a.logger.Debug(ctx, "dropped popularity rows with non-numeric ids",
			logger.Int("hero", heroID),
			logger.Int("rows", dropped),
		)
		metrics.RecordPopularityRowsDropped(dropped)
	}
	return out
}

// Raw returns the id-keyed counts with exactly the four phase keys.
func (a *Aggregator) Raw(ctx context.Context, heroID int) model.RawPopularity {
	out := make(model.RawPopularity, len(model.Phases))
	raw, _ := a.fetch(ctx, heroID)
	for _, p := range model.Phases {
		src := raw[p.PopularityKey()]
		dst := make(map[string]int, len(src))
		for k, v := range src {
			dst[k] = v
		}
		out[p.PopularityKey()] = dst
	}
	return out
}

// CatalogSize is the number of cached catalog entries, 0 before the first
// successful load.
func (a *Aggregator) CatalogSize() int {
	if m := a.catalog.Load(); m != nil {
		return len(*m)
	}
	return 0
}

func (a *Aggregator) fetch(ctx context.Context, heroID int) (model.RawPopularity, bool) {
	fctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.source.ItemPopularity(fctx, heroID)
	if err != nil {
		a.logger.Warn(ctx, "item popularity unavailable, using empty phases",
			logger.Int("hero", heroID),
			logger.Error(err),
		)
		metrics.RecordPopularityFallback()
		return nil, false
	}
	return raw, true
}

func (a *Aggregator) names(ctx context.Context) map[int]string {
	if m := a.catalog.Load(); m != nil {
		return *m
	}
	ctx = context.WithoutCancel(ctx)
	v, _, _ := a.group.Do(catalogKey, func() (any, error) {
		if m := a.catalog.Load(); m != nil {
			return *m, nil
		}
		fctx, cancel := context.WithTimeout(ctx, a.catalogTimeout)
		defer cancel()

		items, err := a.source.Items(fctx)
		if err != nil {
			a.logger.Warn(ctx, "item catalog unavailable, falling back to ids", logger.Error(err))
			return map[int]string(nil), nil
		}
		if len(items) == 0 {
			a.logger.Warn(ctx, "item catalog empty, falling back to ids")
			return map[int]string(nil), nil
		}
		m := make(map[int]string, len(items))
		for id, it := range items {
			m[id] = it.Name()
		}
		a.catalog.Store(&m)
		metrics.UpdateItemCatalogSize(len(m))
		a.logger.Info(ctx, "item catalog loaded", logger.Int("items", len(m)))
		return m, nil
	})
	m, _ := v.(map[int]string)
	return m
}
