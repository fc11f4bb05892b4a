// Package tags infers trait tags for heroes from curated tables and the
// cached stats-source metadata.
package tags

import (
	"context"
	"sync"

	"github.com/okian/counterpick/internal/domain/hero"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/internal/domain/rules"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"
)

// Source supplies the current metadata snapshot.
type Source interface {
	Snapshot(ctx context.Context) *model.Snapshot
}

// Explanation breaks a hero's tags down by origin.
type Explanation struct {
	Hero       string       `json:"hero"`
	Generation uint64       `json:"generation"`
	Manual     rules.TagSet `json:"manual"`
	Roles      rules.TagSet `json:"roles"`
	Abilities  rules.TagSet `json:"abilities"`
	Patches    rules.TagSet `json:"patches"`
	Tags       rules.TagSet `json:"tags"`
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine computes hero tags. Inferred tags are memoized per snapshot
// generation; a newer generation drops the whole memo.
type Engine struct {
	source Source
	rules  *rules.Tables
	logger logger.Logger
	infer  func(snap *model.Snapshot, slug string) rules.TagSet

	mu   sync.RWMutex
	gen  uint64
	memo map[string]rules.TagSet
}

// New creates an Engine.
func New(source Source, tables *rules.Tables, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		rules:  tables,
		memo:   make(map[string]rules.TagSet),
	}
	e.infer = e.inferAll
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("tags")
	}
	return e
}

// TagsForHero returns manual tags united with inferred tags. It never fails;
// when metadata is unavailable only the manual tags remain.
func (e *Engine) TagsForHero(ctx context.Context, slug string) rules.TagSet {
	slug = hero.Normalize(slug)
	out := e.rules.ManualTags(slug)
	out.Union(e.inferred(ctx, slug))
	return out
}

// Explain recomputes the tags for slug without the memo and reports where
// each tag came from.
func (e *Engine) Explain(ctx context.Context, slug string) Explanation {
	slug = hero.Normalize(slug)
	snap := e.source.Snapshot(ctx)

	ex := Explanation{
		Hero:      slug,
		Manual:    e.rules.ManualTags(slug),
		Roles:     rules.TagSet{},
		Abilities: rules.TagSet{},
		Patches:   e.rules.Patches(slug),
	}
	if snap != nil {
		ex.Generation = snap.Generation
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Warn(ctx, "tag explanation failed", logger.String("hero", slug), logger.Any("panic", r))
				ex.Roles, ex.Abilities = rules.TagSet{}, rules.TagSet{}
			}
		}()
		ex.Roles = e.roleTags(snap, slug)
		ex.Abilities = e.abilityTags(snap, slug)
	}()

	ex.Tags = ex.Manual.Clone()
	ex.Tags.Union(ex.Roles)
	ex.Tags.Union(ex.Abilities)
	ex.Tags.Union(ex.Patches)
	return ex
}

// Observe drops the memo when gen is newer than the memoized generation.
// It is meant to be registered as a metadata install hook.
func (e *Engine) Observe(gen uint64) {
	e.mu.Lock()
	if gen > e.gen {
		e.gen = gen
		e.memo = make(map[string]rules.TagSet)
	}
	e.mu.Unlock()
}

// MemoSize reports how many heroes are memoized for the current generation.
func (e *Engine) MemoSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.memo)
}

func (e *Engine) inferred(ctx context.Context, slug string) rules.TagSet {
	snap := e.source.Snapshot(ctx)
	var gen uint64
	if snap != nil {
		gen = snap.Generation
	}

	e.mu.RLock()
	if e.gen == gen {
		if t, ok := e.memo[slug]; ok {
			e.mu.RUnlock()
			metrics.RecordTagCacheLookup(true)
			return t
		}
	}
	e.mu.RUnlock()
	metrics.RecordTagCacheLookup(false)

	// Racing first readers may both compute; the results are identical.
	t := e.safeInfer(ctx, snap, slug)
	e.logger.Debug(ctx, "tags inferred",
		logger.String("hero", slug),
		logger.Uint64("generation", gen),
		logger.Strings("tags", t.Sorted()),
	)

	e.Observe(gen)
	e.mu.Lock()
	if e.gen == gen {
		e.memo[slug] = t
	}
	e.mu.Unlock()
	return t
}

func (e *Engine) safeInfer(ctx context.Context, snap *model.Snapshot, slug string) (out rules.TagSet) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn(ctx, "tag inference failed, using manual tags only",
				logger.String("hero", slug),
				logger.Any("panic", r),
			)
			metrics.RecordTagInferenceFailure()
			out = rules.TagSet{}
		}
	}()
	return e.infer(snap, slug)
}

func (e *Engine) inferAll(snap *model.Snapshot, slug string) rules.TagSet {
	out := e.roleTags(snap, slug)
	out.Union(e.abilityTags(snap, slug))
	out.Union(e.rules.Patches(slug))
	return out
}

func (e *Engine) roleTags(snap *model.Snapshot, slug string) rules.TagSet {
	out := rules.TagSet{}
	if h, ok := snap.Hero(slug); ok {
		for _, role := range h.Roles {
			out.Union(e.rules.RoleTags(role))
		}
	}
	return out
}

func (e *Engine) abilityTags(snap *model.Snapshot, slug string) rules.TagSet {
	out := rules.TagSet{}
	kw := e.rules.Keywords()
	for _, key := range snap.AbilityKeys(slug) {
		if a, ok := snap.Ability(key); ok {
			out.Union(kw.Match(a.Text()))
		}
	}
	return out
}
