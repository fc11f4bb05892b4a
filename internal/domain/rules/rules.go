// Package rules holds the static rule tables: curated hero tags, role and
// ability-keyword inference rules, per-hero patches, and the tag boost table.
// Tables are loaded once at startup and are read-only afterwards.
package rules

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/okian/counterpick/internal/domain/hero"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/pkg/logger"
	"gopkg.in/yaml.v3"
)

const (
	docHeroTags = "hero-tags"
	docTagRules = "tag-rules"
	docBoosts   = "tag-item-boosts"
)

//go:embed defaults/*.yaml
var defaults embed.FS

type heroTagsDoc struct {
	HeroTags map[string][]string `yaml:"hero_tags"`
}

type tagRulesDoc struct {
	Rules struct {
		RolesToTags     map[string][]string `yaml:"roles_to_tags"`
		AbilityKeywords map[string][]string `yaml:"ability_keywords"`
		Patches         map[string][]string `yaml:"patches"`
	} `yaml:"rules"`
}

type boostsDoc struct {
	TagBoosts map[string]map[string]map[string]float64 `yaml:"tag_boosts"`
}

// Tables is the immutable rule set.
type Tables struct {
	manual   map[string]TagSet
	roles    map[string]TagSet
	patches  map[string]TagSet
	keywords *KeywordMatcher
	boosts   map[string]map[model.Phase]map[string]float64
}

// Option applies a configuration option to Load.
type Option func(*loadOptions)

type loadOptions struct {
	heroTagsFile string
	tagRulesFile string
	boostsFile   string
	logger       logger.Logger
}

// WithHeroTagsFile overrides the embedded curated hero tags.
func WithHeroTagsFile(path string) Option {
	return func(o *loadOptions) { o.heroTagsFile = path }
}

// WithTagRulesFile overrides the embedded inference rules.
func WithTagRulesFile(path string) Option {
	return func(o *loadOptions) { o.tagRulesFile = path }
}

// WithBoostsFile overrides the embedded boost table.
func WithBoostsFile(path string) Option {
	return func(o *loadOptions) { o.boostsFile = path }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Load reads the three rule documents (embedded defaults unless overridden),
// validates them and builds Tables. Any error is fatal for the caller.
func Load(ctx context.Context, opts ...Option) (*Tables, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("rules")
	}

	heroTags, err := readDoc(docHeroTags, o.heroTagsFile)
	if err != nil {
		return nil, err
	}
	tagRules, err := readDoc(docTagRules, o.tagRulesFile)
	if err != nil {
		return nil, err
	}
	boosts, err := readDoc(docBoosts, o.boostsFile)
	if err != nil {
		return nil, err
	}

	t, err := Parse(heroTags, tagRules, boosts)
	if err != nil {
		return nil, err
	}

	o.logger.Info(ctx, "rule tables loaded",
		logger.Int("heroes", len(t.manual)),
		logger.Int("roles", len(t.roles)),
		logger.Int("keywords", t.keywords.Len()),
		logger.Int("patches", len(t.patches)),
		logger.Int("boostTags", len(t.boosts)),
	)
	return t, nil
}

func readDoc(name, override string) ([]byte, error) {
	if override != "" {
		b, err := os.ReadFile(override)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadRules, name, err)
		}
		return b, nil
	}
	b, err := defaults.ReadFile("defaults/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: embedded %s: %w", ErrLoadRules, name, err)
	}
	return b, nil
}

// Parse validates and decodes the three rule documents.
func Parse(heroTags, tagRules, boosts []byte) (*Tables, error) {
	var ht heroTagsDoc
	if err := decode(docHeroTags, heroTags, &ht); err != nil {
		return nil, err
	}
	var tr tagRulesDoc
	if err := decode(docTagRules, tagRules, &tr); err != nil {
		return nil, err
	}
	var bd boostsDoc
	if err := decode(docBoosts, boosts, &bd); err != nil {
		return nil, err
	}

	t := &Tables{
		manual:   tagIndex(ht.HeroTags, hero.Normalize),
		roles:    tagIndex(tr.Rules.RolesToTags, normalizeRole),
		patches:  tagIndex(tr.Rules.Patches, hero.Normalize),
		keywords: NewKeywordMatcher(tr.Rules.AbilityKeywords),
		boosts:   make(map[string]map[model.Phase]map[string]float64, len(bd.TagBoosts)),
	}
	for tag, phases := range bd.TagBoosts {
		tag = strings.TrimSpace(tag)
		byPhase := make(map[model.Phase]map[string]float64, len(phases))
		for name, weights := range phases {
			p, err := model.ParsePhase(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: tag %q: %w", ErrInvalidRules, docBoosts, tag, err)
			}
			dst := byPhase[p]
			if dst == nil {
				dst = make(map[string]float64, len(weights))
				byPhase[p] = dst
			}
			for item, w := range weights {
				dst[strings.TrimSpace(item)] += w
			}
		}
		t.boosts[tag] = byPhase
	}
	return t, nil
}

func decode(name string, data []byte, out any) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRules, name, err)
	}
	if err := validate(name, raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRules, name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRules, name, err)
	}
	return nil
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func tagIndex(src map[string][]string, key func(string) string) map[string]TagSet {
	out := make(map[string]TagSet, len(src))
	for k, tags := range src {
		nk := key(k)
		if nk == "" {
			continue
		}
		set, ok := out[nk]
		if !ok {
			set = TagSet{}
			out[nk] = set
		}
		for _, tag := range tags {
			set.Add(strings.TrimSpace(tag))
		}
	}
	return out
}

// ManualTags returns a copy of the curated tags for slug.
func (t *Tables) ManualTags(slug string) TagSet {
	return t.manual[hero.Normalize(slug)].Clone()
}

// RoleTags returns the tags implied by a roster role, matched case-insensitively.
func (t *Tables) RoleTags(role string) TagSet {
	return t.roles[normalizeRole(role)].Clone()
}

// Patches returns the per-hero override tags for slug.
func (t *Tables) Patches(slug string) TagSet {
	return t.patches[hero.Normalize(slug)].Clone()
}

// Keywords returns the ability keyword matcher.
func (t *Tables) Keywords() *KeywordMatcher {
	return t.keywords
}

// BoostsFor sums, per item, the phase weights of every tag in tags. Tags
// without an entry for phase contribute nothing.
func (t *Tables) BoostsFor(tags TagSet, phase model.Phase) map[string]float64 {
	out := make(map[string]float64)
	for tag := range tags {
		for item, w := range t.boosts[tag][phase] {
			out[item] += w
		}
	}
	return out
}

// Summary reports table sizes for diagnostics.
func (t *Tables) Summary() map[string]int {
	return map[string]int{
		"heroTags":  len(t.manual),
		"roles":     len(t.roles),
		"keywords":  t.keywords.Len(),
		"patches":   len(t.patches),
		"boostTags": len(t.boosts),
	}
}
