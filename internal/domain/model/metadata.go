package model

import (
	"strings"
	"time"
)

// EngineHeroPrefix prefixes hero names in the stats source's metadata.
const EngineHeroPrefix = "npc_dota_hero_"

// HeroMeta is one roster row from the stats source.
type HeroMeta struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	LocalizedName string   `json:"localized_name"`
	Roles         []string `json:"roles"`
}

// Slug strips the engine prefix from Name.
func (h HeroMeta) Slug() string {
	return strings.ToLower(strings.TrimPrefix(h.Name, EngineHeroPrefix))
}

// Ability holds the free-text fields keyword matching runs over.
type Ability struct {
	DisplayName string
	Description string
	Lore        string
	Notes       string
}

// Text is the lowercased haystack for keyword matching: the display name
// followed by description, display name, lore and notes.
func (a Ability) Text() string {
	var b strings.Builder
	b.WriteString(a.DisplayName)
	for _, f := range []string{a.Description, a.DisplayName, a.Lore, a.Notes} {
		if f == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f)
	}
	return strings.ToLower(b.String())
}

// Item is one entry of the item catalog.
type Item struct {
	ID          int
	Slug        string
	DisplayName string
}

// Name prefers the display name and falls back to a prettified slug.
func (i Item) Name() string {
	if n := strings.TrimSpace(i.DisplayName); n != "" {
		return n
	}
	return Prettify(i.Slug)
}

// Prettify turns "black_king_bar" into "Black King Bar".
func Prettify(slug string) string {
	parts := strings.Split(slug, "_")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(out, " ")
}

// Snapshot is an immutable bundle of externally fetched metadata. It is
// replaced wholesale on refresh and must not be mutated after NewSnapshot.
type Snapshot struct {
	Heroes        []HeroMeta
	HeroAbilities map[string][]string
	Abilities     map[string]Ability
	FetchedAt     time.Time
	Generation    uint64

	bySlug map[string]int
}

// NewSnapshot indexes the roster by slug. Nil inputs become empty values.
func NewSnapshot(heroes []HeroMeta, heroAbilities map[string][]string, abilities map[string]Ability, fetchedAt time.Time, generation uint64) *Snapshot {
	if heroAbilities == nil {
		heroAbilities = map[string][]string{}
	}
	if abilities == nil {
		abilities = map[string]Ability{}
	}
	s := &Snapshot{
		Heroes:        heroes,
		HeroAbilities: heroAbilities,
		Abilities:     abilities,
		FetchedAt:     fetchedAt,
		Generation:    generation,
		bySlug:        make(map[string]int, len(heroes)),
	}
	for i, h := range heroes {
		if slug := h.Slug(); slug != "" {
			if _, dup := s.bySlug[slug]; !dup {
				s.bySlug[slug] = i
			}
		}
	}
	return s
}

// Hero finds a roster row by slug.
func (s *Snapshot) Hero(slug string) (HeroMeta, bool) {
	if s == nil {
		return HeroMeta{}, false
	}
	i, ok := s.bySlug[slug]
	if !ok {
		return HeroMeta{}, false
	}
	return s.Heroes[i], true
}

// AbilityKeys returns the hero's ability keys, or nil.
func (s *Snapshot) AbilityKeys(slug string) []string {
	if s == nil {
		return nil
	}
	return s.HeroAbilities[slug]
}

// Ability looks up ability details by key.
func (s *Snapshot) Ability(key string) (Ability, bool) {
	if s == nil {
		return Ability{}, false
	}
	a, ok := s.Abilities[key]
	return a, ok
}

// Empty reports whether every dataset is empty.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Heroes) == 0 && len(s.HeroAbilities) == 0 && len(s.Abilities) == 0)
}
