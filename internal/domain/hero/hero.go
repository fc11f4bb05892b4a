// Package hero resolves caller-supplied hero references against the fixed
// slug/id table. Resolution never performs I/O.
package hero

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Hero is identified by a numeric id and a canonical lowercase slug.
type Hero struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
}

// aliases maps localized names to engine slugs where they differ.
var aliases = map[string]string{
	"anti_mage":          "antimage",
	"queen_of_pain":      "queenofpain",
	"natures_prophet":    "furion",
	"nature's_prophet":   "furion",
	"wraith_king":        "skeleton_king",
	"necrophos":          "necrolyte",
	"clockwerk":          "rattletrap",
	"io":                 "wisp",
	"timbersaw":          "shredder",
	"outworld_destroyer": "obsidian_destroyer",
	"outworld_devourer":  "obsidian_destroyer",
	"doom":               "doom_bringer",
	"lifestealer":        "life_stealer",
	"magnus":             "magnataur",
	"underlord":          "abyssal_underlord",
	"treant_protector":   "treant",
	"centaur_warrunner":  "centaur",
}

var (
	bySlug = make(map[string]Hero, len(roster))
	byID   = make(map[int]Hero, len(roster))
)

func init() {
	for _, h := range roster {
		bySlug[h.Slug] = h
		byID[h.ID] = h
	}
}

// Normalize lowercases ref and replaces spaces and hyphens with underscores.
func Normalize(ref string) string {
	s := strings.ToLower(strings.TrimSpace(ref))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// Resolve accepts a numeric id or a slug (any case, spaces allowed) and
// returns the matching hero. Unknown references return ErrUnknownHero.
func Resolve(ref string) (Hero, error) {
	s := Normalize(ref)
	if s == "" {
		return Hero{}, fmt.Errorf("%w: empty reference", ErrUnknownHero)
	}
	if id, err := strconv.Atoi(s); err == nil {
		if h, ok := byID[id]; ok {
			return h, nil
		}
		return Hero{}, fmt.Errorf("%w: id %d", ErrUnknownHero, id)
	}
	if h, ok := BySlug(s); ok {
		return h, nil
	}
	return Hero{}, fmt.Errorf("%w: %q", ErrUnknownHero, ref)
}

// BySlug looks up a normalized slug, following aliases.
func BySlug(slug string) (Hero, bool) {
	if canon, ok := aliases[slug]; ok {
		slug = canon
	}
	h, ok := bySlug[slug]
	return h, ok
}

// ByID looks up a hero id.
func ByID(id int) (Hero, bool) {
	h, ok := byID[id]
	return h, ok
}

// All returns every hero ordered by id.
func All() []Hero {
	out := make([]Hero, len(roster))
	copy(out, roster)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
