package opendota

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/internal/domain/types"
)

// The stats source is loosely typed. These decoders accept the shapes seen
// in the wild and degrade to zero values instead of failing the whole payload.

// flexString accepts a string or an array of strings, joined with spaces.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var arr []any
	if err := json.Unmarshal(b, &arr); err == nil {
		parts := make([]string, 0, len(arr))
		for _, v := range arr {
			if x, ok := v.(string); ok && x != "" {
				parts = append(parts, x)
			}
		}
		*s = flexString(strings.Join(parts, " "))
		return nil
	}
	*s = ""
	return nil
}

// flexCount accepts a number or a numeric string. Anything else is 0.
// Values are clamped to [0, math.MaxInt32].
type flexCount int

func (c *flexCount) UnmarshalJSON(b []byte) error {
	f := parseFlexFloat(b)
	switch {
	case math.IsNaN(f) || f <= 0:
		*c = 0
	case f >= math.MaxInt32:
		*c = math.MaxInt32
	default:
		*c = flexCount(int(f))
	}
	return nil
}

// flexFloat is flexCount for fractional values.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat(parseFlexFloat(b))
	return nil
}

func parseFlexFloat(b []byte) float64 {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}

// heroAbilityEntry accepts either ["ability", ...] or {"abilities": [...]}.
type heroAbilityEntry []string

func (e *heroAbilityEntry) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*e = list
		return nil
	}
	var obj struct {
		Abilities []string `json:"abilities"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		*e = obj.Abilities
		return nil
	}
	*e = nil
	return nil
}

type abilityRecord struct {
	DisplayName flexString `json:"dname"`
	Description flexString `json:"desc"`
	Lore        flexString `json:"lore"`
	Notes       flexString `json:"notes"`
}

func (r abilityRecord) ability() model.Ability {
	return model.Ability{
		DisplayName: string(r.DisplayName),
		Description: string(r.Description),
		Lore:        string(r.Lore),
		Notes:       string(r.Notes),
	}
}

type itemRecord struct {
	ID          *int       `json:"id"`
	DisplayName flexString `json:"dname"`
}

type heroStatRecord struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	LocalizedName flexString `json:"localized_name"`
	Roles         []any      `json:"roles"`
}

func (r heroStatRecord) meta() model.HeroMeta {
	roles := make([]string, 0, len(r.Roles))
	for _, v := range r.Roles {
		if s, ok := v.(string); ok && s != "" {
			roles = append(roles, s)
		}
	}
	return model.HeroMeta{
		ID:            r.ID,
		Name:          r.Name,
		LocalizedName: string(r.LocalizedName),
		Roles:         roles,
	}
}

type timingRecord struct {
	ItemKey   flexString `json:"item_key"`
	MedianMin flexFloat  `json:"median_min"`
	Uses      flexCount  `json:"uses"`
}

type explorerResponse struct {
	Rows []json.RawMessage `json:"rows"`
}

func decodeHeroStats(b []byte) ([]model.HeroMeta, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make([]model.HeroMeta, 0, len(raw))
	for _, r := range raw {
		var rec heroStatRecord
		if err := json.Unmarshal(r, &rec); err != nil || rec.Name == "" {
			continue
		}
		out = append(out, rec.meta())
	}
	return out, nil
}

func decodeHeroAbilities(b []byte) (map[string][]string, error) {
	var raw map[string]heroAbilityEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		slug := strings.ToLower(strings.TrimPrefix(k, model.EngineHeroPrefix))
		if slug == "" {
			continue
		}
		out[slug] = v
	}
	return out, nil
}

func decodeAbilities(b []byte) (map[string]model.Ability, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]model.Ability, len(raw))
	for k, v := range raw {
		var rec abilityRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			continue
		}
		out[k] = rec.ability()
	}
	return out, nil
}

func decodeItems(b []byte) (map[int]model.Item, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(map[int]model.Item, len(raw))
	for slug, v := range raw {
		var rec itemRecord
		if err := json.Unmarshal(v, &rec); err != nil || rec.ID == nil || *rec.ID < 0 {
			continue
		}
		out[*rec.ID] = model.Item{ID: *rec.ID, Slug: slug, DisplayName: string(rec.DisplayName)}
	}
	return out, nil
}

// decodePopularity decodes each phase on its own so that one malformed phase
// does not discard the others.
func decodePopularity(b []byte) (model.RawPopularity, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(model.RawPopularity, len(raw))
	for phase, v := range raw {
		var counts map[string]flexCount
		if err := json.Unmarshal(v, &counts); err != nil {
			out[phase] = map[string]int{}
			continue
		}
		m := make(map[string]int, len(counts))
		for id, c := range counts {
			m[id] = int(c)
		}
		out[phase] = m
	}
	return out, nil
}

// DecodeTimings turns explorer rows into item timings, skipping rows without
// an item key.
func DecodeTimings(rows []json.RawMessage) []types.ItemTiming {
	out := make([]types.ItemTiming, 0, len(rows))
	for _, r := range rows {
		var rec timingRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			continue
		}
		key := strings.TrimSpace(string(rec.ItemKey))
		if key == "" {
			continue
		}
		out = append(out, types.ItemTiming{Item: key, Minute: float64(rec.MedianMin), Uses: int(rec.Uses)})
	}
	return out
}
