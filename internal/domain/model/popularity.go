package model

// RawPopularity is the stats source's per-hero payload: popularity key
// (e.g. "early_game_items") to item id to purchase count.
type RawPopularity map[string]map[string]int

// ItemCounts maps item display name to purchase count.
type ItemCounts map[string]int

// PopularityTable maps every phase to its item counts. Tables built with
// NewPopularityTable always carry all four phases.
type PopularityTable map[Phase]ItemCounts

// NewPopularityTable returns a table with four empty phases.
func NewPopularityTable() PopularityTable {
	t := make(PopularityTable, len(Phases))
	for _, p := range Phases {
		t[p] = ItemCounts{}
	}
	return t
}

// Phase returns the counts for p, never nil.
func (t PopularityTable) Phase(p Phase) ItemCounts {
	if c, ok := t[p]; ok && c != nil {
		return c
	}
	return ItemCounts{}
}
