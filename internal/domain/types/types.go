// Package types contains value types shared by the domain packages and the
// HTTP layer.
package types

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

// ItemCount is one row of a ranked recommendation.
type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Ranking is an ordered item -> count mapping. It marshals as a JSON object
// whose keys keep the ranking order.
type Ranking []ItemCount

// MarshalJSON renders the ranking as an object in rank order.
func (r Ranking) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(row.Item)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(row.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Items returns the item names in rank order.
func (r Ranking) Items() []string {
	out := make([]string, len(r))
	for i, row := range r {
		out[i] = row.Item
	}
	return out
}

// Map returns the ranking as an unordered map.
func (r Ranking) Map() map[string]int {
	out := make(map[string]int, len(r))
	for _, row := range r {
		out[row.Item] = row.Count
	}
	return out
}

// ItemTiming is the median purchase minute of an item on a hero, over Uses
// recorded purchases.
type ItemTiming struct {
	Item   string  `json:"item"`
	Minute float64 `json:"minute"`
	Uses   int     `json:"uses"`
}
