// Package probe exercises a running counterpick server: it checks liveness,
// fires concurrent /recommend requests for hero pairs and verifies every
// response body.
package probe

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrNoHeroes     = errors.New("hero table empty")
	ErrVerification = errors.New("response verification failed")
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Requests int           // Number of /recommend requests
	Workers  int           // Number of concurrent workers
	Top      int           // top query value; 0 leaves it to the server
	Phase    string        // fixed phase; empty rotates all-phase and each phase
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // pair selection seed
	Verbose  bool          // log every failure
}

// Stats holds probe statistics.
type Stats struct {
	Requests   int
	Successful int
	Failed     int
	StatusErrs int
	Invalid    int
	Latency    LatencySummary
	StartTime  time.Time
	Duration   time.Duration
}

// LatencySummary describes request latencies.
type LatencySummary struct {
	Min time.Duration
	Avg time.Duration
	P50 time.Duration
	P95 time.Duration
	Max time.Duration
}

// Job is one /recommend call.
type Job struct {
	Ally  string
	Enemy string
	Phase string
}

// scoredItem mirrors one topScores row.
type scoredItem struct {
	Item  string  `json:"item"`
	Count int     `json:"count"`
	Boost float64 `json:"boost"`
	Score float64 `json:"score"`
}

type singlePhaseBody struct {
	Phase           string         `json:"phase"`
	Recommendations map[string]int `json:"recommendations"`
	Meta            struct {
		TopScores []scoredItem `json:"topScores"`
	} `json:"meta"`
}

// allPhaseBody keeps every top-level key; the phase keys sit next to ally
// and enemy.
type allPhaseBody map[string]json.RawMessage

type heroRow struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
}

type heroesBody struct {
	Count  int       `json:"count"`
	Heroes []heroRow `json:"heroes"`
}
