package probe

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// maxTopScores is the server's cap on explained rows.
const maxTopScores = 10

var phaseKeys = []string{"start", "early", "mid", "late"}

// Verify checks a /recommend body for j. top is the requested item count,
// 0 when left to the server.
func Verify(j Job, top int, body []byte) error {
	if j.Phase == "" {
		return verifyAllPhase(body, top)
	}
	return verifySinglePhase(j.Phase, body, top)
}

func verifyAllPhase(body []byte, top int) error {
	var b allPhaseBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrVerification, err)
	}
	for _, k := range phaseKeys {
		raw, ok := b[k]
		if !ok {
			return fmt.Errorf("%w: phase %q missing", ErrVerification, k)
		}
		var items map[string]int
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%w: phase %q: %w", ErrVerification, k, err)
		}
		if top > 0 && len(items) > top {
			return fmt.Errorf("%w: phase %q has %d items, want <= %d", ErrVerification, k, len(items), top)
		}
	}
	return nil
}

func verifySinglePhase(phase string, body []byte, top int) error {
	var b singlePhaseBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrVerification, err)
	}
	if b.Phase != phase {
		return fmt.Errorf("%w: phase %q, want %q", ErrVerification, b.Phase, phase)
	}
	if top > 0 && len(b.Recommendations) > top {
		return fmt.Errorf("%w: %d items, want <= %d", ErrVerification, len(b.Recommendations), top)
	}
	rows := b.Meta.TopScores
	if len(rows) > maxTopScores {
		return fmt.Errorf("%w: %d topScores rows, want <= %d", ErrVerification, len(rows), maxTopScores)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Score > rows[i-1].Score {
			return fmt.Errorf("%w: topScores not sorted at row %d", ErrVerification, i)
		}
	}
	return nil
}
