package probe

import (
	"math/rand/v2"
)

// Phases rotated through when no fixed phase is configured. The empty
// entry requests the all-phase view.
var rotation = []string{"", "start", "early", "mid", "late"}

// BuildJobs picks n ally/enemy pairs of distinct heroes. The same seed
// yields the same jobs.
func BuildJobs(heroes []heroRow, n int, phase string, seed uint64) []Job {
	if len(heroes) < 2 || n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	jobs := make([]Job, 0, n)
	for i := range n {
		a := rng.IntN(len(heroes))
		e := rng.IntN(len(heroes) - 1)
		if e >= a {
			e++
		}
		p := phase
		if p == "" {
			p = rotation[i%len(rotation)]
		}
		jobs = append(jobs, Job{Ally: heroes[a].Slug, Enemy: heroes[e].Slug, Phase: p})
	}
	return jobs
}
