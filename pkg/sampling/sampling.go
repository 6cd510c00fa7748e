// Package sampling draws the fixed random sample of company identifiers
// that a configuration epoch commits to. The draw happens once; determinism
// across restarts comes from persisting the drawn list, not from the seed.
package sampling

import (
	"math/rand"
	"time"
)

// Draw selects n identifiers uniformly at random without replacement.
// If n is at least len(ids), all identifiers are returned in shuffled
// order. The input slice is not modified.
func Draw(ids []string, n int, rng *rand.Rand) []string {
	picked := make([]string, len(ids))
	copy(picked, ids)

	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})

	if n >= len(picked) {
		return picked
	}
	return picked[:n]
}

// NewRand returns a time-seeded source for production draws
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
