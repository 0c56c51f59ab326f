package domain

import (
	"math"
	"math/rand/v2"
)

// Rand is the randomness source for narrative selection and score variation.
// *rand.Rand satisfies it; tests inject a seeded or scripted source.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand returns a goroutine-safe source backed by the runtime generator.
func DefaultRand() Rand { return globalRand{} }

// NewSeededRand returns a deterministic source. Not safe for concurrent use.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Pick returns a uniformly chosen element, or "" for an empty list.
func Pick(list []string, rnd Rand) string {
	if len(list) == 0 {
		return ""
	}
	return list[rnd.IntN(len(list))]
}

// roundHalfUp rounds x.5 towards +Inf, matching the score rounding used
// throughout the engine.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
