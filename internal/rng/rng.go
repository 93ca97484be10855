package rng

import (
	"math/rand"

	"anastat/internal/errors"
	"anastat/ports"
)

// subStreamStride separates derived seeds so sibling sub-streams never
// collide for the index counts used by the engines.
const subStreamStride = 0x9E3779B9

// Seeded implements ports.RNG with math/rand sources. Each Stream call
// returns a fresh generator, so two engines never share state.
type Seeded struct{}

// NewSeeded creates a seeded RNG provider.
func NewSeeded() *Seeded {
	return &Seeded{}
}

// Stream returns an exclusive generator for the given seed.
func (s *Seeded) Stream(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// SubStream returns a generator for seed derived from (seed, index).
// Derivation happens eagerly so parallel workers can be handed their
// generators before any goroutine starts.
func (s *Seeded) SubStream(seed int64, index int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(index)*subStreamStride))
}

// ValidateSeed rejects negative seeds so derived sub-seeds stay ordered.
func (s *Seeded) ValidateSeed(seed int64) error {
	if seed < 0 {
		return errors.InvalidInput("seed must be non-negative")
	}
	return nil
}

var _ ports.RNG = (*Seeded)(nil)
