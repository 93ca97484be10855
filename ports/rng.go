package ports

import "math/rand"

// RNG supplies deterministic pseudo-random streams to the resampling
// engines. Streams derived from the same seed must yield the same
// sequence across runs and platforms.
type RNG interface {
	// Stream returns an exclusive generator for the given seed. Callers
	// must not share the returned generator across goroutines.
	Stream(seed int64) *rand.Rand

	// SubStream returns an exclusive generator for a derived seed, so
	// parallel workers can each own an independent reproducible stream.
	SubStream(seed int64, index int) *rand.Rand

	// ValidateSeed reports whether the seed is acceptable.
	ValidateSeed(seed int64) error
}
