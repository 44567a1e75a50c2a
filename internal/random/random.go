// Package random provides the engine's pluggable die-face sources: a
// cryptographically strong source for live rolls and a seeded
// deterministic source for tests and replay. Both reduce a raw uint64
// word stream through the same rejection-sampling routine, so
// statistical results transfer between them.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

// ErrInvalidSides indicates a requested die with no faces.
var ErrInvalidSides = errors.New("sides must be positive")

// Source yields uniformly distributed die faces.
type Source interface {
	// Next returns a uniform value in [1, sides].
	Next(sides int) (int, error)
}

// wordSource yields raw uniform 64-bit words for rejection sampling.
type wordSource interface {
	word() (uint64, error)
}

// nextInRange reduces a word stream to a uniform value in [1, sides]
// by rejection sampling: words in the biased remainder band at the top
// of the uint64 range are discarded and redrawn before reducing
// modulo sides.
func nextInRange(src wordSource, sides int) (int, error) {
	if sides < 1 {
		return 0, ErrInvalidSides
	}
	if sides == 1 {
		return 1, nil
	}

	n := uint64(sides)
	band := (math.MaxUint64%n + 1) % n
	limit := uint64(math.MaxUint64) - band
	for {
		w, err := src.word()
		if err != nil {
			return 0, err
		}
		if w > limit {
			continue
		}
		return int(w%n) + 1, nil
	}
}

// secureSource draws words from the operating system's CSPRNG.
type secureSource struct{}

// Secure returns a cryptographically strong source suitable for live
// rolls.
func Secure() Source { return secureSource{} }

func (secureSource) word() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random bytes: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (s secureSource) Next(sides int) (int, error) {
	return nextInRange(s, sides)
}

// SeededSource is a deterministic source: the same seed and the same
// sequence of Next calls always produce the same values. A mutex
// guards the generator so a shared instance stays reproducible under
// concurrent callers, though one source per worker is preferred for
// throughput.
type SeededSource struct {
	mu   sync.Mutex
	seed uint64
	rng  *rand.Rand
}

// NewSeeded constructs a deterministic source from an explicit seed.
func NewSeeded(seed uint64) *SeededSource {
	return &SeededSource{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, 0)),
	}
}

// Seed returns the seed the source was constructed with, for replay
// logging.
func (s *SeededSource) Seed() uint64 { return s.seed }

func (s *SeededSource) Next(sides int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextInRange(wordFunc(func() (uint64, error) {
		return s.rng.Uint64(), nil
	}), sides)
}

type wordFunc func() (uint64, error)

func (f wordFunc) word() (uint64, error) { return f() }

// NewSeed generates a random seed using crypto/rand, for callers that
// want a deterministic source without choosing the seed themselves.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
