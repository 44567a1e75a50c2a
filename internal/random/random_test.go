package random

import (
	"errors"
	"sync"
	"testing"
)

func TestSecureNextStaysInRange(t *testing.T) {
	src := Secure()
	for _, sides := range []int{1, 2, 6, 20, 100, 1000} {
		for i := 0; i < 200; i++ {
			value, err := src.Next(sides)
			if err != nil {
				t.Fatalf("next d%d: %v", sides, err)
			}
			if value < 1 || value > sides {
				t.Fatalf("d%d draw %d outside [1, %d]", sides, value, sides)
			}
		}
	}
}

func TestSeededNextStaysInRange(t *testing.T) {
	src := NewSeeded(42)
	for _, sides := range []int{1, 2, 6, 20, 100, 1000} {
		for i := 0; i < 200; i++ {
			value, err := src.Next(sides)
			if err != nil {
				t.Fatalf("next d%d: %v", sides, err)
			}
			if value < 1 || value > sides {
				t.Fatalf("d%d draw %d outside [1, %d]", sides, value, sides)
			}
		}
	}
}

func TestInvalidSides(t *testing.T) {
	for _, src := range []Source{Secure(), NewSeeded(1)} {
		for _, sides := range []int{0, -1} {
			if _, err := src.Next(sides); !errors.Is(err, ErrInvalidSides) {
				t.Fatalf("expected ErrInvalidSides for %d sides, got %v", sides, err)
			}
		}
	}
}

func TestOneSidedDieNeedsNoEntropy(t *testing.T) {
	// d1 short-circuits, so even an erroring word stream succeeds.
	src := wordFunc(func() (uint64, error) {
		return 0, errors.New("no entropy")
	})
	value, err := nextInRange(src, 1)
	if err != nil {
		t.Fatalf("next d1: %v", err)
	}
	if value != 1 {
		t.Fatalf("expected 1, got %d", value)
	}
}

func TestSeededSourceIsDeterministic(t *testing.T) {
	a := NewSeeded(12345)
	b := NewSeeded(12345)
	for i := 0; i < 1000; i++ {
		va, err := a.Next(20)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		vb, err := b.Next(20)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if va != vb {
			t.Fatalf("draw %d: seeds diverged, %d vs %d", i, va, vb)
		}
	}
}

func TestSeededSourcesDifferBySeed(t *testing.T) {
	a := NewSeeded(1)
	b := NewSeeded(2)
	same := true
	for i := 0; i < 50; i++ {
		va, _ := a.Next(20)
		vb, _ := b.Next(20)
		if va != vb {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different seeds to produce different sequences")
	}
}

func TestSeededSourceReportsSeed(t *testing.T) {
	src := NewSeeded(987)
	if src.Seed() != 987 {
		t.Fatalf("expected seed 987, got %d", src.Seed())
	}
}

func TestSeededSourceConcurrentDraws(t *testing.T) {
	src := NewSeeded(7)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				value, err := src.Next(6)
				if err != nil {
					t.Errorf("next: %v", err)
					return
				}
				if value < 1 || value > 6 {
					t.Errorf("draw %d outside [1, 6]", value)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestRejectionSamplingDiscardsBiasedBand(t *testing.T) {
	// For a d6 the top band of the uint64 range is biased. A word in the
	// band must be discarded and the next word used instead.
	words := []uint64{^uint64(0), 7}
	i := 0
	src := wordFunc(func() (uint64, error) {
		w := words[i]
		i++
		return w, nil
	})
	value, err := nextInRange(src, 6)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if i != 2 {
		t.Fatalf("expected the biased word to be rejected, consumed %d words", i)
	}
	if value != 7%6+1 {
		t.Fatalf("expected %d, got %d", 7%6+1, value)
	}
}

func TestNextInRangePropagatesWordErrors(t *testing.T) {
	cause := errors.New("stream closed")
	src := wordFunc(func() (uint64, error) { return 0, cause })
	if _, err := nextInRange(src, 6); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped stream error, got %v", err)
	}
}

func TestNewSeedProducesDistinctSeeds(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 10; i++ {
		seed, err := NewSeed()
		if err != nil {
			t.Fatalf("new seed: %v", err)
		}
		seen[seed] = true
	}
	// Ten collisions in a row would mean the seed source is broken.
	if len(seen) < 2 {
		t.Fatalf("expected distinct seeds, got %d unique of 10", len(seen))
	}
}
