package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source is the randomness provider for all rolls and chance checks.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a reproducible PCG-backed Source.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source for replays and load tests.
//
// Postcondition: two sources built from the same seed yield the same sequence.
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(uint64(seed), uint64(seed)>>1|1))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// SequenceSource replays a fixed list of raw Intn results. Tests use it to
// force exact dice outcomes.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewSequenceSource returns a SequenceSource yielding values in order.
func NewSequenceSource(values ...int) *SequenceSource {
	return &SequenceSource{values: values}
}

// Intn returns the next queued value.
//
// Precondition: a value remains and it is in [0, n); otherwise Intn panics
// so a miscounted fixture fails loudly.
func (s *SequenceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.values) {
		panic("dice: SequenceSource exhausted")
	}
	v := s.values[s.pos]
	if v < 0 || v >= n {
		panic("dice: SequenceSource value out of range for Intn")
	}
	s.pos++
	return v
}

// Remaining returns how many queued values have not been consumed.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.pos
}
