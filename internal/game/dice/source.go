package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// seededSource is a deterministic Source; two sources built from the same
// seed produce the same sequence.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source for seed.
//
// Postcondition: identical seeds yield identical Intn/Float64 sequences.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a non-deterministic Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn panics if n <= 0 or crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 draws 53 random bits and scales them into [0, 1).
func (c cryptoSource) Float64() float64 {
	return float64(c.Intn(1<<53)) / (1 << 53)
}

// Fixed is a scripted Source for tests: it replays Values for Float64 and
// Ints for Intn, cycling when exhausted.
type Fixed struct {
	mu     sync.Mutex
	Values []float64
	Ints   []int
	fi, ii int
}

// Float64 returns the next scripted float, or 0 if none were given.
func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.fi%len(f.Values)]
	f.fi++
	return v
}

// Intn returns the next scripted int modulo n, or 0 if none were given.
func (f *Fixed) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Ints) == 0 {
		return 0
	}
	v := f.Ints[f.ii%len(f.Ints)]
	f.ii++
	return v % n
}
