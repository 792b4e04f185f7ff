package relations

import (
	"math/rand/v2"
	"sync"
)

// Source supplies the randomness used to sample columns and rows.
// *rand.Rand from math/rand/v2 satisfies it; tests pass a seeded one.
type Source interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalSource draws from the runtime's goroutine-safe generator
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// NewSeededSource returns a deterministic source for tests and reproducible seeding
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Synchronized wraps src so it can be shared by concurrent regenerations
func Synchronized(src Source) Source {
	return &lockedSource{src: src}
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func (l *lockedSource) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.src.Shuffle(n, swap)
}
