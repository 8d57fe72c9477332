package shuffle

import (
	"math/rand/v2"
	"slices"
)

// Shuffler permutes n elements in place through swap.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// FisherYates is the production Shuffler. A nil source uses the global generator.
type FisherYates struct {
	rng *rand.Rand
}

func New() *FisherYates {
	return &FisherYates{}
}

// NewSeeded returns a reproducible Shuffler, mostly for tests.
func NewSeeded(seed uint64) *FisherYates {
	return &FisherYates{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (f *FisherYates) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		var j int
		if f == nil || f.rng == nil {
			j = rand.IntN(i + 1)
		} else {
			j = f.rng.IntN(i + 1)
		}
		swap(i, j)
	}
}

// Identity leaves the order untouched.
type Identity struct{}

func (Identity) Shuffle(int, func(i, j int)) {}

// Slice returns a shuffled copy of in; the input is never modified.
func Slice[T any](s Shuffler, in []T) []T {
	out := slices.Clone(in)
	if s == nil || len(out) < 2 {
		return out
	}
	s.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
