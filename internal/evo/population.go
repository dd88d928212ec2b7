package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"robby/internal/strategy"
)

// Population is a fixed-capacity set of strategies. Slots are reused across
// generations; Add copies the strategy into the next free slot.
type Population struct {
	strategies []strategy.Strategy
	size       int
}

func NewPopulation(capacity int) *Population {
	if capacity <= 0 {
		panic(fmt.Sprintf("evo: population capacity %d must be positive", capacity))
	}
	return &Population{strategies: make([]strategy.Strategy, capacity)}
}

func (p *Population) Cap() int { return len(p.strategies) }
func (p *Population) Len() int { return p.size }

// Randomize fills the population to capacity with random strategies.
func (p *Population) Randomize(rng *rand.Rand) {
	for i := range p.strategies {
		p.strategies[i].Randomize(rng)
		p.strategies[i].Fitness = 0
	}
	p.size = len(p.strategies)
}

// Empty drops all members without releasing their slots.
func (p *Population) Empty() {
	p.size = 0
}

func (p *Population) IsFull() bool {
	return p.size >= len(p.strategies)
}

// Add copies s into the population. It reports false when the population is
// already full.
func (p *Population) Add(s *strategy.Strategy) bool {
	if p.IsFull() {
		return false
	}
	p.strategies[p.size] = *s
	p.size++
	return true
}

// At returns the member at index i. The pointer stays valid until the
// population is emptied.
func (p *Population) At(i int) *strategy.Strategy {
	if i < 0 || i >= p.size {
		panic(fmt.Sprintf("evo: population index %d outside [0,%d)", i, p.size))
	}
	return &p.strategies[i]
}

// SortByFitness orders members best first. Ties keep their order.
func (p *Population) SortByFitness() {
	members := p.strategies[:p.size]
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Fitness > members[j].Fitness
	})
}

// Best returns the first member; call after SortByFitness.
func (p *Population) Best() *strategy.Strategy {
	return p.At(0)
}

func (p *Population) Fitnesses() []float64 {
	out := make([]float64, p.size)
	for i := 0; i < p.size; i++ {
		out[i] = p.strategies[i].Fitness
	}
	return out
}
