package evo

import (
	"fmt"
	"math/rand"

	"robby/internal/strategy"
)

// Mate writes mother's genes [0, point) and father's genes [point, Length)
// into child.
func Mate(mother, father, child *strategy.Strategy, point int) {
	if point < 0 || point >= strategy.Length {
		panic(fmt.Sprintf("evo: crossover point %d outside [0,%d)", point, strategy.Length))
	}
	copy(child.Actions[:point], mother.Actions[:point])
	copy(child.Actions[point:], father.Actions[point:])
	child.Fitness = 0
}

// Mutate replaces each gene, with probability q, by a uniformly random action
// (which may equal the old one).
func Mutate(rng *rand.Rand, q float64, s *strategy.Strategy) {
	for i := range s.Actions {
		if rng.Float64() < q {
			s.Actions[i] = strategy.Action(rng.Intn(strategy.NumActions))
		}
	}
}

// Reproducer builds a generation from the previous one.
type Reproducer struct {
	Selector            Selector
	Crossover           bool
	MutationProbability float64
}

// Evolve empties next and refills it from ranked, which must be sorted best
// first. Children come in pairs; with an odd capacity the second child of the
// last pair is mutated and then dropped.
func (r Reproducer) Evolve(rng *rand.Rand, ranked, next *Population) error {
	if r.Selector == nil {
		return fmt.Errorf("selector is required")
	}
	if ranked.Cap() != next.Cap() {
		return fmt.Errorf("population capacity mismatch: old=%d new=%d", ranked.Cap(), next.Cap())
	}
	if ranked == next {
		return fmt.Errorf("cannot evolve a population into itself")
	}

	next.Empty()
	var son, daughter strategy.Strategy
	for !next.IsFull() {
		motherIdx, err := r.Selector.PickParent(rng, ranked)
		if err != nil {
			return fmt.Errorf("select mother: %w", err)
		}
		fatherIdx, err := r.Selector.PickParent(rng, ranked)
		if err != nil {
			return fmt.Errorf("select father: %w", err)
		}
		mother, father := ranked.At(motherIdx), ranked.At(fatherIdx)

		if r.Crossover {
			point := rng.Intn(strategy.Length)
			Mate(mother, father, &son, point)
			Mate(father, mother, &daughter, point)
		} else {
			daughter = *mother
			son = *father
			daughter.Fitness, son.Fitness = 0, 0
		}
		Mutate(rng, r.MutationProbability, &son)
		Mutate(rng, r.MutationProbability, &daughter)
		next.Add(&son)
		next.Add(&daughter)
	}
	return nil
}
