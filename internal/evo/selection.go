package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses a parent index from a population sorted best first.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked *Population) (int, error)
}

// RankProbability is the roulette-wheel share of the member at 0-based rank r
// in a population of n: (n - r + 1) / (1 + 2 + ... + n).
func RankProbability(n, r int) float64 {
	sum := float64(n * (n + 1) / 2)
	return float64(n-r+1) / sum
}

// RankSelector approximates rank-proportional roulette-wheel selection. It
// starts at a uniformly random rank and walks the ranks cyclically, accepting
// rank r with probability RankProbability(n, r). After n rejected trials it
// falls back to a uniform pick.
type RankSelector struct{}

func (RankSelector) Name() string {
	return "rank"
}

func (RankSelector) PickParent(rng *rand.Rand, ranked *Population) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	n := ranked.Len()
	if n == 0 {
		return 0, fmt.Errorf("cannot select from an empty population")
	}

	r := rng.Intn(n)
	for tries := n; tries > 0; tries-- {
		if rng.Float64() < RankProbability(n, r) {
			return r, nil
		}
		r = (r + 1) % n
	}
	return rng.Intn(n), nil
}

// EliteSelector picks uniformly from the top Count members. Count <= 0 uses
// the top fifth.
type EliteSelector struct {
	Count int
}

func (EliteSelector) Name() string {
	return "elite"
}

func (s EliteSelector) PickParent(rng *rand.Rand, ranked *Population) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	n := ranked.Len()
	if n == 0 {
		return 0, fmt.Errorf("cannot select from an empty population")
	}
	count := s.Count
	if count <= 0 {
		count = n / 5
	}
	if count < 1 {
		count = 1
	}
	if count > n {
		return 0, fmt.Errorf("invalid elite count: %d", count)
	}
	return rng.Intn(count), nil
}

// TournamentSelector samples TournamentSize members from the top PoolSize and
// returns the fittest.
type TournamentSelector struct {
	PoolSize       int
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked *Population) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	n := ranked.Len()
	if n == 0 {
		return 0, fmt.Errorf("cannot select from an empty population")
	}

	poolSize := s.PoolSize
	if poolSize <= 0 || poolSize > n {
		poolSize = n
	}
	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}
	if tournamentSize > poolSize {
		tournamentSize = poolSize
	}

	best := rng.Intn(poolSize)
	for i := 1; i < tournamentSize; i++ {
		candidate := rng.Intn(poolSize)
		if ranked.At(candidate).Fitness > ranked.At(best).Fitness {
			best = candidate
		}
	}
	return best, nil
}
