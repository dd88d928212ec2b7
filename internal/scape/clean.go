package scape

import (
	"fmt"
	"math/rand"

	"robby/internal/strategy"
	"robby/internal/world"
)

// Rewards and punishments per step.
const (
	WallPenalty        = -5
	PickUpReward       = 10
	EmptyPickUpPenalty = -1
)

// Result summarizes one cleaning session.
type Result struct {
	Score          int
	ItemsCollected int
	WallHits       int
	EmptyPickups   int
	Steps          int
}

func (r *Result) add(o Result) {
	r.Score += o.Score
	r.ItemsCollected += o.ItemsCollected
	r.WallHits += o.WallHits
	r.EmptyPickups += o.EmptyPickups
	r.Steps += o.Steps
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeMoved
	outcomeWallHit
	outcomeCollected
	outcomeEmptyPickUp
)

func (r *Result) record(o outcome) {
	switch o {
	case outcomeWallHit:
		r.WallHits++
		r.Score += WallPenalty
	case outcomeCollected:
		r.ItemsCollected++
		r.Score += PickUpReward
	case outcomeEmptyPickUp:
		r.EmptyPickups++
		r.Score += EmptyPickUpPenalty
	}
}

// Clean runs s on g for exactly steps steps and returns the accumulated
// score. g is modified: the agent moves and collected items become Open.
func Clean(rng *rand.Rand, g *world.Grid, s *strategy.Strategy, steps int, mode Mode) Result {
	if steps <= 0 {
		panic(fmt.Sprintf("scape: step budget %d must be positive", steps))
	}
	var r Result
	for i := 0; i < steps; i++ {
		p := g.Perception()
		a := s.Action(p)
		if mode == ModeSmart {
			r.record(performSmart(rng, g, p, a))
		} else {
			r.record(perform(rng, g, p, a))
		}
		r.Steps++
	}
	return r
}

func perform(rng *rand.Rand, g *world.Grid, p world.Perception, a strategy.Action) outcome {
	switch a {
	case strategy.MoveNorth, strategy.MoveSouth, strategy.MoveEast, strategy.MoveWest:
		return move(g, p, a)
	case strategy.MoveRandom:
		return move(g, p, strategy.Moves[rng.Intn(len(strategy.Moves))])
	case strategy.StayPut:
		return outcomeNone
	case strategy.PickUp:
		return pickUp(g, p)
	default:
		panic(fmt.Sprintf("scape: invalid action %d for perception %d", a, p.Index))
	}
}

// performSmart ignores the gene when standing on an item, and otherwise maps
// it onto the four moves plus random, turning clockwise instead of hitting a
// wall.
func performSmart(rng *rand.Rand, g *world.Grid, p world.Perception, a strategy.Action) outcome {
	if p.Current == world.Item {
		return pickUp(g, p)
	}
	dir := a % 5
	if dir == strategy.MoveRandom {
		dir = strategy.Moves[rng.Intn(len(strategy.Moves))]
	}
	for turns := 0; turns < len(strategy.Moves); turns++ {
		if target, _, _ := heading(p, dir); target != world.Wall {
			return move(g, p, dir)
		}
		dir = clockwise(dir)
	}
	// Walled in on every side.
	return outcomeNone
}

func move(g *world.Grid, p world.Perception, a strategy.Action) outcome {
	target, dx, dy := heading(p, a)
	if target == world.Wall {
		return outcomeWallHit
	}
	x, y := g.Agent()
	g.SetAgent(x+dx, y+dy)
	return outcomeMoved
}

func pickUp(g *world.Grid, p world.Perception) outcome {
	if p.Current != world.Item {
		return outcomeEmptyPickUp
	}
	x, y := g.Agent()
	g.Set(x, y, world.Open)
	return outcomeCollected
}

// heading returns the neighbouring cell in the move's direction and the
// coordinate delta; north is -y.
func heading(p world.Perception, a strategy.Action) (world.Cell, int, int) {
	switch a {
	case strategy.MoveNorth:
		return p.North, 0, -1
	case strategy.MoveSouth:
		return p.South, 0, 1
	case strategy.MoveEast:
		return p.East, 1, 0
	case strategy.MoveWest:
		return p.West, -1, 0
	default:
		panic(fmt.Sprintf("scape: %s is not a move", a))
	}
}

func clockwise(a strategy.Action) strategy.Action {
	switch a {
	case strategy.MoveNorth:
		return strategy.MoveEast
	case strategy.MoveEast:
		return strategy.MoveSouth
	case strategy.MoveSouth:
		return strategy.MoveWest
	default:
		return strategy.MoveNorth
	}
}
