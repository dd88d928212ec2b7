package scape

import (
	"context"
	"math/rand"

	"robby/internal/strategy"
)

// RobbyScape is the item-collecting grid world as a Scape.
type RobbyScape struct {
	evaluator *Evaluator
}

func NewRobbyScape(cfg EvaluatorConfig) (*RobbyScape, error) {
	evaluator, err := NewEvaluator(cfg)
	if err != nil {
		return nil, err
	}
	return &RobbyScape{evaluator: evaluator}, nil
}

func (s *RobbyScape) Name() string {
	return "robby-" + s.evaluator.cfg.Mode.String()
}

func (s *RobbyScape) Evaluate(ctx context.Context, rng *rand.Rand, st *strategy.Strategy) (Fitness, Trace, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	fitness, trace := s.evaluator.Evaluate(rng, st)
	return Fitness(fitness), trace, nil
}

func (s *RobbyScape) Generalize(ctx context.Context, rng *rand.Rand, st *strategy.Strategy) (Fitness, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return Fitness(s.evaluator.Generalization(rng, st)), nil
}
