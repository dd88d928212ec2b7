package scape

import (
	"fmt"
	"math/rand"

	"robby/internal/strategy"
	"robby/internal/world"
)

// GeneralizationSessions is the session count for the end-of-run score.
const GeneralizationSessions = 1000

type EvaluatorConfig struct {
	// Template holds the walls and agent start. Each session copies it
	// before scattering items.
	Template        *world.Grid
	ItemProbability float64
	Sessions        int
	Steps           int
	Mode            Mode
}

// Evaluator averages a strategy's score over freshly scattered worlds. It
// reuses one scratch grid and is not safe for concurrent use.
type Evaluator struct {
	cfg     EvaluatorConfig
	scratch *world.Grid
}

func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Template == nil {
		return nil, fmt.Errorf("template world is required")
	}
	if !(cfg.ItemProbability >= 0 && cfg.ItemProbability <= 1) {
		return nil, fmt.Errorf("item probability must be in [0, 1], got %g", cfg.ItemProbability)
	}
	if cfg.Sessions <= 0 {
		return nil, fmt.Errorf("sessions must be > 0")
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("steps must be > 0")
	}
	// Later edits to the caller's grid must not leak into sessions.
	cfg.Template = cfg.Template.Clone()
	return &Evaluator{
		cfg:     cfg,
		scratch: cfg.Template.Clone(),
	}, nil
}

// Evaluate runs the configured number of sessions, stores the mean score in
// s.Fitness and returns it with per-session averages.
func (e *Evaluator) Evaluate(rng *rand.Rand, s *strategy.Strategy) (float64, Trace) {
	fitness, trace := e.run(rng, s, e.cfg.Sessions)
	s.Fitness = fitness
	return fitness, trace
}

// Generalization scores s over GeneralizationSessions sessions without
// touching s.Fitness.
func (e *Evaluator) Generalization(rng *rand.Rand, s *strategy.Strategy) float64 {
	fitness, _ := e.run(rng, s, GeneralizationSessions)
	return fitness
}

func (e *Evaluator) run(rng *rand.Rand, s *strategy.Strategy, sessions int) (float64, Trace) {
	var total Result
	for i := 0; i < sessions; i++ {
		e.cfg.Template.CopyTo(e.scratch)
		e.scratch.ScatterItems(rng, e.cfg.ItemProbability)
		total.add(Clean(rng, e.scratch, s, e.cfg.Steps, e.cfg.Mode))
	}
	n := float64(sessions)
	return float64(total.Score) / n, Trace{
		"sessions":        sessions,
		"items_collected": float64(total.ItemsCollected) / n,
		"wall_hits":       float64(total.WallHits) / n,
		"empty_pickups":   float64(total.EmptyPickups) / n,
	}
}
