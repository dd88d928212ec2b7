package evo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"robby/internal/scape"
	"robby/internal/strategy"
)

// Reporter receives the best fitness of every generation, 1-based.
type Reporter func(generation int, bestFitness float64)

type RunResult struct {
	BestByGeneration []float64
	Diagnostics      []GenerationDiagnostics
	Champion         strategy.Strategy
	Generalization   float64
	// Evaluations counts strategy evaluations, not sessions.
	Evaluations int
}

type MonitorConfig struct {
	Scape               scape.Scape
	Selector            Selector
	PopulationSize      int
	Generations         int
	Crossover           bool
	MutationProbability float64
	Seed                int64
	Reporter            Reporter
	Logger              *slog.Logger
}

// PopulationMonitor runs the generational loop: evaluate, sort, report,
// reproduce. All randomness comes from one generator seeded from cfg.Seed.
type PopulationMonitor struct {
	cfg MonitorConfig
	rng *rand.Rand
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if !(cfg.MutationProbability >= 0 && cfg.MutationProbability <= 1) {
		return nil, fmt.Errorf("mutation probability must be in [0, 1]")
	}
	if cfg.Selector == nil {
		cfg.Selector = RankSelector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &PopulationMonitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	current := NewPopulation(m.cfg.PopulationSize)
	next := NewPopulation(m.cfg.PopulationSize)
	current.Randomize(m.rng)

	reproducer := Reproducer{
		Selector:            m.cfg.Selector,
		Crossover:           m.cfg.Crossover,
		MutationProbability: m.cfg.MutationProbability,
	}
	result := RunResult{
		BestByGeneration: make([]float64, 0, m.cfg.Generations),
		Diagnostics:      make([]GenerationDiagnostics, 0, m.cfg.Generations),
	}

	for gen := 1; ; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		if err := m.evaluatePopulation(ctx, current); err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		result.Evaluations += current.Len()
		current.SortByFitness()

		best := current.Best().Fitness
		result.BestByGeneration = append(result.BestByGeneration, best)
		diag := summarizeGeneration(current, gen)
		result.Diagnostics = append(result.Diagnostics, diag)
		if m.cfg.Reporter != nil {
			m.cfg.Reporter(gen, best)
		}
		m.cfg.Logger.Debug("generation evaluated",
			"generation", gen,
			"best", diag.BestFitness,
			"mean", diag.MeanFitness,
			"min", diag.MinFitness,
			"std_dev", diag.StdDev,
			"distinct", diag.Distinct,
		)

		if gen >= m.cfg.Generations {
			break
		}
		if err := reproducer.Evolve(m.rng, current, next); err != nil {
			return RunResult{}, fmt.Errorf("generation %d: evolve: %w", gen, err)
		}
		current, next = next, current
	}

	result.Champion = *current.Best()
	generalization, err := m.generalize(ctx, &result.Champion)
	if err != nil {
		return RunResult{}, fmt.Errorf("generalization: %w", err)
	}
	result.Generalization = generalization
	return result, nil
}

func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population *Population) error {
	for i := 0; i < population.Len(); i++ {
		member := population.At(i)
		fitness, _, err := m.cfg.Scape.Evaluate(ctx, m.rng, member)
		if err != nil {
			return fmt.Errorf("evaluate member %d: %w", i, err)
		}
		member.Fitness = float64(fitness)
	}
	return nil
}

// generalize scores the champion on a copy so its recorded fitness survives.
func (m *PopulationMonitor) generalize(ctx context.Context, champion *strategy.Strategy) (float64, error) {
	probe := champion.Clone()
	if g, ok := m.cfg.Scape.(scape.GeneralizingScape); ok {
		fitness, err := g.Generalize(ctx, m.rng, probe)
		return float64(fitness), err
	}
	fitness, _, err := m.cfg.Scape.Evaluate(ctx, m.rng, probe)
	return float64(fitness), err
}
