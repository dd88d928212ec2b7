package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"robby/internal/scape"
	"robby/internal/strategy"
	"robby/internal/world"
)

// pickupCountScape scores a table by how many of its genes are PickUp.
type pickupCountScape struct {
	calls int
}

func (s *pickupCountScape) Name() string { return "pickup-count" }

func (s *pickupCountScape) Evaluate(ctx context.Context, _ *rand.Rand, st *strategy.Strategy) (scape.Fitness, scape.Trace, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	s.calls++
	count := 0
	for _, a := range st.Actions {
		if a == strategy.PickUp {
			count++
		}
	}
	return scape.Fitness(count), nil, nil
}

func TestPopulationMonitorImprovesFitness(t *testing.T) {
	fake := &pickupCountScape{}
	var reported []int
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Scape:               fake,
		PopulationSize:      40,
		Generations:         30,
		Crossover:           true,
		MutationProbability: 0.005,
		Seed:                11,
		Reporter: func(generation int, _ float64) {
			reported = append(reported, generation)
		},
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.BestByGeneration) != 30 || len(result.Diagnostics) != 30 {
		t.Fatalf("history len=%d diagnostics len=%d", len(result.BestByGeneration), len(result.Diagnostics))
	}
	if len(reported) != 30 {
		t.Fatalf("reporter called %d times", len(reported))
	}
	for i, gen := range reported {
		if gen != i+1 {
			t.Fatalf("report %d has generation %d", i, gen)
		}
	}
	if result.Evaluations != 40*30 {
		t.Fatalf("evaluations=%d want=%d", result.Evaluations, 40*30)
	}
	// Generalization falls back to one extra Evaluate call.
	if fake.calls != 40*30+1 {
		t.Fatalf("scape calls=%d", fake.calls)
	}

	first, last := result.Diagnostics[0], result.Diagnostics[len(result.Diagnostics)-1]
	if last.MeanFitness <= first.MeanFitness {
		t.Fatalf("mean fitness did not improve: first=%g last=%g", first.MeanFitness, last.MeanFitness)
	}
	if result.BestByGeneration[29] != last.BestFitness {
		t.Fatalf("history and diagnostics disagree: %g vs %g", result.BestByGeneration[29], last.BestFitness)
	}
	if result.Champion.Fitness != last.BestFitness {
		t.Fatalf("champion fitness=%g want=%g", result.Champion.Fitness, last.BestFitness)
	}
	if result.Generalization != result.Champion.Fitness {
		t.Fatalf("generalization=%g want=%g", result.Generalization, result.Champion.Fitness)
	}
}

func TestPopulationMonitorIsSeedDeterministic(t *testing.T) {
	grid, err := world.Load(strings.NewReader("6 6\nxxxxxx\nx    x\nx R  x\nx    x\nx    x\nxxxxxx\n"), "room.world")
	if err != nil {
		t.Fatalf("load world: %v", err)
	}

	run := func() RunResult {
		t.Helper()
		robby, err := scape.NewRobbyScape(scape.EvaluatorConfig{
			Template:        grid,
			ItemProbability: 0.5,
			Sessions:        5,
			Steps:           30,
			Mode:            scape.ModeNormal,
		})
		if err != nil {
			t.Fatalf("new scape: %v", err)
		}
		monitor, err := NewPopulationMonitor(MonitorConfig{
			Scape:               robby,
			PopulationSize:      10,
			Generations:         4,
			Crossover:           true,
			MutationProbability: 0.01,
			Seed:                8675309,
		})
		if err != nil {
			t.Fatalf("new monitor: %v", err)
		}
		result, err := monitor.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result
	}

	a, b := run(), run()
	for i := range a.BestByGeneration {
		if a.BestByGeneration[i] != b.BestByGeneration[i] {
			t.Fatalf("generation %d: %g vs %g", i+1, a.BestByGeneration[i], b.BestByGeneration[i])
		}
	}
	if a.Generalization != b.Generalization {
		t.Fatalf("generalization %g vs %g", a.Generalization, b.Generalization)
	}
	if a.Champion.Actions != b.Champion.Actions {
		t.Fatal("champions differ for the same seed")
	}
}

func TestPopulationMonitorValidatesConfig(t *testing.T) {
	fake := &pickupCountScape{}
	cases := map[string]MonitorConfig{
		"no scape":          {PopulationSize: 2, Generations: 1},
		"zero population":   {Scape: fake, Generations: 1},
		"zero generations":  {Scape: fake, PopulationSize: 2},
		"negative mutation": {Scape: fake, PopulationSize: 2, Generations: 1, MutationProbability: -0.1},
		"mutation above 1":  {Scape: fake, PopulationSize: 2, Generations: 1, MutationProbability: 1.5},
		"NaN mutation":      {Scape: fake, PopulationSize: 2, Generations: 1, MutationProbability: math.NaN()},
	}
	for name, cfg := range cases {
		if _, err := NewPopulationMonitor(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestPopulationMonitorStopsOnCancelledContext(t *testing.T) {
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Scape:          &pickupCountScape{},
		PopulationSize: 4,
		Generations:    3,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := monitor.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSummarizeGeneration(t *testing.T) {
	pop := NewPopulation(4)
	pop.Add(strategyWithFitness(4, strategy.PickUp))
	pop.Add(strategyWithFitness(2, strategy.PickUp))
	pop.Add(strategyWithFitness(2, strategy.StayPut))
	pop.Add(strategyWithFitness(0, strategy.MoveNorth))

	diag := summarizeGeneration(pop, 7)
	if diag.Generation != 7 {
		t.Fatalf("generation=%d", diag.Generation)
	}
	if diag.BestFitness != 4 || diag.MinFitness != 0 || diag.MeanFitness != 2 {
		t.Fatalf("unexpected fitness summary: %+v", diag)
	}
	// Population variance of {4,2,2,0} is 2.
	if diag.StdDev < 1.4142 || diag.StdDev > 1.4143 {
		t.Fatalf("std dev=%g", diag.StdDev)
	}
	if diag.Distinct != 3 {
		t.Fatalf("distinct=%d want=3", diag.Distinct)
	}

	empty := summarizeGeneration(NewPopulation(2), 1)
	if empty.Distinct != 0 || empty.BestFitness != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}
