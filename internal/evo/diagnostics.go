package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"robby/internal/strategy"
)

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	StdDev      float64 `json:"std_dev"`
	// Distinct counts members with a unique action table.
	Distinct int `json:"distinct"`
}

// summarizeGeneration expects ranked sorted best first.
func summarizeGeneration(ranked *Population, generation int) GenerationDiagnostics {
	if ranked.Len() == 0 {
		return GenerationDiagnostics{Generation: generation}
	}

	fitness := ranked.Fitnesses()
	mean, std := stat.PopMeanStdDev(fitness, nil)
	tables := make(map[[strategy.Length]strategy.Action]struct{}, ranked.Len())
	for i := 0; i < ranked.Len(); i++ {
		tables[ranked.At(i).Actions] = struct{}{}
	}

	return GenerationDiagnostics{
		Generation:  generation,
		BestFitness: floats.Max(fitness),
		MeanFitness: mean,
		MinFitness:  floats.Min(fitness),
		StdDev:      std,
		Distinct:    len(tables),
	}
}
