package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunConfig is the resolved configuration a run was started with.
type RunConfig struct {
	PopulationSize      int     `json:"population_size"`
	Generations         int     `json:"generations"`
	Sessions            int     `json:"sessions"`
	SessionActions      int     `json:"session_actions"`
	MutationProbability float64 `json:"mutation_probability"`
	ItemProbability     float64 `json:"item_probability"`
	Seed                int64   `json:"seed"`
	World               string  `json:"world"`
	Crossover           bool    `json:"crossover"`
	Mode                string  `json:"mode"`
	Selection           string  `json:"selection"`
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	StdDev      float64 `json:"std_dev"`
	Distinct    int     `json:"distinct"`
}

// RunRecord is the reporting history of one finished run. It never holds a
// population and cannot be used to resume evolution.
type RunRecord struct {
	VersionedRecord
	ID               string                  `json:"id"`
	CreatedAtUTC     time.Time               `json:"created_at_utc"`
	Config           RunConfig               `json:"config"`
	BestByGeneration []float64               `json:"best_by_generation,omitempty"`
	Diagnostics      []GenerationDiagnostics `json:"diagnostics,omitempty"`
	Generalization   float64                 `json:"generalization"`
	// Champion is the 243-digit action table of the best strategy.
	Champion        string  `json:"champion"`
	ChampionFitness float64 `json:"champion_fitness"`
}
