package robby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"robby/internal/config"
	"robby/internal/evo"
	"robby/internal/model"
	"robby/internal/scape"
	"robby/internal/stats"
	"robby/internal/storage"
	"robby/internal/strategy"
	"robby/internal/world"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "robby.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store       storage.Store
	initialized bool
	logger      *slog.Logger

	artifactsDir string
	exportsDir   string
	now          func() time.Time
}

type RunRequest struct {
	Config config.Config
	// World overrides loading Config.World from disk.
	World    *world.Grid
	RunID    string
	Reporter evo.Reporter
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Mode             scape.Mode
	BestByGeneration []float64
	Generalization   float64
	Champion         string
	ChampionFitness  float64
	// Sessions counts every simulated session, generalization included.
	Sessions int64
	Elapsed  time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Mode           string
	World          string
	Seed           int64
	Population     int
	Generations    int
	FinalBest      float64
	Generalization float64
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		now:          time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Run evolves strategies for the configured world, or scores the designed
// baseline when the mode does not evolve, then records the run.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	mode, err := scape.ParseMode(cfg.Mode)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	grid := req.World
	if grid == nil {
		grid, err = world.LoadFile(cfg.World)
		if err != nil {
			return RunSummary{}, err
		}
	}
	robbyScape, err := scape.NewRobbyScape(scape.EvaluatorConfig{
		Template:        grid,
		ItemProbability: cfg.ItemProbability,
		Sessions:        cfg.Sessions,
		Steps:           cfg.SessionActions,
		Mode:            mode,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := c.logger.With("run_id", runID, "mode", mode.String())
	logger.Info("run started",
		"world", cfg.World,
		"population", cfg.PopulationSize,
		"generations", cfg.Generations,
		"seed", cfg.Seed,
	)

	started := c.now()
	var result evo.RunResult
	if mode.Evolves() {
		selector, err := evo.ResolveSelector(cfg.Selection)
		if err != nil {
			return RunSummary{}, err
		}
		monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
			Scape:               robbyScape,
			Selector:            selector,
			PopulationSize:      cfg.PopulationSize,
			Generations:         cfg.Generations,
			Crossover:           cfg.Crossover,
			MutationProbability: cfg.MutationProbability,
			Seed:                cfg.Seed,
			Reporter:            req.Reporter,
			Logger:              logger,
		})
		if err != nil {
			return RunSummary{}, err
		}
		result, err = monitor.Run(ctx)
		if err != nil {
			return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
		}
	} else {
		result, err = scoreDesigned(ctx, robbyScape, cfg.Seed)
		if err != nil {
			return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
		}
	}
	elapsed := c.now().Sub(started)

	created := c.now().UTC()
	record := model.RunRecord{
		VersionedRecord:  storage.Versioned(),
		ID:               runID,
		CreatedAtUTC:     created,
		Config:           runConfig(cfg, mode),
		BestByGeneration: result.BestByGeneration,
		Diagnostics:      toModelDiagnostics(result.Diagnostics),
		Generalization:   result.Generalization,
		Champion:         result.Champion.String(),
		ChampionFitness:  result.Champion.Fitness,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config:                stats.RunConfig{RunID: runID, RunConfig: record.Config},
		BestByGeneration:      record.BestByGeneration,
		GenerationDiagnostics: record.Diagnostics,
		Champion: stats.Champion{
			Table:          record.Champion,
			Fitness:        record.ChampionFitness,
			Generalization: record.Generalization,
		},
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("write artifacts %s: %w", runID, err)
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:          runID,
		Mode:           record.Config.Mode,
		World:          record.Config.World,
		PopulationSize: record.Config.PopulationSize,
		Generations:    record.Config.Generations,
		Seed:           record.Config.Seed,
		Selection:      record.Config.Selection,
		FinalBest:      finalBest(record.BestByGeneration, record.ChampionFitness),
		Generalization: record.Generalization,
		CreatedAtUTC:   created.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, fmt.Errorf("index run %s: %w", runID, err)
	}

	sessions := int64(result.Evaluations)*int64(cfg.Sessions) + scape.GeneralizationSessions
	logger.Info("run finished",
		"generalization", result.Generalization,
		"sessions", sessions,
		"elapsed", elapsed,
		"artifacts", runDir,
	)

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     runDir,
		Mode:             mode,
		BestByGeneration: record.BestByGeneration,
		Generalization:   record.Generalization,
		Champion:         record.Champion,
		ChampionFitness:  record.ChampionFitness,
		Sessions:         sessions,
		Elapsed:          elapsed,
	}, nil
}

// scoreDesigned skips evolution and reports the generalization score of the
// hand-written baseline.
func scoreDesigned(ctx context.Context, s *scape.RobbyScape, seed int64) (evo.RunResult, error) {
	rng := rand.New(rand.NewSource(seed))
	designed := strategy.IntelligentDesign()
	fitness, err := s.Generalize(ctx, rng, designed)
	if err != nil {
		return evo.RunResult{}, err
	}
	designed.Fitness = float64(fitness)
	return evo.RunResult{
		Champion:       *designed,
		Generalization: float64(fitness),
	}, nil
}

// Runs lists finished runs newest first. Records from the run store come
// first-hand; index entries only fill in runs the store does not hold, such as
// runs recorded by another process with the memory store.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}

	type datedItem struct {
		item    RunItem
		created time.Time
	}
	items := make([]datedItem, 0, len(records)+len(entries))
	stored := make(map[string]bool, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		stored[r.ID] = true
		items = append(items, datedItem{
			item: RunItem{
				RunID:          r.ID,
				CreatedAtUTC:   r.CreatedAtUTC.UTC().Format(time.RFC3339Nano),
				Mode:           r.Config.Mode,
				World:          r.Config.World,
				Seed:           r.Config.Seed,
				Population:     r.Config.PopulationSize,
				Generations:    r.Config.Generations,
				FinalBest:      finalBest(r.BestByGeneration, r.ChampionFitness),
				Generalization: r.Generalization,
			},
			created: r.CreatedAtUTC,
		})
	}
	for _, e := range entries {
		if stored[e.RunID] {
			continue
		}
		created, _ := time.Parse(time.RFC3339Nano, e.CreatedAtUTC)
		items = append(items, datedItem{
			item: RunItem{
				RunID:          e.RunID,
				CreatedAtUTC:   e.CreatedAtUTC,
				Mode:           e.Mode,
				World:          e.World,
				Seed:           e.Seed,
				Population:     e.PopulationSize,
				Generations:    e.Generations,
				FinalBest:      e.FinalBest,
				Generalization: e.Generalization,
			},
			created: created,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].created.After(items[j].created)
	})
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}

	out := make([]RunItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.item)
	}
	return out, nil
}

// Show returns the stored record of a run. Runs recorded by another process
// with the memory store are rebuilt from their artifacts directory.
func (c *Client) Show(ctx context.Context, req ShowRequest) (model.RunRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return model.RunRecord{}, err
	}
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}

	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if ok {
		return record, nil
	}

	artifacts, ok, err := stats.ReadRunArtifacts(c.artifactsDir, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	record = model.RunRecord{
		VersionedRecord:  storage.Versioned(),
		ID:               runID,
		Config:           artifacts.Config.RunConfig,
		BestByGeneration: artifacts.BestByGeneration,
		Diagnostics:      artifacts.GenerationDiagnostics,
		Generalization:   artifacts.Champion.Generalization,
		Champion:         artifacts.Champion.Table,
		ChampionFitness:  artifacts.Champion.Fitness,
	}
	if entry, ok := c.indexEntry(runID); ok {
		if created, err := time.Parse(time.RFC3339Nano, entry.CreatedAtUTC); err == nil {
			record.CreatedAtUTC = created
		}
	}
	return record, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return "", errors.New("run id or latest is required")
	}
	if runID != "" {
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) indexEntry(runID string) (stats.RunIndexEntry, bool) {
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return stats.RunIndexEntry{}, false
	}
	for _, e := range entries {
		if e.RunID == runID {
			return e, true
		}
	}
	return stats.RunIndexEntry{}, false
}

func runConfig(cfg config.Config, mode scape.Mode) model.RunConfig {
	return model.RunConfig{
		PopulationSize:      cfg.PopulationSize,
		Generations:         cfg.Generations,
		Sessions:            cfg.Sessions,
		SessionActions:      cfg.SessionActions,
		MutationProbability: cfg.MutationProbability,
		ItemProbability:     cfg.ItemProbability,
		Seed:                cfg.Seed,
		World:               cfg.World,
		Crossover:           cfg.Crossover,
		Mode:                mode.String(),
		Selection:           cfg.Selection,
	}
}

func toModelDiagnostics(in []evo.GenerationDiagnostics) []model.GenerationDiagnostics {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.GenerationDiagnostics, 0, len(in))
	for _, d := range in {
		out = append(out, model.GenerationDiagnostics{
			Generation:  d.Generation,
			BestFitness: d.BestFitness,
			MeanFitness: d.MeanFitness,
			MinFitness:  d.MinFitness,
			StdDev:      d.StdDev,
			Distinct:    d.Distinct,
		})
	}
	return out
}

func finalBest(history []float64, fallback float64) float64 {
	if len(history) == 0 {
		return fallback
	}
	return history[len(history)-1]
}
