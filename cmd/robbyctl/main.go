package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"robby/internal/config"
	"robby/internal/model"
	"robby/internal/scape"
	"robby/internal/world"
	"robby/pkg/robby"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "dump":
		return runDump(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	envFile := fs.String("env-file", ".env", "dotenv file with ROBBY_* variables")
	population := fs.Int("pop", defaults.PopulationSize, "population size")
	generations := fs.Int("gens", defaults.Generations, "number of generations")
	sessions := fs.Int("sessions", defaults.Sessions, "cleaning sessions per evaluation")
	actions := fs.Int("actions", defaults.SessionActions, "actions per cleaning session")
	mutation := fs.Float64("mutation", defaults.MutationProbability, "per-gene mutation probability")
	itemProb := fs.Float64("item-prob", defaults.ItemProbability, "probability an open cell holds an item")
	seed := fs.Int64("seed", defaults.Seed, "random seed")
	worldPath := fs.String("world", defaults.World, "world file")
	noCrossover := fs.Bool("no-crossover", false, "clone parents instead of crossing them over")
	mode := fs.String("robby", defaults.Mode, "agent mode: normal|smart|id")
	selection := fs.String("selection", defaults.Selection, "parent selection: rank|tournament|elite")
	storeKind := fs.String("store", defaults.Store, "run store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaults.DBPath, "sqlite database path")
	artifactsDir := fs.String("artifacts", defaults.ArtifactsDir, "run artifacts directory")
	runID := fs.String("run-id", "", "run id (generated when empty)")
	verbose := fs.Bool("v", false, "log per-generation diagnostics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg := config.Default()
	if err := config.LoadEnv(&cfg, *envFile); err != nil {
		return err
	}
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return err
		}
	}
	overrides := []struct {
		name  string
		apply func()
	}{
		{"pop", func() { cfg.PopulationSize = *population }},
		{"gens", func() { cfg.Generations = *generations }},
		{"sessions", func() { cfg.Sessions = *sessions }},
		{"actions", func() { cfg.SessionActions = *actions }},
		{"mutation", func() { cfg.MutationProbability = *mutation }},
		{"item-prob", func() { cfg.ItemProbability = *itemProb }},
		{"seed", func() { cfg.Seed = *seed }},
		{"world", func() { cfg.World = *worldPath }},
		{"no-crossover", func() { cfg.Crossover = !*noCrossover }},
		{"robby", func() { cfg.Mode = *mode }},
		{"selection", func() { cfg.Selection = *selection }},
		{"store", func() { cfg.Store = *storeKind }},
		{"db-path", func() { cfg.DBPath = *dbPath }},
		{"artifacts", func() { cfg.ArtifactsDir = *artifactsDir }},
	}
	for _, o := range overrides {
		if setFlags[o.name] {
			o.apply()
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Input errors must surface before anything reaches stdout.
	grid, err := world.LoadFile(cfg.World)
	if err != nil {
		return err
	}

	logger := newLogger(*verbose)
	client, err := robby.New(robby.Options{
		StoreKind:    cfg.Store,
		DBPath:       cfg.DBPath,
		ArtifactsDir: cfg.ArtifactsDir,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	agentMode, err := scape.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	req := robby.RunRequest{Config: cfg, World: grid, RunID: *runID}
	if agentMode.Evolves() {
		headerDone := false
		req.Reporter = func(generation int, best float64) {
			if !headerDone {
				fmt.Println("# Generation\tScore")
				headerDone = true
			}
			fmt.Printf("%d\t\t%g\n", generation, best)
		}
	}
	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("# Generalization score: %g\n", summary.Generalization)

	fmt.Fprintf(os.Stderr, "run %s: %s sessions in %s, artifacts in %s\n",
		summary.RunID,
		humanize.Comma(summary.Sessions),
		summary.Elapsed.Round(time.Millisecond),
		summary.ArtifactsDir,
	)
	return nil
}

func runDump(_ context.Context, args []string) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	worldPath := fs.String("world", defaults.World, "world file")
	itemProb := fs.Float64("item-prob", 0, "scatter items with this probability before dumping")
	seed := fs.Int64("seed", defaults.Seed, "random seed for item scattering")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *itemProb < 0 || *itemProb > 1 {
		return errors.New("item-prob must be in [0, 1]")
	}

	grid, err := world.LoadFile(*worldPath)
	if err != nil {
		return err
	}
	if *itemProb > 0 {
		grid.ScatterItems(rand.New(rand.NewSource(*seed)), *itemProb)
	}
	_, err = grid.WriteTo(os.Stdout)
	return err
}

func runRuns(ctx context.Context, args []string) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	storeKind := fs.String("store", defaults.Store, "run store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaults.DBPath, "sqlite database path")
	artifactsDir := fs.String("artifacts", defaults.ArtifactsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := robby.New(robby.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: *artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	items, err := client.Runs(ctx, robby.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created=%s mode=%s world=%s seed=%d pop=%d gens=%d final_best=%g generalization=%g\n",
			item.RunID,
			humanizeCreated(item.CreatedAtUTC),
			item.Mode,
			item.World,
			item.Seed,
			item.Population,
			item.Generations,
			item.FinalBest,
			item.Generalization,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	storeKind := fs.String("store", defaults.Store, "run store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaults.DBPath, "sqlite database path")
	artifactsDir := fs.String("artifacts", defaults.ArtifactsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit the run record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := robby.New(robby.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: *artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.Show(ctx, robby.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(record)
	}
	printRecord(record)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	defaults := config.Default()
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	artifactsDir := fs.String("artifacts", defaults.ArtifactsDir, "run artifacts directory")
	outDir := fs.String("out", "exports", "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := robby.New(robby.Options{ArtifactsDir: *artifactsDir, ExportsDir: *outDir})
	if err != nil {
		return err
	}
	exported, err := client.Export(ctx, robby.ExportRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func printRecord(record model.RunRecord) {
	fmt.Printf("# Run %s\n", record.ID)
	if !record.CreatedAtUTC.IsZero() {
		fmt.Printf("# Created: %s (%s)\n", record.CreatedAtUTC.Format(time.RFC3339), humanize.Time(record.CreatedAtUTC))
	}
	cfg := record.Config
	fmt.Printf("# Mode: %s  World: %s  Seed: %d\n", cfg.Mode, cfg.World, cfg.Seed)
	fmt.Printf("# Population: %d  Generations: %d  Sessions: %d  Actions: %d\n",
		cfg.PopulationSize, cfg.Generations, cfg.Sessions, cfg.SessionActions)
	fmt.Printf("# Mutation: %g  Items: %g  Crossover: %t  Selection: %s\n",
		cfg.MutationProbability, cfg.ItemProbability, cfg.Crossover, cfg.Selection)
	fmt.Printf("# Champion: %s\n", record.Champion)
	if len(record.BestByGeneration) > 0 {
		fmt.Println("# Generation\tScore")
		for i, best := range record.BestByGeneration {
			fmt.Printf("%d\t\t%g\n", i+1, best)
		}
	}
	fmt.Printf("# Generalization score: %g\n", record.Generalization)
}

func humanizeCreated(value string) string {
	created, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return humanize.Time(created)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func writeJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: robbyctl <run|dump|runs|show|export> [flags]", msg)
}
