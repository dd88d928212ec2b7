package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"robby/internal/evo"
	"robby/internal/scape"
	"robby/internal/storage"
)

// Config is the full set of run parameters. Sources are layered in the
// order defaults, environment, YAML file, command-line flags.
type Config struct {
	PopulationSize      int     `yaml:"population"`
	Generations         int     `yaml:"generations"`
	Sessions            int     `yaml:"sessions"`
	SessionActions      int     `yaml:"actions"`
	MutationProbability float64 `yaml:"mutation_probability"`
	ItemProbability     float64 `yaml:"item_probability"`
	Seed                int64   `yaml:"seed"`
	World               string  `yaml:"world"`
	Crossover           bool    `yaml:"crossover"`
	Mode                string  `yaml:"mode"`
	Selection           string  `yaml:"selection"`

	Store        string `yaml:"store"`
	DBPath       string `yaml:"db_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`
}

func Default() Config {
	return Config{
		PopulationSize:      200,
		Generations:         500,
		Sessions:            200,
		SessionActions:      200,
		MutationProbability: 0.005,
		ItemProbability:     0.5,
		Seed:                8675309,
		World:               "default.world",
		Crossover:           true,
		Mode:                "normal",
		Selection:           "rank",
		Store:               "memory",
		DBPath:              "robby.db",
		ArtifactsDir:        "runs",
	}
}

// FieldError names one rejected setting.
type FieldError struct {
	Field string
	Msg   string
}

// ValidationError collects every rejected setting of a Config.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Msg)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, FieldError{Field: field, Msg: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// LoadEnv reads the given dotenv files (".env" when none are named) into the
// process environment and applies the ROBBY_* variables to c. Missing dotenv
// files are ignored and variables already set in the process win.
func LoadEnv(c *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return c.ApplyEnv(os.LookupEnv)
}

// ApplyEnv overrides fields from ROBBY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	verr := &ValidationError{}
	envInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				verr.add(key, "must be an integer: %q", v)
				return
			}
			*dst = n
		}
	}
	envFloat := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				verr.add(key, "must be a number: %q", v)
				return
			}
			*dst = f
		}
	}
	envString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	envInt("ROBBY_POPULATION", &c.PopulationSize)
	envInt("ROBBY_GENERATIONS", &c.Generations)
	envInt("ROBBY_SESSIONS", &c.Sessions)
	envInt("ROBBY_ACTIONS", &c.SessionActions)
	envFloat("ROBBY_MUTATION", &c.MutationProbability)
	envFloat("ROBBY_ITEM_PROBABILITY", &c.ItemProbability)
	if v, ok := lookup("ROBBY_SEED"); ok {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			verr.add("ROBBY_SEED", "must be an integer: %q", v)
		} else {
			c.Seed = seed
		}
	}
	envString("ROBBY_WORLD", &c.World)
	if v, ok := lookup("ROBBY_CROSSOVER"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			verr.add("ROBBY_CROSSOVER", "must be a boolean: %q", v)
		} else {
			c.Crossover = b
		}
	}
	envString("ROBBY_MODE", &c.Mode)
	envString("ROBBY_SELECTION", &c.Selection)
	envString("ROBBY_STORE", &c.Store)
	envString("ROBBY_DB", &c.DBPath)
	envString("ROBBY_ARTIFACTS", &c.ArtifactsDir)
	return verr.orNil()
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values; unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return c.decodeYAML(f, path)
}

func (c *Config) decodeYAML(r io.Reader, name string) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", name, err)
	}
	return nil
}

func (c Config) Validate() error {
	verr := &ValidationError{}
	if c.PopulationSize <= 0 {
		verr.add("population", "must be > 0, got %d", c.PopulationSize)
	}
	if c.Generations <= 0 {
		verr.add("generations", "must be > 0, got %d", c.Generations)
	}
	if c.Sessions <= 0 {
		verr.add("sessions", "must be > 0, got %d", c.Sessions)
	}
	if c.SessionActions <= 0 {
		verr.add("actions", "must be > 0, got %d", c.SessionActions)
	}
	if !(c.MutationProbability >= 0 && c.MutationProbability <= 1) {
		verr.add("mutation_probability", "must be in [0, 1], got %g", c.MutationProbability)
	}
	if !(c.ItemProbability >= 0 && c.ItemProbability <= 1) {
		verr.add("item_probability", "must be in [0, 1], got %g", c.ItemProbability)
	}
	if strings.TrimSpace(c.World) == "" {
		verr.add("world", "is required")
	}
	if _, err := scape.ParseMode(c.Mode); err != nil {
		verr.add("mode", "%v", err)
	}
	if _, err := evo.ResolveSelector(c.Selection); err != nil {
		verr.add("selection", "%v", err)
	}
	if kind, err := storage.ParseKind(c.Store); err != nil {
		verr.add("store", "%v", err)
	} else if kind == storage.KindSQLite && strings.TrimSpace(c.DBPath) == "" {
		verr.add("db_path", "is required for the sqlite store")
	}
	return verr.orNil()
}
