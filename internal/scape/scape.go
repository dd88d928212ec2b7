package scape

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"robby/internal/strategy"
)

type Fitness float64

type Trace map[string]any

// Scape scores a strategy. Implementations draw all randomness from rng so a
// run is reproducible from its seed.
type Scape interface {
	Name() string
	Evaluate(ctx context.Context, rng *rand.Rand, s *strategy.Strategy) (Fitness, Trace, error)
}

// GeneralizingScape optionally exposes a low-variance score used once per run
// for reporting.
type GeneralizingScape interface {
	Scape
	Generalize(ctx context.Context, rng *rand.Rand, s *strategy.Strategy) (Fitness, error)
}

// Mode selects how the agent turns genes into moves.
type Mode int

const (
	// ModeNormal executes the gene for the current perception.
	ModeNormal Mode = iota
	// ModeSmart always picks up items and turns clockwise at walls.
	ModeSmart
	// ModeDesigned runs the hand-written baseline table without evolution.
	ModeDesigned
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSmart:
		return "smart"
	case ModeDesigned:
		return "id"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Evolves reports whether the mode runs the genetic algorithm.
func (m Mode) Evolves() bool {
	return m == ModeNormal || m == ModeSmart
}

func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normal":
		return ModeNormal, nil
	case "smart":
		return ModeSmart, nil
	case "id", "designed":
		return ModeDesigned, nil
	default:
		return 0, fmt.Errorf("unsupported robby mode: %s", name)
	}
}
