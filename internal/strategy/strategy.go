package strategy

import (
	"fmt"
	"math/rand"
	"strings"

	"robby/internal/world"
)

// Length is the number of genes in a strategy: one per perception.
const Length = world.NumPerceptions

// Strategy maps every perception index to an action. The table is an array so
// assignment copies it.
type Strategy struct {
	Actions [Length]Action
	// Fitness is the mean session score from the last evaluation.
	Fitness float64
}

// Randomize assigns every gene an independently uniform action.
func (s *Strategy) Randomize(rng *rand.Rand) {
	for i := range s.Actions {
		s.Actions[i] = Action(rng.Intn(NumActions))
	}
}

// Clone returns an independent copy.
func (s *Strategy) Clone() *Strategy {
	c := *s
	return &c
}

// Action returns the gene for a perception.
func (s *Strategy) Action(p world.Perception) Action {
	return s.Actions[p.Index]
}

// String encodes the table as Length digits in [0, NumActions).
func (s *Strategy) String() string {
	var b strings.Builder
	b.Grow(Length)
	for _, a := range s.Actions {
		b.WriteByte('0' + byte(a))
	}
	return b.String()
}

// Parse decodes a table produced by String. Fitness is left at zero.
func Parse(encoded string) (*Strategy, error) {
	if len(encoded) != Length {
		return nil, fmt.Errorf("strategy encoding has %d genes, want %d", len(encoded), Length)
	}
	var s Strategy
	for i := 0; i < Length; i++ {
		a := Action(encoded[i] - '0')
		if encoded[i] < '0' || !a.Valid() {
			return nil, fmt.Errorf("strategy gene %d: invalid action %q", i, encoded[i])
		}
		s.Actions[i] = a
	}
	return &s, nil
}

// Fill sets every gene to a.
func (s *Strategy) Fill(a Action) {
	for i := range s.Actions {
		s.Actions[i] = a
	}
}
