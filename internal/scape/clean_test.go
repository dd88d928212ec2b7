package scape

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	"robby/internal/strategy"
	"robby/internal/world"
)

// room is a 5x5 world: a wall ring around a 3x3 open interior.
const room = "5 5\nxxxxx\nx   x\nx R x\nx   x\nxxxxx\n"

func loadWorld(t *testing.T, text string) *world.Grid {
	t.Helper()
	g, err := world.Load(strings.NewReader(text), t.Name())
	if err != nil {
		t.Fatalf("load world: %v", err)
	}
	return g
}

func forced(p world.Perception, a strategy.Action) *strategy.Strategy {
	var s strategy.Strategy
	s.Fill(strategy.StayPut)
	s.Actions[p.Index] = a
	return &s
}

func TestCleanPickUpItemRewards(t *testing.T) {
	g := loadWorld(t, room)
	g.Set(2, 2, world.Item)
	s := forced(g.Perception(), strategy.PickUp)

	r := Clean(rand.New(rand.NewSource(1)), g, s, 1, ModeNormal)
	if r.Score != PickUpReward {
		t.Fatalf("score=%d want=%d", r.Score, PickUpReward)
	}
	if r.ItemsCollected != 1 {
		t.Fatalf("items collected=%d want=1", r.ItemsCollected)
	}
	if got := g.Cell(2, 2); got != world.Open {
		t.Fatalf("cell after pickup=%s want open", got)
	}
}

func TestCleanWallCollisionPenalizesWithoutMoving(t *testing.T) {
	g := loadWorld(t, room)
	g.SetAgent(1, 2)
	s := forced(g.Perception(), strategy.MoveWest)

	r := Clean(rand.New(rand.NewSource(1)), g, s, 1, ModeNormal)
	if r.Score != WallPenalty {
		t.Fatalf("score=%d want=%d", r.Score, WallPenalty)
	}
	if x, y := g.Agent(); x != 1 || y != 2 {
		t.Fatalf("agent moved to (%d,%d)", x, y)
	}
}

func TestCleanEmptyPickUpPenalty(t *testing.T) {
	g := loadWorld(t, room)
	s := forced(g.Perception(), strategy.PickUp)

	r := Clean(rand.New(rand.NewSource(1)), g, s, 1, ModeNormal)
	if r.Score != EmptyPickUpPenalty || r.EmptyPickups != 1 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestCleanMovesAgent(t *testing.T) {
	cases := []struct {
		action strategy.Action
		x, y   int
	}{
		{strategy.MoveNorth, 2, 1},
		{strategy.MoveSouth, 2, 3},
		{strategy.MoveEast, 3, 2},
		{strategy.MoveWest, 1, 2},
	}
	for _, tc := range cases {
		g := loadWorld(t, room)
		s := forced(g.Perception(), tc.action)
		r := Clean(rand.New(rand.NewSource(1)), g, s, 1, ModeNormal)
		if r.Score != 0 {
			t.Fatalf("%s: score=%d want=0", tc.action, r.Score)
		}
		if x, y := g.Agent(); x != tc.x || y != tc.y {
			t.Fatalf("%s: agent at (%d,%d) want (%d,%d)", tc.action, x, y, tc.x, tc.y)
		}
	}
}

func TestCleanStayPutIsFree(t *testing.T) {
	g := loadWorld(t, room)
	var s strategy.Strategy
	s.Fill(strategy.StayPut)

	r := Clean(rand.New(rand.NewSource(1)), g, &s, 50, ModeNormal)
	if r.Score != 0 || r.Steps != 50 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestCleanRandomMoveVisitsEveryDirection(t *testing.T) {
	g := loadWorld(t, room)
	start := g.Perception()
	s := forced(start, strategy.MoveRandom)
	rng := rand.New(rand.NewSource(11))

	seen := map[[2]int]int{}
	for i := 0; i < 400; i++ {
		g.SetAgent(2, 2)
		Clean(rng, g, s, 1, ModeNormal)
		x, y := g.Agent()
		seen[[2]int{x, y}]++
	}
	if len(seen) != 4 {
		t.Fatalf("expected all four neighbours reached, got %v", seen)
	}
	for pos, n := range seen {
		if n < 60 {
			t.Fatalf("direction to %v chosen only %d/400 times", pos, n)
		}
	}
}

func TestCleanIsSeedDeterministic(t *testing.T) {
	var s strategy.Strategy
	s.Randomize(rand.New(rand.NewSource(5)))

	run := func() Result {
		g := loadWorld(t, room)
		rng := rand.New(rand.NewSource(42))
		g.ScatterItems(rng, 0.5)
		return Clean(rng, g, &s, 200, ModeNormal)
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
}

func TestSmartModeNeverHitsWalls(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for trial := 0; trial < 20; trial++ {
		var s strategy.Strategy
		s.Randomize(rng)
		g := loadWorld(t, room)
		g.ScatterItems(rng, 0.5)
		r := Clean(rng, g, &s, 200, ModeSmart)
		if r.WallHits != 0 {
			t.Fatalf("smart agent hit walls %d times", r.WallHits)
		}
		if r.EmptyPickups != 0 {
			t.Fatalf("smart agent picked up nothing %d times", r.EmptyPickups)
		}
		if r.Score < 0 {
			t.Fatalf("smart agent scored %d", r.Score)
		}
	}
}

func TestSmartModeTurnsClockwiseAtWalls(t *testing.T) {
	g := loadWorld(t, room)
	g.SetAgent(3, 1) // north-east corner of the interior
	s := forced(g.Perception(), strategy.MoveNorth)

	Clean(rand.New(rand.NewSource(1)), g, s, 1, ModeSmart)
	// north is a wall, east is a wall, so the agent turns south.
	if x, y := g.Agent(); x != 3 || y != 2 {
		t.Fatalf("agent at (%d,%d) want (3,2)", x, y)
	}
}

func TestSmartModeAlwaysPicksUpItems(t *testing.T) {
	g := loadWorld(t, room)
	g.Set(2, 2, world.Item)
	s := forced(g.Perception(), strategy.MoveEast)

	r := Clean(rand.New(rand.NewSource(1)), g, s, 1, ModeSmart)
	if r.Score != PickUpReward {
		t.Fatalf("score=%d want=%d", r.Score, PickUpReward)
	}
	if x, y := g.Agent(); x != 2 || y != 2 {
		t.Fatalf("agent moved to (%d,%d)", x, y)
	}
}

func TestSmartModeWalledInStaysPut(t *testing.T) {
	g := loadWorld(t, "3 3\nxxx\nxRx\nxxx\n")
	var s strategy.Strategy
	s.Fill(strategy.MoveWest)

	r := Clean(rand.New(rand.NewSource(1)), g, &s, 3, ModeSmart)
	if r.Score != 0 {
		t.Fatalf("score=%d want=0", r.Score)
	}
}

func TestEvaluatorAveragesSessions(t *testing.T) {
	template := loadWorld(t, room)
	evaluator, err := NewEvaluator(EvaluatorConfig{
		Template:        template,
		ItemProbability: 1,
		Sessions:        10,
		Steps:           1,
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	var s strategy.Strategy
	s.Fill(strategy.PickUp)
	fitness, trace := evaluator.Evaluate(rand.New(rand.NewSource(1)), &s)
	if fitness != PickUpReward || s.Fitness != PickUpReward {
		t.Fatalf("fitness=%g stored=%g want=%d", fitness, s.Fitness, PickUpReward)
	}
	if trace["items_collected"].(float64) != 1 {
		t.Fatalf("unexpected trace: %+v", trace)
	}
	if template.Cell(2, 2) != world.Open {
		t.Fatal("evaluation modified the template world")
	}

	g := evaluator.Generalization(rand.New(rand.NewSource(1)), &s)
	if g != PickUpReward {
		t.Fatalf("generalization=%g want=%d", g, PickUpReward)
	}
}

func TestEvaluatorGeneralizationKeepsFitness(t *testing.T) {
	evaluator, err := NewEvaluator(EvaluatorConfig{
		Template:        loadWorld(t, room),
		ItemProbability: 0,
		Sessions:        3,
		Steps:           5,
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	var s strategy.Strategy
	s.Fill(strategy.PickUp)
	s.Fitness = 99

	if g := evaluator.Generalization(rand.New(rand.NewSource(1)), &s); g != 5*EmptyPickUpPenalty {
		t.Fatalf("generalization=%g want=%d", g, 5*EmptyPickUpPenalty)
	}
	if s.Fitness != 99 {
		t.Fatalf("generalization overwrote fitness: %g", s.Fitness)
	}
}

func TestEvaluatorIgnoresLaterTemplateEdits(t *testing.T) {
	template := loadWorld(t, room)
	evaluator, err := NewEvaluator(EvaluatorConfig{
		Template:        template,
		ItemProbability: 0,
		Sessions:        2,
		Steps:           1,
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	template.Set(2, 2, world.Item)

	var s strategy.Strategy
	s.Fill(strategy.PickUp)
	if fitness, _ := evaluator.Evaluate(rand.New(rand.NewSource(1)), &s); fitness != EmptyPickUpPenalty {
		t.Fatalf("fitness=%g want=%d", fitness, EmptyPickUpPenalty)
	}
}

func TestNewEvaluatorValidates(t *testing.T) {
	template := loadWorld(t, room)
	bad := []EvaluatorConfig{
		{ItemProbability: 0.5, Sessions: 1, Steps: 1},
		{Template: template, ItemProbability: -0.1, Sessions: 1, Steps: 1},
		{Template: template, ItemProbability: math.NaN(), Sessions: 1, Steps: 1},
		{Template: template, ItemProbability: 0.5, Sessions: 0, Steps: 1},
		{Template: template, ItemProbability: 0.5, Sessions: 1, Steps: 0},
	}
	for i, cfg := range bad {
		if _, err := NewEvaluator(cfg); err == nil {
			t.Fatalf("config %d: expected error", i)
		}
	}
}

func TestRobbyScapeHonorsContext(t *testing.T) {
	sc, err := NewRobbyScape(EvaluatorConfig{Template: loadWorld(t, room), ItemProbability: 0.5, Sessions: 2, Steps: 10, Mode: ModeSmart})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	if sc.Name() != "robby-smart" {
		t.Fatalf("name=%s", sc.Name())
	}

	var s strategy.Strategy
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := sc.Evaluate(ctx, rand.New(rand.NewSource(1)), &s); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := sc.Generalize(ctx, rand.New(rand.NewSource(1)), &s); err == nil {
		t.Fatal("expected context error")
	}
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{"": ModeNormal, "normal": ModeNormal, "Smart": ModeSmart, "id": ModeDesigned} {
		got, err := ParseMode(name)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q)=%v,%v want %v", name, got, err, want)
		}
	}
	if _, err := ParseMode("genius"); err == nil {
		t.Fatal("expected unsupported mode error")
	}
	if ModeDesigned.Evolves() || !ModeSmart.Evolves() {
		t.Fatal("unexpected Evolves result")
	}
}
