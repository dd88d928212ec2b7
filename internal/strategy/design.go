package strategy

import "robby/internal/world"

// IntelligentDesign returns the hand-written baseline: pick up an item when
// standing on one, step toward an adjacent item, step away from an adjacent
// wall, otherwise move randomly. Neighbours are checked west, north, east,
// south.
func IntelligentDesign() *Strategy {
	var s Strategy
	for i := range s.Actions {
		s.Actions[i] = designedAction(world.Decode(i))
	}
	return &s
}

func designedAction(p world.Perception) Action {
	switch {
	case p.Current == world.Item:
		return PickUp
	case p.West == world.Item:
		return MoveWest
	case p.North == world.Item:
		return MoveNorth
	case p.East == world.Item:
		return MoveEast
	case p.South == world.Item:
		return MoveSouth
	case p.West == world.Wall:
		return MoveEast
	case p.North == world.Wall:
		return MoveSouth
	case p.East == world.Wall:
		return MoveWest
	case p.South == world.Wall:
		return MoveNorth
	default:
		return MoveRandom
	}
}
