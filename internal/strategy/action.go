package strategy

import "fmt"

// Action is one gene of a strategy.
type Action uint8

const (
	MoveNorth Action = iota
	MoveSouth
	MoveEast
	MoveWest
	MoveRandom
	StayPut
	PickUp
)

// NumActions is the number of distinct actions.
const NumActions = 7

// Moves are the four directional actions MoveRandom chooses from, in index
// order.
var Moves = [4]Action{MoveNorth, MoveSouth, MoveEast, MoveWest}

func (a Action) Valid() bool {
	return a < NumActions
}

func (a Action) String() string {
	switch a {
	case MoveNorth:
		return "north"
	case MoveSouth:
		return "south"
	case MoveEast:
		return "east"
	case MoveWest:
		return "west"
	case MoveRandom:
		return "random"
	case StayPut:
		return "stay"
	case PickUp:
		return "pickup"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}
