package world

import "fmt"

// NumPerceptions is the number of distinct five-cell views (3^5).
const NumPerceptions = 243

// Perception is the agent's view of its own cell and the four orthogonal
// neighbours. Index is the dense table index derived from the five fields.
type Perception struct {
	Current Cell
	North   Cell
	South   Cell
	East    Cell
	West    Cell
	Index   int
}

// Encode treats the five fields as base-3 digits, east most significant.
func Encode(p Perception) int {
	for _, c := range [...]Cell{p.Current, p.North, p.South, p.East, p.West} {
		if !c.Valid() {
			panic(fmt.Sprintf("world: perception %+v holds invalid cell", p))
		}
	}
	return int(p.East)*81 +
		int(p.West)*27 +
		int(p.South)*9 +
		int(p.North)*3 +
		int(p.Current)
}

// Decode inverts Encode. index must be in [0, NumPerceptions).
func Decode(index int) Perception {
	if index < 0 || index >= NumPerceptions {
		panic(fmt.Sprintf("world: perception index %d outside [0,%d)", index, NumPerceptions))
	}
	return Perception{
		East:    Cell((index / 81) % 3),
		West:    Cell((index / 27) % 3),
		South:   Cell((index / 9) % 3),
		North:   Cell((index / 3) % 3),
		Current: Cell(index % 3),
		Index:   index,
	}
}

// NewPerception builds a perception and fills in its index.
func NewPerception(current, north, south, east, west Cell) Perception {
	p := Perception{Current: current, North: north, South: south, East: east, West: west}
	p.Index = Encode(p)
	return p
}
