package world

import "fmt"

// Cell is the content of one grid square. Cells fit in two bits.
type Cell uint8

const (
	Open Cell = iota
	Item
	Wall
	// Invalid never appears in a live grid.
	Invalid
)

// NumCellStates is the number of valid cell values.
const NumCellStates = 3

func (c Cell) Valid() bool {
	return c < Invalid
}

func (c Cell) String() string {
	switch c {
	case Open:
		return "open"
	case Item:
		return "item"
	case Wall:
		return "wall"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(c))
	}
}

// Rune is the character used for the cell in text dumps.
func (c Cell) Rune() rune {
	switch c {
	case Open:
		return ' '
	case Item:
		return 'c'
	case Wall:
		return 'x'
	default:
		return '?'
	}
}

func mustValid(c Cell) {
	if !c.Valid() {
		panic(fmt.Sprintf("world: invalid cell value %d", uint8(c)))
	}
}
