package world

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
)

// Grid is a rectangular row-major cell grid plus the agent position. The
// outer ring is expected to be Wall so every interior cell has four neighbours.
type Grid struct {
	width  int
	height int
	cells  []Cell
	x      int
	y      int
}

// NewGrid allocates a grid of the given size. Cell contents start Open and
// the agent at (0, 0); callers load the real contents.
func NewGrid(width, height int) *Grid {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("world: grid dimensions %dx%d must be positive", width, height))
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Agent returns the agent coordinates.
func (g *Grid) Agent() (int, int) {
	return g.x, g.y
}

// SetAgent places the agent. The target must be in bounds and not a Wall.
func (g *Grid) SetAgent(x, y int) {
	if c := g.Cell(x, y); c == Wall {
		panic(fmt.Sprintf("world: agent cannot stand on wall at (%d,%d)", x, y))
	}
	g.x, g.y = x, y
}

// Cell returns the cell at (x, y).
func (g *Grid) Cell(x, y int) Cell {
	g.mustContain(x, y)
	c := g.cells[y*g.width+x]
	mustValid(c)
	return c
}

// Set writes the cell at (x, y).
func (g *Grid) Set(x, y int, c Cell) {
	g.mustContain(x, y)
	mustValid(c)
	g.cells[y*g.width+x] = c
}

func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Interior reports whether (x, y) is off the outer ring.
func (g *Grid) Interior(x, y int) bool {
	return x >= 1 && y >= 1 && x < g.width-1 && y < g.height-1
}

func (g *Grid) mustContain(x, y int) {
	if !g.Contains(x, y) {
		panic(fmt.Sprintf("world: coordinate (%d,%d) outside %dx%d grid", x, y, g.width, g.height))
	}
}

// CopyTo copies cells and agent position into dst, which must have the same
// dimensions.
func (g *Grid) CopyTo(dst *Grid) {
	if dst == g {
		panic("world: copy of grid onto itself")
	}
	if dst.width != g.width || dst.height != g.height {
		panic(fmt.Sprintf("world: copy %dx%d grid into %dx%d grid", g.width, g.height, dst.width, dst.height))
	}
	copy(dst.cells, g.cells)
	dst.x, dst.y = g.x, g.y
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	dst := NewGrid(g.width, g.height)
	g.CopyTo(dst)
	return dst
}

// ScatterItems turns every Open cell into an Item with probability p, one
// independent trial per cell in row-major order.
func (g *Grid) ScatterItems(rng *rand.Rand, p float64) {
	if !(p >= 0 && p <= 1) {
		panic(fmt.Sprintf("world: item probability %g outside [0,1]", p))
	}
	for i, c := range g.cells {
		if c != Open {
			continue
		}
		if rng.Float64() < p {
			g.cells[i] = Item
		}
	}
}

// Perception returns the view from the agent's cell.
func (g *Grid) Perception() Perception {
	return g.PerceptionAt(g.x, g.y)
}

// PerceptionAt returns the view from (x, y), which must be interior.
func (g *Grid) PerceptionAt(x, y int) Perception {
	if !g.Interior(x, y) {
		panic(fmt.Sprintf("world: perception at non-interior coordinate (%d,%d) of %dx%d grid", x, y, g.width, g.height))
	}
	return NewPerception(
		g.Cell(x, y),
		g.Cell(x, y-1),
		g.Cell(x, y+1),
		g.Cell(x+1, y),
		g.Cell(x-1, y),
	)
}

// Counts tallies cells by content.
func (g *Grid) Counts() (open, items, walls int) {
	for _, c := range g.cells {
		switch c {
		case Open:
			open++
		case Item:
			items++
		case Wall:
			walls++
		}
	}
	return open, items, walls
}

// WriteTo dumps the grid as text, marking the agent with 'R'.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	count := func(written int, err error) error {
		n += int64(written)
		return err
	}
	if err := count(fmt.Fprintf(bw, "Size: %dx%d\nRobby: (%d, %d)\n", g.width, g.height, g.x, g.y)); err != nil {
		return n, err
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			r := g.Cell(x, y).Rune()
			if x == g.x && y == g.y {
				r = 'R'
			}
			if err := count(bw.WriteRune(r)); err != nil {
				return n, err
			}
		}
		if err := count(bw.WriteRune('\n')); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
