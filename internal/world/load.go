package world

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxDimension bounds the width and height of a world file.
const MaxDimension = 4096

// FormatError reports a malformed world file.
type FormatError struct {
	Name   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ":%d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// dimensions is the first line of a world file: "width height".
type dimensions struct {
	Width  int `parser:"@Int"`
	Height int `parser:"@Int"`
}

var dimensionsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var dimensionsParser = participle.MustBuild[dimensions](
	participle.Lexer(dimensionsLexer),
	participle.Elide("Whitespace"),
)

// LoadFile reads a world file from disk.
func LoadFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open world: %w", err)
	}
	defer f.Close()
	return Load(f, path)
}

// Load parses a world: a "width height" line followed by height rows of at
// least width characters where ' ' is open, 'x' is wall and 'R' is the open
// cell the agent starts on. The outer ring must be wall.
func Load(r io.Reader, name string) (*Grid, error) {
	br := bufio.NewReader(r)
	fail := func(line, col int, format string, args ...any) error {
		return &FormatError{Name: name, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
	}

	first, err := readLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fail(1, 0, "missing dimensions line (file too short?)")
		}
		return nil, fmt.Errorf("read world %s: %w", name, err)
	}
	dims, err := dimensionsParser.ParseString(name, first)
	if err != nil {
		return nil, &FormatError{Name: name, Line: 1, Msg: "malformed dimensions line", Err: err}
	}
	if dims.Width < 1 || dims.Height < 1 {
		return nil, fail(1, 0, "world dimensions %dx%d must be positive", dims.Width, dims.Height)
	}
	if dims.Width > MaxDimension || dims.Height > MaxDimension {
		return nil, fail(1, 0, "world too big (maximum dimensions: %d square)", MaxDimension)
	}

	grid := NewGrid(dims.Width, dims.Height)
	found := false
	for y := 0; y < dims.Height; y++ {
		lineNo := y + 2
		row, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fail(lineNo, 0, "expected %d rows, file ends after %d (file too short?)", dims.Height, y)
			}
			return nil, fmt.Errorf("read world %s: %w", name, err)
		}
		if len(row) < dims.Width {
			return nil, fail(lineNo, len(row)+1, "row has %d characters, want at least %d", len(row), dims.Width)
		}
		for x := 0; x < dims.Width; x++ {
			switch ch := row[x]; ch {
			case ' ':
				grid.Set(x, y, Open)
			case 'x':
				grid.Set(x, y, Wall)
			case 'R':
				if found {
					return nil, fail(lineNo, x+1, "second Robby start position (R)")
				}
				grid.Set(x, y, Open)
				grid.SetAgent(x, y)
				found = true
			default:
				return nil, fail(lineNo, x+1, "unknown character %q in world", ch)
			}
		}
	}
	if !found {
		return nil, fail(0, 0, "world contains no Robby start position (R) cell")
	}
	if x, y := grid.Agent(); !grid.Interior(x, y) {
		return nil, fail(y+2, x+1, "Robby start position (R) must not be on the outer ring")
	}
	for y := 0; y < dims.Height; y++ {
		for x := 0; x < dims.Width; x++ {
			if !grid.Interior(x, y) && grid.Cell(x, y) != Wall {
				return nil, fail(y+2, x+1, "outer ring must be wall ('x')")
			}
		}
	}
	return grid, nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned as is; io.EOF is only reported when nothing
// is left.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
