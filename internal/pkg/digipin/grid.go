package digipin

import "fmt"

// Size is the number of rows and columns in the alphabet matrix.
const Size = 4

// Grid is the 4×4 symbol alphabet used at every subdivision level.
// It is immutable once built.
type Grid struct {
	symbols   [Size][Size]byte
	positions [256]int8 // row*Size+col, -1 for foreign bytes
}

// DefaultSymbols is the standard DIGIPIN alphabet.
var DefaultSymbols = [Size][Size]byte{
	{'F', 'C', '9', '8'},
	{'J', '3', '2', '7'},
	{'K', '4', '5', '6'},
	{'L', 'M', 'P', 'T'},
}

// NewGrid builds a Grid and checks that the 16 symbols are distinct, printable,
// uppercase-stable and not the hyphen separator.
func NewGrid(symbols [Size][Size]byte) (*Grid, error) {
	g := &Grid{symbols: symbols}
	for i := range g.positions {
		g.positions[i] = -1
	}

	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			s := symbols[r][c]
			switch {
			case s <= ' ' || s > '~':
				return nil, fmt.Errorf("grid symbol at (%d,%d) is not printable ASCII", r, c)
			case s == Separator:
				return nil, fmt.Errorf("grid symbol at (%d,%d) collides with separator %q", r, c, Separator)
			case s >= 'a' && s <= 'z':
				return nil, fmt.Errorf("grid symbol %q at (%d,%d) must be uppercase", s, r, c)
			}
			if g.positions[s] >= 0 {
				return nil, fmt.Errorf("grid symbol %q repeated at (%d,%d)", s, r, c)
			}
			g.positions[s] = int8(r*Size + c)
		}
	}
	return g, nil
}

// MustGrid is like NewGrid but panics on error.
func MustGrid(symbols [Size][Size]byte) *Grid {
	g, err := NewGrid(symbols)
	if err != nil {
		panic(err)
	}
	return g
}

// Symbol returns the symbol at (row, col). Both must be in [0, Size).
func (g *Grid) Symbol(row, col int) byte {
	return g.symbols[row][col]
}

// Position returns the (row, col) of sym. ok is false for bytes outside the alphabet.
func (g *Grid) Position(sym byte) (row, col int, ok bool) {
	p := g.positions[sym]
	if p < 0 {
		return 0, 0, false
	}
	return int(p) / Size, int(p) % Size, true
}

// Contains reports whether sym belongs to the alphabet.
func (g *Grid) Contains(sym byte) bool {
	return g.positions[sym] >= 0
}

// Bounds is the geographic rectangle a codec addresses, in degrees.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// DefaultBounds covers India and its maritime zone.
var DefaultBounds = Bounds{
	MinLat: 2.5,
	MaxLat: 38.5,
	MinLon: 63.5,
	MaxLon: 99.5,
}

// Cell returns the bounds as a Cell.
func (b Bounds) Cell() Cell {
	return Cell{
		SouthWest: Point{Lat: b.MinLat, Lon: b.MinLon},
		NorthEast: Point{Lat: b.MaxLat, Lon: b.MaxLon},
	}
}

func (b Bounds) validate() error {
	if !(b.MinLat < b.MaxLat) || !(b.MinLon < b.MaxLon) {
		return fmt.Errorf("bounds must satisfy min < max, got lat [%v, %v] lon [%v, %v]",
			b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("bounds exceed the WGS 84 range")
	}
	return nil
}
