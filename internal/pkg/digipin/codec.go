package digipin

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

const (
	// Length is the number of symbols in a canonical DIGIPIN.
	Length = 10

	// Separator is the display-only grouping character.
	Separator = '-'
)

// Codec binds an alphabet to a bounding box. The zero value is not usable;
// build one with NewCodec or use Default.
type Codec struct {
	grid   *Grid
	bounds Bounds
}

// Default is the standard DIGIPIN codec.
var Default = MustCodec(MustGrid(DefaultSymbols), DefaultBounds)

// NewCodec returns a codec over grid and bounds.
func NewCodec(grid *Grid, bounds Bounds) (*Codec, error) {
	if grid == nil {
		return nil, fmt.Errorf("grid is required")
	}
	if err := bounds.validate(); err != nil {
		return nil, err
	}
	return &Codec{grid: grid, bounds: bounds}, nil
}

// MustCodec is like NewCodec but panics on error.
func MustCodec(grid *Grid, bounds Bounds) *Codec {
	c, err := NewCodec(grid, bounds)
	if err != nil {
		panic(err)
	}
	return c
}

// Grid returns the codec alphabet.
func (c *Codec) Grid() *Grid { return c.grid }

// Bounds returns the addressable area.
func (c *Codec) Bounds() Bounds { return c.bounds }

// Normalize trims, strips hyphens and uppercases pin, then checks length and
// alphabet membership. It returns the bare 10-symbol form.
func (c *Codec) Normalize(pin string) (string, error) {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pin), string(Separator), ""))

	runes := []rune(clean)
	if n := len(runes); n != Length {
		return "", invalid("pin", fmt.Sprintf("DIGIPIN must have %d characters, got %d", Length, n))
	}
	for i, r := range runes {
		if r > unicode.MaxASCII || !c.grid.Contains(byte(r)) {
			return "", invalid("pin", fmt.Sprintf("invalid DIGIPIN character %q at position %d", r, i+1))
		}
	}
	return clean, nil
}

// Validate returns a *ValidationError when pin is not a well-formed DIGIPIN.
func (c *Codec) Validate(pin string) error {
	_, err := c.Normalize(pin)
	return err
}

// IsValid reports whether pin is a well-formed DIGIPIN. It never fails.
func (c *Codec) IsValid(pin string) bool {
	return c.Validate(pin) == nil
}

// Encode returns the display form (XXX-XXX-XXXX) of the cell containing
// (lat, lon). Coordinates outside the bounding box are rejected.
func (c *Codec) Encode(lat, lon float64) (string, error) {
	code, err := c.EncodeCanonical(lat, lon)
	if err != nil {
		return "", err
	}
	return Format(code), nil
}

// EncodeCanonical is like Encode but returns the bare 10-symbol code.
func (c *Codec) EncodeCanonical(lat, lon float64) (string, error) {
	b := c.bounds
	if math.IsNaN(lat) || lat < b.MinLat || lat > b.MaxLat {
		return "", invalid("latitude", fmt.Sprintf("latitude %f out of range [%g, %g]", lat, b.MinLat, b.MaxLat))
	}
	if math.IsNaN(lon) || lon < b.MinLon || lon > b.MaxLon {
		return "", invalid("longitude", fmt.Sprintf("longitude %f out of range [%g, %g]", lon, b.MinLon, b.MaxLon))
	}

	var out [Length]byte
	box := b.Cell()
	for level := 0; level < Length; level++ {
		latStep := (box.NorthEast.Lat - box.SouthWest.Lat) / Size
		lonStep := (box.NorthEast.Lon - box.SouthWest.Lon) / Size

		row := clamp(Size - 1 - int(math.Floor((lat-box.SouthWest.Lat)/latStep)))
		col := clamp(int(math.Floor((lon - box.SouthWest.Lon) / lonStep)))

		next := narrow(box, row, col)
		// Division can land one band off when the point sits on a boundary;
		// settle on the neighbour that the narrowing arithmetic says holds it.
		switch {
		case lat > next.NorthEast.Lat && row > 0:
			row--
		case lat < next.SouthWest.Lat && row < Size-1:
			row++
		}
		switch {
		case lon > next.NorthEast.Lon && col < Size-1:
			col++
		case lon < next.SouthWest.Lon && col > 0:
			col--
		}

		out[level] = c.grid.Symbol(row, col)
		box = narrow(box, row, col)
	}
	return string(out[:]), nil
}

// Decode returns the center and cell addressed by pin.
func (c *Codec) Decode(pin string) (Decoded, error) {
	code, err := c.Normalize(pin)
	if err != nil {
		return Decoded{}, err
	}
	cell := c.cell(code, Length)
	return Decoded{Pin: Format(code), Center: cell.Center(), Cell: cell}, nil
}

// CellAt returns the cell addressed by the first depth symbols of pin.
// Depth 0 is the whole bounding box and depth 10 equals Decode's cell.
func (c *Codec) CellAt(pin string, depth int) (Cell, error) {
	if depth < 0 || depth > Length {
		return Cell{}, invalid("depth", fmt.Sprintf("depth must be between 0 and %d, got %d", Length, depth))
	}
	code, err := c.Normalize(pin)
	if err != nil {
		return Cell{}, err
	}
	return c.cell(code, depth), nil
}

func (c *Codec) cell(code string, depth int) Cell {
	box := c.bounds.Cell()
	for i := 0; i < depth; i++ {
		row, col, _ := c.grid.Position(code[i])
		box = narrow(box, row, col)
	}
	return box
}

// narrow selects sub-cell (row, col) of box. Row 0 is the northern band.
// Encode and decode share it so their boxes agree bit for bit.
func narrow(box Cell, row, col int) Cell {
	latStep := (box.NorthEast.Lat - box.SouthWest.Lat) / Size
	lonStep := (box.NorthEast.Lon - box.SouthWest.Lon) / Size

	minLat := box.SouthWest.Lat
	minLon := box.SouthWest.Lon + lonStep*float64(col)
	return Cell{
		SouthWest: Point{Lat: minLat + latStep*float64(Size-1-row), Lon: minLon},
		NorthEast: Point{Lat: minLat + latStep*float64(Size-row), Lon: minLon + lonStep},
	}
}

func clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > Size-1 {
		return Size - 1
	}
	return i
}

// Format inserts the display hyphens into a bare 10-symbol code. Inputs of any
// other length are returned unchanged.
func Format(code string) string {
	if len(code) != Length {
		return code
	}
	return code[:3] + string(Separator) + code[3:6] + string(Separator) + code[6:]
}
