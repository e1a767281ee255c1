package digipin

// Point is a WGS 84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Cell is the rectangle addressed by a code prefix.
type Cell struct {
	SouthWest Point
	NorthEast Point
}

// Center returns the midpoint of the cell.
func (c Cell) Center() Point {
	return Point{
		Lat: (c.SouthWest.Lat + c.NorthEast.Lat) / 2,
		Lon: (c.SouthWest.Lon + c.NorthEast.Lon) / 2,
	}
}

// Contains reports whether p lies inside the cell, edges included.
func (c Cell) Contains(p Point) bool {
	return p.Lat >= c.SouthWest.Lat && p.Lat <= c.NorthEast.Lat &&
		p.Lon >= c.SouthWest.Lon && p.Lon <= c.NorthEast.Lon
}

// ContainsCell reports whether o lies entirely inside c.
func (c Cell) ContainsCell(o Cell) bool {
	return c.Contains(o.SouthWest) && c.Contains(o.NorthEast)
}

// Decoded is the result of decoding a DIGIPIN.
type Decoded struct {
	Pin    string // canonical display form, XXX-XXX-XXXX
	Center Point
	Cell   Cell
}
