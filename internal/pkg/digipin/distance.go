package digipin

import (
	"fmt"

	"github.com/samirrijal/digipin/internal/pkg/geospatial"
)

// Summary is a distance between two DIGIPIN centers.
type Summary struct {
	Meters     float64
	Kilometers float64
	Formatted  string // kilometers with two decimals, e.g. "1149.16 km"
}

// Match is the outcome of a nearest-pin search.
type Match struct {
	Index  int    // position in the candidate list
	Pin    string // the candidate as supplied
	Meters float64
}

// Distance returns the haversine distance in meters between the centers of a and b.
func (c *Codec) Distance(a, b string) (float64, error) {
	from, err := c.Decode(a)
	if err != nil {
		return 0, err
	}
	to, err := c.Decode(b)
	if err != nil {
		return 0, err
	}
	return between(from.Center, to.Center), nil
}

// Summarize is Distance with the kilometer and display forms filled in.
func (c *Codec) Summarize(a, b string) (Summary, error) {
	m, err := c.Distance(a, b)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Meters:     m,
		Kilometers: m / 1000,
		Formatted:  fmt.Sprintf("%.2f km", m/1000),
	}, nil
}

// NearestMatch returns the candidate whose center is closest to ref. Ties go
// to the earliest candidate. Every pin is validated before a result is returned.
func (c *Codec) NearestMatch(ref string, candidates []string) (Match, error) {
	if len(candidates) == 0 {
		return Match{}, invalid("candidates", "no candidate DIGIPINs supplied")
	}
	origin, err := c.Decode(ref)
	if err != nil {
		return Match{}, err
	}

	best := Match{Index: -1}
	for i, pin := range candidates {
		d, err := c.Decode(pin)
		if err != nil {
			return Match{}, err
		}
		m := between(origin.Center, d.Center)
		if best.Index < 0 || m < best.Meters {
			best = Match{Index: i, Pin: pin, Meters: m}
		}
	}
	return best, nil
}

// Nearest returns the candidate closest to ref, exactly as it was supplied.
func (c *Codec) Nearest(ref string, candidates []string) (string, error) {
	m, err := c.NearestMatch(ref, candidates)
	if err != nil {
		return "", err
	}
	return m.Pin, nil
}

func between(a, b Point) float64 {
	return geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}
