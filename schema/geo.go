package schema

import (
	"fmt"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// GeoBounds is a latitude/longitude rectangle.
type GeoBounds struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// NewGeoBounds returns validated bounds.
func NewGeoBounds(minLat, maxLat, minLon, maxLon float64) (GeoBounds, error) {
	g := GeoBounds{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
	if err := g.Validate(); err != nil {
		return GeoBounds{}, err
	}
	return g, nil
}

// MustGeoBounds is NewGeoBounds that panics on invalid bounds.
func MustGeoBounds(minLat, maxLat, minLon, maxLon float64) GeoBounds {
	g, err := NewGeoBounds(minLat, maxLat, minLon, maxLon)
	if err != nil {
		panic(err)
	}
	return g
}

// Point returns zero-area bounds at a coordinate.
func Point(lat, lon float64) GeoBounds {
	return GeoBounds{MinLat: lat, MaxLat: lat, MinLon: lon, MaxLon: lon}
}

func (g GeoBounds) Validate() error {
	if g.MinLat > g.MaxLat {
		return glerr.New(glerr.CodeSchemaGeoInvalid,
			fmt.Sprintf("minLat (%g) must not be greater than maxLat (%g)", g.MinLat, g.MaxLat))
	}
	if g.MinLon > g.MaxLon {
		return glerr.New(glerr.CodeSchemaGeoInvalid,
			fmt.Sprintf("minLon (%g) must not be greater than maxLon (%g)", g.MinLon, g.MaxLon))
	}
	return nil
}

// Inside reports whether g lies within other, boundaries included.
func (g GeoBounds) Inside(other GeoBounds) bool {
	return g.MinLat >= other.MinLat && g.MaxLat <= other.MaxLat &&
		g.MinLon >= other.MinLon && g.MaxLon <= other.MaxLon
}

// Overlaps reports whether g and other share at least one point.
func (g GeoBounds) Overlaps(other GeoBounds) bool {
	return g.MinLat <= other.MaxLat && g.MaxLat >= other.MinLat &&
		g.MinLon <= other.MaxLon && g.MaxLon >= other.MinLon
}

func (g GeoBounds) String() string {
	return fmt.Sprintf("[%g..%g, %g..%g]", g.MinLat, g.MaxLat, g.MinLon, g.MaxLon)
}
