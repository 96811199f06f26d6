package domain

import (
	"errors"
	"fmt"
)

// DefaultRegion is used when no region is requested.
const DefaultRegion = "world"

// BoundingBox is a rectangular WGS-84 filter.
type BoundingBox struct {
	LatMin float64 `json:"lamin"`
	LatMax float64 `json:"lamax"`
	LonMin float64 `json:"lomin"`
	LonMax float64 `json:"lomax"`
}

// Validate checks ranges and ordering of the box edges.
func (b BoundingBox) Validate() error {
	switch {
	case b.LatMin < -90 || b.LatMax > 90:
		return errors.New("latitude must be within [-90, 90]")
	case b.LonMin < -180 || b.LonMax > 180:
		return errors.New("longitude must be within [-180, 180]")
	case b.LatMin > b.LatMax:
		return fmt.Errorf("lamin %.4f exceeds lamax %.4f", b.LatMin, b.LatMax)
	case b.LonMin > b.LonMax:
		return fmt.Errorf("lomin %.4f exceeds lomax %.4f", b.LonMin, b.LonMax)
	}
	return nil
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// Region is a named query preset. BBox is nil for a global query.
type Region struct {
	Name  string       `json:"name"`
	Label string       `json:"label"`
	BBox  *BoundingBox `json:"bbox"`
}

var regions = []Region{
	{Name: "world", Label: "World"},
	{Name: "europe", Label: "Europe", BBox: &BoundingBox{LatMin: 35.0, LatMax: 60.0, LonMin: -15.0, LonMax: 40.0}},
	{Name: "north_america", Label: "North America", BBox: &BoundingBox{LatMin: 25.0, LatMax: 50.0, LonMin: -130.0, LonMax: -60.0}},
	{Name: "asia", Label: "Asia", BBox: &BoundingBox{LatMin: 10.0, LatMax: 50.0, LonMin: 60.0, LonMax: 150.0}},
}

// Regions returns the presets in display order. Callers get copies.
func Regions() []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = r.clone()
	}
	return out
}

// RegionNames lists preset names in display order.
func RegionNames() []string {
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
	}
	return names
}

// LookupRegion finds a preset by name.
func LookupRegion(name string) (Region, bool) {
	for _, r := range regions {
		if r.Name == name {
			return r.clone(), true
		}
	}
	return Region{}, false
}

func (r Region) clone() Region {
	if r.BBox != nil {
		b := *r.BBox
		r.BBox = &b
	}
	return r
}

// Query is one provider request. Zero Time means "now".
type Query struct {
	Time   int64
	ICAO24 string
	BBox   *BoundingBox
}

// QueryFor builds the query for a region with an optional transponder filter.
func QueryFor(region Region, icao24 string) Query {
	return Query{ICAO24: icao24, BBox: region.BBox}
}
