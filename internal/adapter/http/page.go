package http

import (
	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/refresh"
)

const (
	worldZoom  = 2
	regionZoom = 4
)

// pageData feeds templates/index.html.tmpl.
type pageData struct {
	Regions []domain.Region
	Region  string
	ICAO24  string
	Center  [2]float64
	Zoom    int
	View    *refresh.View
	Notice  string
}

func newPageData(req refresh.Request) pageData {
	d := pageData{
		Regions: domain.Regions(),
		Region:  req.Region.Name,
		ICAO24:  req.ICAO24,
		Center:  [2]float64{20, 0},
		Zoom:    worldZoom,
	}
	if b := req.Region.BBox; b != nil {
		d.Center = [2]float64{(b.LatMin + b.LatMax) / 2, (b.LonMin + b.LonMax) / 2}
		d.Zoom = regionZoom
	}
	return d
}
