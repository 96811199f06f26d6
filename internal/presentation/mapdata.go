package presentation

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
)

// NotAvailable stands in for any absent popup value.
const NotAvailable = "N/A"

// HeatPoint is one weighted heat-map sample.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// Marker is one aircraft icon on the map.
type Marker struct {
	ICAO24   string        `json:"icao24"`
	Lat      float64       `json:"lat"`
	Lon      float64       `json:"lon"`
	Rotation float64       `json:"rotation"`
	Popup    template.HTML `json:"popup"`
}

// MapLayer holds everything the browser needs to draw the map overlay.
type MapLayer struct {
	Heat    []HeatPoint `json:"heat"`
	Markers []Marker    `json:"markers"`
}

// Len is the number of plotted aircraft.
func (m MapLayer) Len() int { return len(m.Markers) }

var popupTmpl = template.Must(template.New("popup").Parse(
	`<div class="flight-popup">` +
		`<h4>Flight Information</h4>` +
		`<p><b>Callsign:</b> {{.Callsign}}</p>` +
		`<p><b>Altitude:</b> {{.Altitude}}</p>` +
		`<p><b>Velocity:</b> {{.Velocity}}</p>` +
		`<p><b>Origin:</b> {{.Origin}}</p>` +
		`</div>`))

type popupData struct {
	Callsign string
	Altitude string
	Velocity string
	Origin   string
}

// BuildMapLayer emits a heat point and a marker for every record that has
// both latitude and longitude. Records without a position are skipped.
func BuildMapLayer(records []domain.StateRecord) (MapLayer, error) {
	layer := MapLayer{
		Heat:    make([]HeatPoint, 0, len(records)),
		Markers: make([]Marker, 0, len(records)),
	}
	var buf bytes.Buffer
	for _, r := range records {
		if !r.HasPosition() {
			continue
		}
		lat, lon := *r.Latitude, *r.Longitude

		buf.Reset()
		if err := popupTmpl.Execute(&buf, newPopupData(r)); err != nil {
			return MapLayer{}, fmt.Errorf("render popup for %s: %w", r.ICAO24, err)
		}

		layer.Heat = append(layer.Heat, HeatPoint{Lat: lat, Lon: lon, Weight: 1})
		layer.Markers = append(layer.Markers, Marker{
			ICAO24:   r.ICAO24,
			Lat:      lat,
			Lon:      lon,
			Rotation: valueOr(r.TrueTrack, 0),
			Popup:    template.HTML(buf.String()), //nolint:gosec // escaped by popupTmpl
		})
	}
	return layer, nil
}

func newPopupData(r domain.StateRecord) popupData {
	d := popupData{
		Callsign: r.TrimmedCallsign(),
		Altitude: withUnit(r.GeoAltitude, "m"),
		Velocity: withUnit(r.Velocity, "m/s"),
		Origin:   r.OriginCountry,
	}
	if d.Callsign == "" {
		d.Callsign = NotAvailable
	}
	if d.Origin == "" {
		d.Origin = NotAvailable
	}
	return d
}

func withUnit(v *float64, unit string) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
