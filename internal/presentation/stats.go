package presentation

import (
	"fmt"
	"strings"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
)

// TimestampLayout is the wall-clock format of the "Last Updated" line.
const TimestampLayout = "2006-01-02 15:04:05"

// Stats summarises one snapshot.
type Stats struct {
	TotalAircraft int       `json:"total_aircraft"`
	Countries     int       `json:"countries"`
	MeanAltitude  float64   `json:"mean_altitude_m"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// BuildStats counts records, distinct non-empty origin countries and the
// mean of the known geometric altitudes. now is converted to local time.
func BuildStats(records []domain.StateRecord, now time.Time) Stats {
	countries := make(map[string]struct{})
	var sum float64
	var n int
	for _, r := range records {
		if r.OriginCountry != "" {
			countries[r.OriginCountry] = struct{}{}
		}
		if r.GeoAltitude != nil {
			sum += *r.GeoAltitude
			n++
		}
	}

	s := Stats{
		TotalAircraft: len(records),
		Countries:     len(countries),
		GeneratedAt:   now.Local(),
	}
	if n > 0 {
		s.MeanAltitude = sum / float64(n)
	}
	return s
}

// Text renders the statistics panel.
func (s Stats) Text() string {
	var b strings.Builder
	b.WriteString("Real-time Statistics:\n")
	fmt.Fprintf(&b, "• Total Aircraft: %d\n", s.TotalAircraft)
	fmt.Fprintf(&b, "• Countries: %d\n", s.Countries)
	fmt.Fprintf(&b, "• Average Altitude: %.0fm\n", s.MeanAltitude)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Last Updated: %s", s.GeneratedAt.Format(TimestampLayout))
	return b.String()
}
