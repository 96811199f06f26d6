package presentation

import (
	"cmp"
	"slices"

	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
)

// Panel titles.
const (
	TitleAltitude       = "Altitude Distribution"
	TitleSpeed          = "Speed Distribution"
	TitleCountries      = "Aircraft by Country"
	TitlePositionSource = "Position Source"
)

// DefaultHistogramBins is used when a non-positive bin count is requested.
const DefaultHistogramBins = 20

// TopCountriesLimit caps the country bar chart.
const TopCountriesLimit = 10

// Bin is one half-open histogram interval [Lower, Upper). The last bin of a
// histogram also includes its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is an equal-width binning of a sample.
type Histogram struct {
	Title string `json:"title"`
	Unit  string `json:"unit"`
	Bins  []Bin  `json:"bins"`
}

// Empty reports whether the histogram has no samples.
func (h Histogram) Empty() bool { return len(h.Bins) == 0 }

// Count is a labelled frequency.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Dashboard holds the four chart datasets.
type Dashboard struct {
	Altitude        Histogram `json:"altitude"`
	Speed           Histogram `json:"speed"`
	TopCountries    []Count   `json:"top_countries"`
	PositionSources []Count   `json:"position_sources"`
}

// Empty reports whether every panel is empty.
func (d Dashboard) Empty() bool {
	return d.Altitude.Empty() && d.Speed.Empty() && len(d.TopCountries) == 0 && len(d.PositionSources) == 0
}

// BuildDashboard derives all four datasets from records.
func BuildDashboard(records []domain.StateRecord, bins int) Dashboard {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	var altitudes, speeds []float64
	for _, r := range records {
		if r.GeoAltitude != nil {
			altitudes = append(altitudes, *r.GeoAltitude)
		}
		if r.Velocity != nil {
			speeds = append(speeds, *r.Velocity)
		}
	}

	return Dashboard{
		Altitude:        Histogram{Title: TitleAltitude, Unit: "m", Bins: histogram(altitudes, bins)},
		Speed:           Histogram{Title: TitleSpeed, Unit: "m/s", Bins: histogram(speeds, bins)},
		TopCountries:    topCountries(records, TopCountriesLimit),
		PositionSources: positionSources(records),
	}
}

func histogram(values []float64, n int) []Bin {
	if len(values) == 0 {
		return nil
	}
	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	bins[n-1].Upper = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

// topCountries counts non-empty origin countries, highest first. Ties are
// broken alphabetically so the output is stable.
func topCountries(records []domain.StateRecord, limit int) []Count {
	freq := make(map[string]int)
	for _, r := range records {
		if r.OriginCountry != "" {
			freq[r.OriginCountry]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	out := make([]Count, 0, len(freq))
	for country, n := range freq {
		out = append(out, Count{Label: country, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// positionSourceLabels follows the provider's documented position_source enum.
var positionSourceLabels = []string{"ADS-B", "ASTERIX", "MLAT", "FLARM"}

const unknownSource = "Unknown"

// positionSources breaks records down by position_source. Absent or
// undocumented values count as Unknown. Zero-count categories are omitted.
func positionSources(records []domain.StateRecord) []Count {
	if len(records) == 0 {
		return nil
	}
	counts := make([]int, len(positionSourceLabels)+1)
	for _, r := range records {
		i := len(positionSourceLabels)
		if ps := r.PositionSource; ps != nil && *ps >= 0 && *ps < len(positionSourceLabels) {
			i = *ps
		}
		counts[i]++
	}

	var out []Count
	for i, n := range counts {
		if n == 0 {
			continue
		}
		label := unknownSource
		if i < len(positionSourceLabels) {
			label = positionSourceLabels[i]
		}
		out = append(out, Count{Label: label, Count: n})
	}
	return out
}
