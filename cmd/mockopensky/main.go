// Command mockopensky serves a fake OpenSky /states/all endpoint for offline
// development. The fleet is generated once from a seed and drifts along each
// aircraft's track as time passes.
//
// Usage:
//
//	go run ./cmd/mockopensky -addr :8081 -aircraft 500
//	OPENSKY_BASE_URL=http://localhost:8081/api go run ./cmd/tracker
package main

import (
	"flag"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

var countries = []string{
	"United States", "Germany", "United Kingdom", "France", "China",
	"Switzerland", "Ireland", "Spain", "Japan", "India", "Canada", "Brazil",
}

var callsignPrefixes = []string{"AAL", "DLH", "BAW", "AFR", "CCA", "SWR", "RYR", "IBE", "JAL", "AIC", "ACA", "TAM"}

// aircraft is one simulated transponder at the fleet's epoch.
type aircraft struct {
	icao24   string
	callsign string
	country  string
	lat      float64
	lon      float64
	altitude *float64
	velocity float64
	track    float64
	onGround bool
	source   int
	noFix    bool
}

type fleet struct {
	epoch    time.Time
	aircraft []aircraft
}

func newFleet(n int, seed uint64, epoch time.Time) *fleet {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f := &fleet{epoch: epoch, aircraft: make([]aircraft, n)}
	for i := range f.aircraft {
		a := aircraft{
			icao24:   strconv.FormatUint(0x100000+rng.Uint64N(0xeffff), 16),
			country:  countries[rng.IntN(len(countries))],
			lat:      rng.Float64()*140 - 70,
			lon:      rng.Float64()*360 - 180,
			velocity: 60 + rng.Float64()*200,
			track:    rng.Float64() * 360,
			source:   rng.IntN(4),
			onGround: rng.IntN(20) == 0,
			noFix:    rng.IntN(25) == 0,
		}
		if rng.IntN(10) > 0 {
			a.callsign = callsignPrefixes[rng.IntN(len(callsignPrefixes))] + strconv.Itoa(100+rng.IntN(9000))
		}
		if !a.onGround && rng.IntN(15) > 0 {
			alt := 300 + rng.Float64()*12000
			a.altitude = &alt
		}
		if a.onGround {
			a.velocity = rng.Float64() * 15
		}
		f.aircraft[i] = a
	}
	return f
}

// loopPeriod bounds how far any aircraft drifts from its starting point.
const loopPeriod = 2 * time.Hour

// position advances a along its track for the time elapsed since the epoch,
// restarting every loopPeriod.
func (f *fleet) position(a aircraft, now time.Time) (lat, lon float64) {
	elapsed := math.Mod(now.Sub(f.epoch).Seconds(), loopPeriod.Seconds())
	if elapsed < 0 {
		elapsed += loopPeriod.Seconds()
	}
	dist := a.velocity * elapsed
	rad := a.track * math.Pi / 180
	lat = a.lat + dist*math.Cos(rad)/111_320
	lon = a.lon + dist*math.Sin(rad)/(111_320*math.Max(math.Cos(a.lat*math.Pi/180), 0.1))

	lat = math.Max(-85, math.Min(85, lat))
	lon = math.Mod(lon+540, 360) - 180
	return lat, lon
}

// states returns OpenSky-shaped rows for the aircraft matching q.
func (f *fleet) states(q domain.Query, now time.Time) [][]any {
	rows := make([][]any, 0, len(f.aircraft))
	ts := now.Unix()
	for _, a := range f.aircraft {
		if q.ICAO24 != "" && q.ICAO24 != a.icao24 {
			continue
		}
		lat, lon := f.position(a, now)
		if q.BBox != nil && (a.noFix || !q.BBox.Contains(lat, lon)) {
			continue
		}

		var latV, lonV, timePos any
		if !a.noFix {
			latV, lonV, timePos = lat, lon, ts
		}
		var baro, geo any
		if a.altitude != nil {
			baro, geo = *a.altitude-25, *a.altitude
		}
		rows = append(rows, []any{
			a.icao24,
			padCallsign(a.callsign),
			a.country,
			timePos,
			ts,
			lonV,
			latV,
			baro,
			a.onGround,
			a.velocity,
			a.track,
			0.0,
			nil,
			geo,
			nil,
			false,
			a.source,
		})
	}
	return rows
}

func padCallsign(s string) string {
	if s == "" {
		return ""
	}
	return s + strings.Repeat(" ", max(8-len(s), 0))
}

type server struct {
	fleet  *fleet
	logger *slog.Logger
	now    func() time.Time
}

func (s *server) handleStates(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := s.now()
	if q.Time > 0 {
		now = time.Unix(q.Time, 0)
	}
	rows := s.fleet.states(q, now)
	s.logger.Debug("states served", "count", len(rows), "icao24", q.ICAO24)

	var states any = rows
	if len(rows) == 0 {
		states = nil
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"time": now.Unix(), "states": states}) //nolint:errcheck // best-effort response
}

func parseQuery(r *http.Request) (domain.Query, error) {
	v := r.URL.Query()
	q := domain.Query{ICAO24: strings.ToLower(v.Get("icao24"))}

	if t := v.Get("time"); t != "" {
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return q, err
		}
		q.Time = n
	}

	if v.Get("lamin") == "" {
		return q, nil
	}
	var box domain.BoundingBox
	for key, dst := range map[string]*float64{
		"lamin": &box.LatMin, "lamax": &box.LatMax,
		"lomin": &box.LonMin, "lomax": &box.LonMax,
	} {
		n, err := strconv.ParseFloat(v.Get(key), 64)
		if err != nil {
			return q, err
		}
		*dst = n
	}
	if err := box.Validate(); err != nil {
		return q, err
	}
	q.BBox = &box
	return q, nil
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/states/all", s.handleStates)
	return r
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	n := flag.Int("aircraft", 500, "number of simulated aircraft")
	seed := flag.Uint64("seed", 1, "fleet generator seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s := &server{
		fleet:  newFleet(*n, *seed, time.Now()),
		logger: logger,
		now:    time.Now,
	}

	logger.Info("mock opensky listening", "addr", *addr, "aircraft", *n)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(s),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
