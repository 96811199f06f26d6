package opensky

import "github.com/but-pixelated/AircraftTracker-Live/internal/domain"

// statesResponse is the /states/all body. States is null when nothing matched.
type statesResponse struct {
	Time   int64   `json:"time"`
	States [][]any `json:"states"`
}

func (r statesResponse) snapshot() (*domain.Snapshot, error) {
	return domain.NewSnapshot(r.Time, r.States)
}
