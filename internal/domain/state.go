package domain

import "strings"

// StateRecord is one aircraft observation decoded from a positional state array.
// Pointer fields are nil when the provider sent null or the array was too
// short to carry them.
type StateRecord struct {
	ICAO24        string `json:"icao24"`
	Callsign      string `json:"callsign"`
	OriginCountry string `json:"origin_country"`

	TimePosition *int64 `json:"time_position"`
	LastContact  *int64 `json:"last_contact"`

	Longitude    *float64 `json:"longitude"`
	Latitude     *float64 `json:"latitude"`
	GeoAltitude  *float64 `json:"geo_altitude"`
	OnGround     bool     `json:"on_ground"`
	Velocity     *float64 `json:"velocity"`
	TrueTrack    *float64 `json:"true_track"`
	VerticalRate *float64 `json:"vertical_rate"`

	// Extended fields.
	Sensors        []int    `json:"sensors"`
	BaroAltitude   *float64 `json:"baro_altitude"`
	Squawk         *string  `json:"squawk"`
	SPI            *bool    `json:"spi"`
	PositionSource *int     `json:"position_source"`
}

// HasPosition reports whether both latitude and longitude are known.
func (r StateRecord) HasPosition() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// TrimmedCallsign returns the callsign without the provider's space padding.
func (r StateRecord) TrimmedCallsign() string {
	return strings.TrimSpace(r.Callsign)
}

// Snapshot is the full result of one provider call. It is built fresh per
// fetch and never mutated afterwards.
type Snapshot struct {
	Time   int64         `json:"time"`
	States []StateRecord `json:"states"`
}

// NewSnapshot decodes every raw state array in order. A single malformed
// array fails the whole snapshot.
func NewSnapshot(time int64, raw [][]any) (*Snapshot, error) {
	states := make([]StateRecord, 0, len(raw))
	for i, arr := range raw {
		rec, err := DecodeStateRecord(arr)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		states = append(states, rec)
	}
	return &Snapshot{Time: time, States: states}, nil
}

// Len returns the number of records, treating a nil snapshot as empty.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.States)
}
