package domain

import (
	"errors"
	"fmt"
)

// MinStateFields is the number of leading positions every state array must carry.
const MinStateFields = 13

// MaxStateFields is the number of positions the decoder knows about. Longer
// arrays decode; the extra trailing elements are ignored.
const MaxStateFields = 17

var errMissingValue = errors.New("value is required")

// stateField binds one array position to a StateRecord field.
type stateField struct {
	name     string
	index    int
	required bool
	set      func(r *StateRecord, v any) error
}

// stateFields is the positional contract for /states/all arrays. Order
// matters; see the package documentation.
var stateFields = []stateField{
	{name: "icao24", index: 0, required: true, set: func(r *StateRecord, v any) error {
		s, err := optString(v)
		if err != nil {
			return err
		}
		if s == nil || *s == "" {
			return errMissingValue
		}
		r.ICAO24 = *s
		return nil
	}},
	{name: "callsign", index: 1, required: true, set: func(r *StateRecord, v any) error {
		s, err := optString(v)
		if s != nil {
			r.Callsign = *s
		}
		return err
	}},
	{name: "origin_country", index: 2, required: true, set: func(r *StateRecord, v any) error {
		s, err := optString(v)
		if s != nil {
			r.OriginCountry = *s
		}
		return err
	}},
	{name: "time_position", index: 3, required: true, set: func(r *StateRecord, v any) (err error) {
		r.TimePosition, err = optInt64(v)
		return err
	}},
	{name: "last_contact", index: 4, required: true, set: func(r *StateRecord, v any) (err error) {
		r.LastContact, err = optInt64(v)
		return err
	}},
	{name: "longitude", index: 5, required: true, set: func(r *StateRecord, v any) (err error) {
		r.Longitude, err = optFloat(v)
		return err
	}},
	{name: "latitude", index: 6, required: true, set: func(r *StateRecord, v any) (err error) {
		r.Latitude, err = optFloat(v)
		return err
	}},
	{name: "geo_altitude", index: 7, required: true, set: func(r *StateRecord, v any) (err error) {
		r.GeoAltitude, err = optFloat(v)
		return err
	}},
	{name: "on_ground", index: 8, required: true, set: func(r *StateRecord, v any) error {
		b, err := optBool(v)
		if b != nil {
			r.OnGround = *b
		}
		return err
	}},
	{name: "velocity", index: 9, required: true, set: func(r *StateRecord, v any) (err error) {
		r.Velocity, err = optFloat(v)
		return err
	}},
	{name: "true_track", index: 10, required: true, set: func(r *StateRecord, v any) (err error) {
		r.TrueTrack, err = optFloat(v)
		return err
	}},
	{name: "vertical_rate", index: 11, required: true, set: func(r *StateRecord, v any) (err error) {
		r.VerticalRate, err = optFloat(v)
		return err
	}},
	{name: "sensors", index: 12, required: true, set: func(r *StateRecord, v any) (err error) {
		r.Sensors, err = optIntSlice(v)
		return err
	}},
	{name: "baro_altitude", index: 13, set: func(r *StateRecord, v any) (err error) {
		r.BaroAltitude, err = optFloat(v)
		return err
	}},
	{name: "squawk", index: 14, set: func(r *StateRecord, v any) (err error) {
		r.Squawk, err = optString(v)
		return err
	}},
	{name: "spi", index: 15, set: func(r *StateRecord, v any) (err error) {
		r.SPI, err = optBool(v)
		return err
	}},
	{name: "position_source", index: 16, set: func(r *StateRecord, v any) error {
		n, err := optInt64(v)
		if n != nil {
			ps := int(*n)
			r.PositionSource = &ps
		}
		return err
	}},
}

// DecodeStateRecord maps one positional state array onto a StateRecord.
// Arrays shorter than MinStateFields fail with ErrMalformedRecord; optional
// positions past the end of the array are left absent.
func DecodeStateRecord(raw []any) (StateRecord, error) {
	if len(raw) < MinStateFields {
		return StateRecord{}, fmt.Errorf("%w: got %d fields, need at least %d", ErrMalformedRecord, len(raw), MinStateFields)
	}

	var rec StateRecord
	for _, f := range stateFields {
		if f.index >= len(raw) {
			if f.required {
				return StateRecord{}, fmt.Errorf("%w: missing field %s (index %d)", ErrMalformedRecord, f.name, f.index)
			}
			continue
		}
		if err := f.set(&rec, raw[f.index]); err != nil {
			return StateRecord{}, fmt.Errorf("%w: field %s (index %d): %v", ErrMalformedRecord, f.name, f.index, err)
		}
	}
	return rec, nil
}

func optString(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &t, nil
	default:
		return nil, fmt.Errorf("want string, got %T", v)
	}
}

func optFloat(v any) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &t, nil
	case int:
		f := float64(t)
		return &f, nil
	case int64:
		f := float64(t)
		return &f, nil
	default:
		return nil, fmt.Errorf("want number, got %T", v)
	}
}

func optInt64(v any) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		n := int64(t)
		return &n, nil
	case int:
		n := int64(t)
		return &n, nil
	case int64:
		return &t, nil
	default:
		return nil, fmt.Errorf("want integer, got %T", v)
	}
}

func optBool(v any) (*bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &t, nil
	default:
		return nil, fmt.Errorf("want bool, got %T", v)
	}
}

func optIntSlice(v any) ([]int, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []int:
		return t, nil
	case []any:
		out := make([]int, 0, len(t))
		for _, e := range t {
			n, err := optInt64(e)
			if err != nil {
				return nil, err
			}
			if n == nil {
				return nil, errMissingValue
			}
			out = append(out, int(*n))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want array, got %T", v)
	}
}
