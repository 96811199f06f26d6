package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testICAO = "4b1814"

// fullState returns a 17-element array shaped like a decoded /states/all row.
func fullState() []any {
	return []any{
		testICAO, "SWR123  ", "Switzerland",
		float64(1717000000), float64(1717000005),
		8.55, 47.45, 10972.8,
		false, 230.5, 87.2, -1.3,
		[]any{float64(101), float64(202)},
		11003.2, "1000", true, float64(2),
	}
}

func TestDecodeStateRecord_FullArray(t *testing.T) {
	rec, err := DecodeStateRecord(fullState())
	require.NoError(t, err)

	assert.Equal(t, testICAO, rec.ICAO24)
	assert.Equal(t, "SWR123  ", rec.Callsign)
	assert.Equal(t, "SWR123", rec.TrimmedCallsign())
	assert.Equal(t, "Switzerland", rec.OriginCountry)
	require.NotNil(t, rec.TimePosition)
	assert.Equal(t, int64(1717000000), *rec.TimePosition)
	require.NotNil(t, rec.LastContact)
	assert.Equal(t, int64(1717000005), *rec.LastContact)
	require.NotNil(t, rec.Longitude)
	assert.Equal(t, 8.55, *rec.Longitude)
	require.NotNil(t, rec.Latitude)
	assert.Equal(t, 47.45, *rec.Latitude)
	require.NotNil(t, rec.GeoAltitude)
	assert.Equal(t, 10972.8, *rec.GeoAltitude)
	assert.False(t, rec.OnGround)
	require.NotNil(t, rec.Velocity)
	assert.Equal(t, 230.5, *rec.Velocity)
	require.NotNil(t, rec.TrueTrack)
	assert.Equal(t, 87.2, *rec.TrueTrack)
	require.NotNil(t, rec.VerticalRate)
	assert.Equal(t, -1.3, *rec.VerticalRate)
	assert.Equal(t, []int{101, 202}, rec.Sensors)
	require.NotNil(t, rec.BaroAltitude)
	assert.Equal(t, 11003.2, *rec.BaroAltitude)
	require.NotNil(t, rec.Squawk)
	assert.Equal(t, "1000", *rec.Squawk)
	require.NotNil(t, rec.SPI)
	assert.True(t, *rec.SPI)
	require.NotNil(t, rec.PositionSource)
	assert.Equal(t, 2, *rec.PositionSource)
	assert.True(t, rec.HasPosition())
}

func TestDecodeStateRecord_VariableLength(t *testing.T) {
	for n := MinStateFields; n <= MaxStateFields; n++ {
		rec, err := DecodeStateRecord(fullState()[:n])
		require.NoError(t, err, "length %d", n)

		assert.Equal(t, n > 13, rec.BaroAltitude != nil, "baro_altitude at length %d", n)
		assert.Equal(t, n > 14, rec.Squawk != nil, "squawk at length %d", n)
		assert.Equal(t, n > 15, rec.SPI != nil, "spi at length %d", n)
		assert.Equal(t, n > 16, rec.PositionSource != nil, "position_source at length %d", n)
		assert.NotNil(t, rec.Sensors, "sensors is positionally required at length %d", n)
	}
}

func TestDecodeStateRecord_TooShort(t *testing.T) {
	for n := 0; n < MinStateFields; n++ {
		_, err := DecodeStateRecord(fullState()[:n])
		require.Error(t, err, "length %d", n)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	}
}

func TestDecodeStateRecord_ExtraTrailingFieldsIgnored(t *testing.T) {
	raw := append(fullState(), float64(4))
	rec, err := DecodeStateRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, testICAO, rec.ICAO24)
}

func TestDecodeStateRecord_Nulls(t *testing.T) {
	raw := []any{testICAO, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	rec, err := DecodeStateRecord(raw)
	require.NoError(t, err)

	assert.Empty(t, rec.Callsign)
	assert.Empty(t, rec.OriginCountry)
	assert.Nil(t, rec.TimePosition)
	assert.Nil(t, rec.Latitude)
	assert.Nil(t, rec.Longitude)
	assert.Nil(t, rec.GeoAltitude)
	assert.False(t, rec.OnGround)
	assert.Nil(t, rec.Velocity)
	assert.Nil(t, rec.TrueTrack)
	assert.Nil(t, rec.Sensors)
	assert.Nil(t, rec.BaroAltitude)
	assert.Nil(t, rec.Squawk)
	assert.Nil(t, rec.SPI)
	assert.Nil(t, rec.PositionSource)
	assert.False(t, rec.HasPosition())
}

func TestDecodeStateRecord_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		index int
		value any
		field string
	}{
		{name: "missing icao24", index: 0, value: nil, field: "icao24"},
		{name: "empty icao24", index: 0, value: "", field: "icao24"},
		{name: "numeric callsign", index: 1, value: float64(7), field: "callsign"},
		{name: "string latitude", index: 6, value: "47.4", field: "latitude"},
		{name: "string on_ground", index: 8, value: "false", field: "on_ground"},
		{name: "object sensors", index: 12, value: map[string]any{}, field: "sensors"},
		{name: "numeric squawk", index: 14, value: float64(7700), field: "squawk"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := fullState()
			raw[tc.index] = tc.value

			_, err := DecodeStateRecord(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestDecodeStateRecord_AcceptsGoIntegers(t *testing.T) {
	raw := fullState()
	raw[3] = int64(1717000000)
	raw[12] = []int{7}
	raw[16] = 0

	rec, err := DecodeStateRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1717000000), *rec.TimePosition)
	assert.Equal(t, []int{7}, rec.Sensors)
	assert.Equal(t, 0, *rec.PositionSource)
}

func TestStateFieldsTable(t *testing.T) {
	require.Len(t, stateFields, MaxStateFields)
	for i, f := range stateFields {
		assert.Equal(t, i, f.index, "field %s out of order", f.name)
		assert.Equal(t, i < MinStateFields, f.required, "required flag for %s", f.name)
	}
}

func TestNewSnapshot(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		second := fullState()
		second[0] = "a0b1c2"

		snap, err := NewSnapshot(1717000000, [][]any{fullState(), second})
		require.NoError(t, err)
		assert.Equal(t, int64(1717000000), snap.Time)
		require.Equal(t, 2, snap.Len())
		assert.Equal(t, testICAO, snap.States[0].ICAO24)
		assert.Equal(t, "a0b1c2", snap.States[1].ICAO24)
	})

	t.Run("nil states", func(t *testing.T) {
		snap, err := NewSnapshot(42, nil)
		require.NoError(t, err)
		assert.NotNil(t, snap.States)
		assert.Equal(t, 0, snap.Len())
	})

	t.Run("malformed record fails snapshot", func(t *testing.T) {
		_, err := NewSnapshot(42, [][]any{fullState(), {testICAO}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedRecord)

		var recErr *RecordError
		require.True(t, errors.As(err, &recErr))
		assert.Equal(t, 1, recErr.Index)
	})
}

func TestSnapshotLen_Nil(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, 0, snap.Len())
}
