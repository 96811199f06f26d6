// Package domain models OpenSky Network aircraft state vectors.
//
// # Data Source
//
// State vectors come from the OpenSky Network REST API, endpoint
// GET /states/all (https://openskynetwork.github.io/opensky-api/rest.html).
// One call returns a point-in-time snapshot:
//
//	{"time": 1717000000, "states": [[...], [...]]}
//
// "states" is null or absent when nothing matches the query; that decodes to
// an empty record list, not an error.
//
// # Positional Encoding
//
// Each state is a JSON array, not an object. Meaning is fixed by index:
//
//	 0 icao24          string   transponder address, hex, always present
//	 1 callsign        string   8 chars, space padded, may be null
//	 2 origin_country  string
//	 3 time_position   int      epoch seconds of the last position update
//	 4 last_contact    int      epoch seconds of the last message
//	 5 longitude       float    WGS-84 degrees
//	 6 latitude        float    WGS-84 degrees
//	 7 geo_altitude    float    meters
//	 8 on_ground       bool
//	 9 velocity        float    m/s over ground
//	10 true_track      float    degrees clockwise from north
//	11 vertical_rate   float    m/s
//	12 sensors         []int    receiver ids, usually null
//	13 baro_altitude   float    meters
//	14 squawk          string
//	15 spi             bool     special purpose indicator
//	16 position_source int      0 ADS-B, 1 ASTERIX, 2 MLAT, 3 FLARM
//
// Indices 0-12 must be present (values may be null). Indices 13-16 arrived
// later in the API's life and are treated as optional: a 13-element array is
// valid and leaves the extended fields absent. The whole contract lives in
// the stateFields table consulted by [DecodeStateRecord]; reordering the
// table is a breaking change.
//
// The upstream documentation labels index 7 barometric and index 13
// geometric altitude. This package keeps the naming the tracker has always
// used (7 = geo_altitude, 13 = baro_altitude) so downstream statistics stay
// comparable with earlier deployments.
//
// # Regions
//
// Named presets map to fixed bounding boxes sent as lamin/lamax/lomin/lomax.
// "world" has no box and issues an unfiltered global query.
package domain
