package models

// GPSData holds one GPS fix. Only Altitude feeds the altitude filter; the
// horizontal fields are carried through to the recording.
type GPSData struct {
	TimestampNs int64   `json:"timestamp_ns"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Altitude    float64 `json:"altitude"`    // metres, relative to the session reference
	VDOP        float64 `json:"vdop"`        // vertical dilution of precision
	FixQuality  int     `json:"fix_quality"` // 0=invalid, 1=GPS, 2=DGPS, 4=RTK …
	NumSats     int     `json:"num_sats"`
}

// Valid reports whether the fix may be fused.
func (g *GPSData) Valid() bool {
	return g != nil && g.FixQuality > 0
}

// HasPosition reports whether the fix carries a horizontal position.
// Replayed flight logs have altitude only.
func (g *GPSData) HasPosition() bool {
	return g.Latitude != 0 || g.Longitude != 0
}

func (GPSData) CSVHeader() []string {
	return []string{
		"timestamp_ns", "latitude", "longitude", "altitude",
		"vdop", "fix_quality", "num_sats",
	}
}

func (g *GPSData) CSVRow() []string {
	return []string{
		itoa64(g.TimestampNs),
		ftoa(g.Latitude, 9),
		ftoa(g.Longitude, 9),
		ftoa(g.Altitude, 3),
		ftoa(g.VDOP, 2),
		itoa(g.FixQuality),
		itoa(g.NumSats),
	}
}
