package models

// AltitudeEstimate is the filter output for one alignment window.
// The fusion controller emits one per tick, carrying the raw samples it
// consumed so the recording stage can log them alongside the estimate.
type AltitudeEstimate struct {
	TimestampNs    int64   `json:"timestamp_ns"`
	Altitude       float64 `json:"altitude"` // metres
	Variance       float64 `json:"variance"` // m²
	GainGPS        float64 `json:"gain_gps"`
	GainBaro       float64 `json:"gain_baro"`
	InnovationGPS  float64 `json:"innovation_gps"`
	InnovationBaro float64 `json:"innovation_baro"`
	Sources        string  `json:"sources"` // "gps+baro", "gps", "baro" or "none"
	Rejected       string  `json:"rejected,omitempty"`

	GPS          *GPSData    `json:"gps,omitempty"`
	Position     *Position   `json:"position,omitempty"` // fix relative to the launch site
	BaroAltitude *float64    `json:"baro_altitude,omitempty"` // window vote, nil if no usable sample
	BaroSamples  []*BaroData `json:"-"`
}

func (AltitudeEstimate) CSVHeader() []string {
	return []string{
		"timestamp_ns", "altitude", "variance",
		"gain_gps", "gain_baro", "innovation_gps", "innovation_baro",
		"sources", "rejected",
		"gps_alt", "baro_alt", "baro_samples",
		"north", "east", "range", "bearing_deg",
	}
}

// Position is a GPS fix expressed against the launch site.
type Position struct {
	North   float64 `json:"north"`       // metres
	East    float64 `json:"east"`        // metres
	Range   float64 `json:"range"`       // great-circle metres
	Bearing float64 `json:"bearing_deg"` // degrees from north
}

// CSVRow returns one estimate row, using empty strings for missing samples.
func (e *AltitudeEstimate) CSVRow() []string {
	row := []string{
		itoa64(e.TimestampNs),
		ftoa(e.Altitude, 3),
		ftoa(e.Variance, 6),
		ftoa(e.GainGPS, 6),
		ftoa(e.GainBaro, 6),
		ftoa(e.InnovationGPS, 3),
		ftoa(e.InnovationBaro, 3),
		e.Sources,
		e.Rejected,
	}

	if e.GPS != nil {
		row = append(row, ftoa(e.GPS.Altitude, 3))
	} else {
		row = append(row, "")
	}
	if e.BaroAltitude != nil {
		row = append(row, ftoa(*e.BaroAltitude, 3))
	} else {
		row = append(row, "")
	}
	row = append(row, itoa(len(e.BaroSamples)))

	if e.Position == nil {
		return append(row, "", "", "", "")
	}
	return append(row,
		ftoa(e.Position.North, 2),
		ftoa(e.Position.East, 2),
		ftoa(e.Position.Range, 2),
		ftoa(e.Position.Bearing, 1),
	)
}
