package models

// BaroData holds one barometer sample.
type BaroData struct {
	TimestampNs int64   `json:"timestamp_ns"`
	Pressure    float64 `json:"pressure"`    // Pa
	Temperature float64 `json:"temperature"` // °C
	Altitude    float64 `json:"altitude"`    // metres, relative to the session reference
	Saturated   bool    `json:"saturated"`
}

func (BaroData) CSVHeader() []string {
	return []string{
		"timestamp_ns", "pressure", "temperature", "altitude", "saturated",
	}
}

func (b *BaroData) CSVRow() []string {
	return []string{
		itoa64(b.TimestampNs),
		ftoa(b.Pressure, 2),
		ftoa(b.Temperature, 2),
		ftoa(b.Altitude, 3),
		btoa(b.Saturated),
	}
}
