package views

import (
	"github.com/pkg/errors"
)

// CSVSchema defines the column layout for each recorded stream.
// This file serves as the single source of truth for column ordering.

// SensorType identifies a recorded stream for schema lookups.
type SensorType int

const (
	SensorGPS SensorType = iota
	SensorBaro
	SensorEstimate
)

var sensorNames = map[SensorType]string{
	SensorGPS:      "gps",
	SensorBaro:     "baro",
	SensorEstimate: "estimate",
}

func (s SensorType) String() string {
	if n, ok := sensorNames[s]; ok {
		return n
	}
	return "unknown"
}

// SchemaColumns returns the canonical column list for a stream.
// The header actually written comes from the model's CSVHeader(); the
// recording controller checks it against this list with ValidateHeader.
var SchemaColumns = map[SensorType][]string{
	SensorGPS: {
		"timestamp_ns", "latitude", "longitude", "altitude",
		"vdop", "fix_quality", "num_sats",
	},
	SensorBaro: {
		"timestamp_ns", "pressure", "temperature", "altitude", "saturated",
	},
	SensorEstimate: {
		"timestamp_ns", "altitude", "variance",
		"gain_gps", "gain_baro", "innovation_gps", "innovation_baro",
		"sources", "rejected",
		"gps_alt", "baro_alt", "baro_samples",
		"north", "east", "range", "bearing_deg",
	},
}

// ValidateHeader reports whether header matches the canonical columns for s.
func ValidateHeader(s SensorType, header []string) error {
	want, ok := SchemaColumns[s]
	if !ok {
		return errors.Errorf("schema: no columns for %s", s)
	}
	if len(header) != len(want) {
		return errors.Errorf("schema %s: %d columns, want %d", s, len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return errors.Errorf("schema %s: column %d is %q, want %q", s, i, header[i], want[i])
		}
	}
	return nil
}
