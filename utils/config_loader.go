package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"altitude-fusion/ekf"
)

// ─── Sensor-level configs ───────────────────────────────────────────────

type GPSConfig struct {
	Enabled       bool    `yaml:"enabled"`
	SerialPort    string  `yaml:"serial_port"`
	BaudRate      int     `yaml:"baud_rate"`
	UpdateRateHz  int     `yaml:"update_rate_hz"`
	ChannelBuffer int     `yaml:"channel_buffer"`
	NoiseVariance float64 `yaml:"noise_variance"` // m², simulated altitude noise
	DropoutRate   float64 `yaml:"dropout_rate"`   // probability of an invalid simulated fix
}

type BaroConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Device        string  `yaml:"device"`
	UpdateRateHz  int     `yaml:"update_rate_hz"`
	ChannelBuffer int     `yaml:"channel_buffer"`
	NoiseVariance float64 `yaml:"noise_variance"` // m², simulated altitude noise
	MinPressure   float64 `yaml:"min_pressure"`   // Pa, readings at or below are saturated
	MaxPressure   float64 `yaml:"max_pressure"`   // Pa, readings at or above are saturated
	Temperature   float64 `yaml:"temperature"`    // °C, simulated
}

// ReplayConfig selects a recorded flight log as the sensor source.
type ReplayConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	Delimiter      string `yaml:"delimiter"`
	HasHeader      bool   `yaml:"has_header"`
	PressureColumn int    `yaml:"pressure_column"`
	AltitudeColumn int    `yaml:"altitude_column"`
	RateHz         int    `yaml:"rate_hz"`
}

type SimulationConfig struct {
	Enabled         bool    `yaml:"enabled"`
	DurationSeconds int     `yaml:"duration_seconds"`
	Scenario        string  `yaml:"scenario"` // "free_fall_parachute" or "static"
	StartHeight     float64 `yaml:"start_height"`
	Gravity         float64 `yaml:"gravity"`
	ParachuteFactor float64 `yaml:"parachute_factor"`
	Seed            uint64  `yaml:"seed"`
	LaunchLat       float64 `yaml:"launch_lat"` // degrees, simulated launch site
	LaunchLon       float64 `yaml:"launch_lon"` // degrees
	WindNorth       float64 `yaml:"wind_north"` // m/s horizontal drift of the simulated fix
	WindEast        float64 `yaml:"wind_east"`  // m/s
}

// SensorsConfig is the top-level structure for sensors.yaml.
type SensorsConfig struct {
	Sensors struct {
		GPS  GPSConfig  `yaml:"gps"`
		Baro BaroConfig `yaml:"baro"`
	} `yaml:"sensors"`
	Replay     ReplayConfig     `yaml:"replay"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ─── Filter config ──────────────────────────────────────────────────────

// FilterConfig is the top-level structure for filter.yaml.
type FilterConfig struct {
	Filter struct {
		ekf.Config `yaml:",inline"`
		AlignMs    int `yaml:"align_ms"`
	} `yaml:"filter"`
}

// ─── Storage configs ────────────────────────────────────────────────────

type CSVStorageConfig struct {
	FlushIntervalMs int  `yaml:"flush_interval_ms"`
	BufferSizeKB    int  `yaml:"buffer_size_kb"`
	WriteHeader     bool `yaml:"write_header"`
}

type StorageConfig struct {
	Storage struct {
		BaseDir       string           `yaml:"base_dir"`
		SessionPrefix string           `yaml:"session_prefix"`
		CSV           CSVStorageConfig `yaml:"csv"`
		Overwrite     bool             `yaml:"overwrite"`
	} `yaml:"storage"`
}

// ─── Loaders ────────────────────────────────────────────────────────────

// LoadSensorsConfig reads and parses sensors.yaml.
func LoadSensorsConfig(path string) (*SensorsConfig, error) {
	var cfg SensorsConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, fmt.Errorf("sensors config: %w", err)
	}
	if cfg.Replay.Enabled && cfg.Replay.Path == "" {
		return nil, fmt.Errorf("sensors config: replay enabled without a path")
	}
	return &cfg, nil
}

// LoadFilterConfig reads filter.yaml. Fields left out keep ekf.DefaultConfig values.
func LoadFilterConfig(path string) (*FilterConfig, error) {
	var cfg FilterConfig
	cfg.Filter.Config = ekf.DefaultConfig()
	if err := loadYAML(path, &cfg); err != nil {
		return nil, fmt.Errorf("filter config: %w", err)
	}
	f := cfg.Filter
	if f.RBaro < 0 || f.RGPS < 0 || f.ProcessNoise < 0 || f.InitialVariance < 0 {
		return nil, fmt.Errorf("filter config: variances must be non-negative")
	}
	if f.ResetAfter < 0 {
		return nil, fmt.Errorf("filter config: reset_after must be non-negative")
	}
	if f.RBaro == 0 && f.RGPS == 0 {
		return nil, fmt.Errorf("filter config: r_baro and r_gps cannot both be zero")
	}
	return &cfg, nil
}

// ApplySensors adjusts the filter to the selected sensor source. Replayed
// altitudes are referenced to the first row of the log, so the filter starts
// at 0 m.
func (c *FilterConfig) ApplySensors(s *SensorsConfig) {
	if s.Replay.Enabled && c.Filter.InitialAltitude != 0 {
		L().Info("replay mode: initial altitude %.1fm replaced by 0m", c.Filter.InitialAltitude)
		c.Filter.InitialAltitude = 0
	}
}

// LoadStorageConfig reads and parses storage.yaml.
func LoadStorageConfig(path string) (*StorageConfig, error) {
	var cfg StorageConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}
	return &cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
