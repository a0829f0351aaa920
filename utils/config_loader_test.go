package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSensorsConfig(t *testing.T) {
	path := writeFile(t, "sensors.yaml", `
sensors:
  gps:
    enabled: true
    update_rate_hz: 10
    noise_variance: 5
    dropout_rate: 0.1
  baro:
    enabled: true
    update_rate_hz: 100
    noise_variance: 0.5
    max_pressure: 110000
replay:
  enabled: false
simulation:
  enabled: true
  scenario: free_fall_parachute
  start_height: 1000
  gravity: -9.81
  parachute_factor: 0.5
  seed: 7
  wind_east: 3.5
`)
	cfg, err := LoadSensorsConfig(path)
	if err != nil {
		t.Fatalf("LoadSensorsConfig: %v", err)
	}
	if !cfg.Sensors.GPS.Enabled || cfg.Sensors.GPS.UpdateRateHz != 10 || cfg.Sensors.GPS.DropoutRate != 0.1 {
		t.Fatalf("gps config = %+v", cfg.Sensors.GPS)
	}
	if cfg.Sensors.Baro.NoiseVariance != 0.5 || cfg.Sensors.Baro.MaxPressure != 110000 {
		t.Fatalf("baro config = %+v", cfg.Sensors.Baro)
	}
	if cfg.Simulation.Scenario != "free_fall_parachute" || cfg.Simulation.Seed != 7 || cfg.Simulation.Gravity != -9.81 ||
		cfg.Simulation.WindEast != 3.5 {
		t.Fatalf("simulation config = %+v", cfg.Simulation)
	}
}

func TestLoadSensorsConfigReplayNeedsPath(t *testing.T) {
	path := writeFile(t, "sensors.yaml", "replay:\n  enabled: true\n")
	if _, err := LoadSensorsConfig(path); err == nil {
		t.Fatal("expected error for replay without path")
	}
}

func TestLoadFilterConfig(t *testing.T) {
	path := writeFile(t, "filter.yaml", `
filter:
  r_gps: 4
  gate_sigma: 3
  align_ms: 20
`)
	cfg, err := LoadFilterConfig(path)
	if err != nil {
		t.Fatalf("LoadFilterConfig: %v", err)
	}
	f := cfg.Filter
	if f.RGPS != 4 || f.GateSigma != 3 || f.AlignMs != 20 {
		t.Fatalf("filter config = %+v", f)
	}
	// unset fields keep their defaults
	if f.RBaro != 0.5 || f.InitialVariance != 1000 || f.ProcessNoise != 0.5 || f.ResetAfter != 30 {
		t.Fatalf("defaults lost: %+v", f)
	}
}

func TestLoadFilterConfigRejectsBadNoise(t *testing.T) {
	tests := map[string]string{
		"negative":  "filter:\n  r_baro: -1\n",
		"both zero": "filter:\n  r_baro: 0\n  r_gps: 0\n",
		"reset":     "filter:\n  reset_after: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFilterConfig(writeFile(t, "filter.yaml", body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestApplySensorsStartsReplayAtZero(t *testing.T) {
	cfg, err := LoadFilterConfig(writeFile(t, "filter.yaml", "filter:\n  initial_altitude: 1000\n"))
	if err != nil {
		t.Fatal(err)
	}

	var sensors SensorsConfig
	cfg.ApplySensors(&sensors)
	if cfg.Filter.InitialAltitude != 1000 {
		t.Fatalf("simulated run: initial altitude = %v, want 1000", cfg.Filter.InitialAltitude)
	}

	sensors.Replay.Enabled = true
	cfg.ApplySensors(&sensors)
	if cfg.Filter.InitialAltitude != 0 {
		t.Fatalf("replay run: initial altitude = %v, want 0", cfg.Filter.InitialAltitude)
	}
}

func TestLoadStorageConfig(t *testing.T) {
	path := writeFile(t, "storage.yaml", `
storage:
  base_dir: out
  session_prefix: flight
  csv:
    flush_interval_ms: 50
    write_header: true
`)
	cfg, err := LoadStorageConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.BaseDir != "out" || cfg.Storage.CSV.FlushIntervalMs != 50 || !cfg.Storage.CSV.WriteHeader {
		t.Fatalf("storage config = %+v", cfg.Storage)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadStorageConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := LoadSensorsConfig(writeFile(t, "bad.yaml", "sensors: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
