package controller

import (
	"context"

	"altitude-fusion/models"
	"altitude-fusion/services/ingest"
	"altitude-fusion/utils"
)

// SensorsController owns the lifecycle of every sensor reader goroutine.
// It exposes typed output channels that the fusion stage consumes. With
// replay enabled, both channels are fed from the flight log instead.
type SensorsController struct {
	gps    *ingest.GPSReader
	baro   *ingest.BaroReader
	replay *ingest.ReplayReader

	GPSCh  chan *models.GPSData
	BaroCh chan *models.BaroData
}

// NewSensorsController creates reader instances for every enabled sensor.
func NewSensorsController(cfg *utils.SensorsConfig) (*SensorsController, error) {
	sc := &SensorsController{}

	if cfg.Replay.Enabled {
		r, err := ingest.NewReplayReader(cfg.Replay)
		if err != nil {
			return nil, err
		}
		sc.replay = r
		sc.GPSCh = r.GPSOut
		sc.BaroCh = r.BaroOut
		return sc, nil
	}

	sim := cfg.Simulation.Enabled
	scenario := ingest.NewScenario(cfg.Simulation)
	seed := cfg.Simulation.Seed

	if cfg.Sensors.GPS.Enabled {
		sc.gps = ingest.NewGPSReader(cfg.Sensors.GPS, cfg.Simulation, scenario)
		sc.GPSCh = sc.gps.Out
	}
	if cfg.Sensors.Baro.Enabled {
		sc.baro = ingest.NewBaroReader(cfg.Sensors.Baro, sim, scenario, seed)
		sc.BaroCh = sc.baro.Out
	}

	return sc, nil
}

// Start launches all enabled sensor goroutines.
func (sc *SensorsController) Start(ctx context.Context) {
	if sc.replay != nil {
		sc.replay.Start(ctx)
	}
	if sc.gps != nil {
		sc.gps.Start(ctx)
	}
	if sc.baro != nil {
		sc.baro.Start(ctx)
	}
	utils.L().Info("sensors controller: all enabled readers launched")
}

// Done is closed when a replay has played out. It is nil for live or
// simulated sensors, which run until the context ends.
func (sc *SensorsController) Done() <-chan struct{} {
	if sc.replay == nil {
		return nil
	}
	return sc.replay.Done()
}

// LogStats prints current produce/drop counters for each active reader.
func (sc *SensorsController) LogStats() {
	if sc.replay != nil {
		p, d := sc.replay.Stats()
		utils.L().Info("  replay   produced=%d  dropped=%d", p, d)
	}
	if sc.gps != nil {
		p, d := sc.gps.Stats()
		utils.L().Info("  gps      produced=%d  dropped=%d", p, d)
	}
	if sc.baro != nil {
		p, d := sc.baro.Stats()
		utils.L().Info("  baro     produced=%d  dropped=%d", p, d)
	}
}
