package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"altitude-fusion/geo"
	"altitude-fusion/models"
	"altitude-fusion/utils"
)

// BaroReader ingests static pressure from a barometer (or simulates it) and
// converts it to standard-atmosphere altitude.
type BaroReader struct {
	cfg      utils.BaroConfig
	sim      bool
	scenario Scenario
	noise    distuv.Normal
	Out      chan *models.BaroData
	dropped  uint64
	produced uint64
}

func NewBaroReader(cfg utils.BaroConfig, simulate bool, scenario Scenario, seed uint64) *BaroReader {
	buf := cfg.ChannelBuffer
	if buf <= 0 {
		buf = 512
	}
	if cfg.UpdateRateHz <= 0 {
		cfg.UpdateRateHz = 100
	}
	return &BaroReader{
		cfg:      cfg,
		sim:      simulate,
		scenario: scenario,
		noise:    gaussian(cfg.NoiseVariance, seed, 3),
		Out:      make(chan *models.BaroData, buf),
	}
}

func (r *BaroReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("baro reader started    (rate=%dHz, buffer=%d, simulate=%v)",
		r.cfg.UpdateRateHz, cap(r.Out), r.sim)
}

func (r *BaroReader) run(ctx context.Context) {
	defer close(r.Out)

	interval := time.Second / time.Duration(r.cfg.UpdateRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			utils.L().Info("baro reader stopped    (produced=%d, dropped=%d)",
				atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped))
			return
		case now := <-ticker.C:
			d := r.read(now.Sub(start).Seconds())

			select {
			case r.Out <- d:
				atomic.AddUint64(&r.produced, 1)
			default:
				atomic.AddUint64(&r.dropped, 1)
			}
		}
	}
}

func (r *BaroReader) read(t float64) *models.BaroData {
	ts := utils.NowNano()

	if r.sim {
		h := r.scenario.Altitude(t) + r.noise.Rand()
		return r.sample(ts, geo.PressureAtAltitude(h), r.cfg.Temperature)
	}

	// TODO: read the pressure register from cfg.Device
	return &models.BaroData{TimestampNs: ts, Saturated: true}
}

// sample builds a reading from raw pressure, flagging it when outside the
// sensor's configured range.
func (r *BaroReader) sample(ts int64, pressure, temperature float64) *models.BaroData {
	return &models.BaroData{
		TimestampNs: ts,
		Pressure:    pressure,
		Temperature: temperature,
		Altitude:    geo.BaroAltitude(pressure),
		Saturated:   saturated(pressure, r.cfg.MinPressure, r.cfg.MaxPressure),
	}
}

func saturated(pressure, lo, hi float64) bool {
	if lo > 0 && pressure <= lo {
		return true
	}
	return hi > 0 && pressure >= hi
}

func (r *BaroReader) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped)
}
