package ingest

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"altitude-fusion/geo"
	"altitude-fusion/models"
	"altitude-fusion/utils"
)

// GPSReader ingests fixes from a serial receiver (or simulates them).
type GPSReader struct {
	cfg      utils.GPSConfig
	sim      bool
	scenario Scenario
	launch   geo.LLA // degrees
	windN    float64
	windE    float64
	noise    distuv.Normal
	dropout  distuv.Bernoulli
	Out      chan *models.GPSData
	dropped  uint64
	produced uint64
}

// NewGPSReader creates a reader. Simulated fixes follow scenario vertically
// and drift from the launch site with the configured wind.
func NewGPSReader(cfg utils.GPSConfig, sim utils.SimulationConfig, scenario Scenario) *GPSReader {
	buf := cfg.ChannelBuffer
	if buf <= 0 {
		buf = 64
	}
	if cfg.UpdateRateHz <= 0 {
		cfg.UpdateRateHz = 10
	}
	launch := geo.LLA{Lat: sim.LaunchLat, Lon: sim.LaunchLon}
	if launch.Lat == 0 && launch.Lon == 0 {
		launch.Lat, launch.Lon = simLat, simLon
	}
	return &GPSReader{
		cfg:      cfg,
		sim:      sim.Enabled,
		scenario: scenario,
		launch:   launch,
		windN:    sim.WindNorth,
		windE:    sim.WindEast,
		noise:    gaussian(cfg.NoiseVariance, sim.Seed, 1),
		dropout:  distuv.Bernoulli{P: cfg.DropoutRate, Src: rand.NewPCG(sim.Seed, 2)},
		Out:      make(chan *models.GPSData, buf),
	}
}

func (r *GPSReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("gps reader started     (rate=%dHz, buffer=%d, simulate=%v)",
		r.cfg.UpdateRateHz, cap(r.Out), r.sim)
}

func (r *GPSReader) run(ctx context.Context) {
	defer close(r.Out)

	interval := time.Second / time.Duration(r.cfg.UpdateRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			utils.L().Info("gps reader stopped     (produced=%d, dropped=%d)",
				atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped))
			return
		case now := <-ticker.C:
			fix := r.readFix(now.Sub(start).Seconds())
			select {
			case r.Out <- fix:
				atomic.AddUint64(&r.produced, 1)
			default:
				atomic.AddUint64(&r.dropped, 1)
			}
		}
	}
}

// Default launch site for simulated fixes (Spaceport America).
const (
	simLat = 32.951805
	simLon = -106.915802
)

func (r *GPSReader) readFix(t float64) *models.GPSData {
	ts := utils.NowNano()

	if r.sim {
		return r.simulate(ts, t)
	}

	// TODO: parse GGA sentences from cfg.SerialPort
	return &models.GPSData{TimestampNs: ts}
}

func (r *GPSReader) simulate(ts int64, t float64) *models.GPSData {
	if r.dropout.P > 0 && r.dropout.Rand() == 1 {
		return &models.GPSData{TimestampNs: ts, FixQuality: 0}
	}
	h := r.scenario.Altitude(t)
	pos := geo.NEDToGeo(r.launch, geo.NED{North: r.windN * t, East: r.windE * t, Down: -h})
	return &models.GPSData{
		TimestampNs: ts,
		Latitude:    pos.Lat,
		Longitude:   pos.Lon,
		Altitude:    h + r.noise.Rand(),
		VDOP:        1.2,
		FixQuality:  1,
		NumSats:     10,
	}
}

func (r *GPSReader) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped)
}
