package controller

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"altitude-fusion/ekf"
	"altitude-fusion/geo"
	"altitude-fusion/models"
	"altitude-fusion/utils"
)

// FusionController runs the altitude filter over the GPS and barometer
// streams. One goroutine drains each sensor channel; a merge goroutine
// predicts and corrects the filter on a fixed alignment cadence and emits
// one AltitudeEstimate per tick.
//
// GPS keeps latest-value semantics. Barometer samples are collected over the
// window and combined by inverse-variance vote, so a 100 Hz barometer feeding
// a 30 Hz filter contributes all of its samples.
type FusionController struct {
	mu sync.Mutex

	latestGPS  *models.GPSData
	baroWindow []*models.BaroData

	cfg      ekf.Config
	filter   *ekf.AltitudeFilter
	lastTick int64
	launch   *geo.LLA // first fix with a position

	Out chan *models.AltitudeEstimate // downstream consumers read this

	alignIntervalMs int
	emitted         uint64
	dropped         uint64
	rejected        uint64
	resets          uint64
}

// NewFusionController creates a fusion stage.
// alignMs controls how often an estimate is emitted (e.g. 33 ms ≈ 30 Hz).
func NewFusionController(cfg ekf.Config, alignMs int) *FusionController {
	if alignMs <= 0 {
		alignMs = 33 // default ~30 Hz
	}
	return &FusionController{
		cfg:             cfg,
		filter:          ekf.NewAltitudeFilter(cfg),
		Out:             make(chan *models.AltitudeEstimate, 256),
		alignIntervalMs: alignMs,
	}
}

// Start launches drain goroutines for each sensor channel plus the merge ticker.
func (fc *FusionController) Start(ctx context.Context, sc *SensorsController) {
	if sc.GPSCh != nil {
		go fc.drainGPS(ctx, sc.GPSCh)
	}
	if sc.BaroCh != nil {
		go fc.drainBaro(ctx, sc.BaroCh)
	}

	go fc.merge(ctx)
	utils.L().Info("fusion controller started (align_interval=%dms, r_baro=%.3f, r_gps=%.3f, gate=%.1fσ)",
		fc.alignIntervalMs, fc.cfg.RBaro, fc.cfg.RGPS, fc.cfg.GateSigma)
}

// ─── drain goroutines ───────────────────────────────────────────────────

func (fc *FusionController) drainGPS(ctx context.Context, ch <-chan *models.GPSData) {
	for {
		select {
		case <-ctx.Done():
			return
		case g, ok := <-ch:
			if !ok {
				return
			}
			fc.mu.Lock()
			fc.latestGPS = g
			fc.mu.Unlock()
		}
	}
}

func (fc *FusionController) drainBaro(ctx context.Context, ch <-chan *models.BaroData) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			fc.mu.Lock()
			fc.baroWindow = append(fc.baroWindow, b)
			fc.mu.Unlock()
		}
	}
}

// ─── merge: one filter step per alignment tick ──────────────────────────

func (fc *FusionController) merge(ctx context.Context) {
	defer close(fc.Out)

	ticker := time.NewTicker(time.Duration(fc.alignIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			alt, v := fc.filter.State()
			utils.L().Info("fusion controller stopped (altitude=%.2fm, σ=%.3fm)", alt, math.Sqrt(v))
			return
		case <-ticker.C:
			fc.mu.Lock()
			gps, window := fc.latestGPS, fc.baroWindow
			// Clear slots so we don't fuse stale data twice.
			fc.latestGPS = nil
			fc.baroWindow = nil
			fc.mu.Unlock()

			est := fc.step(gps, window, utils.NowNano())

			// Non-blocking send
			select {
			case fc.Out <- est:
				atomic.AddUint64(&fc.emitted, 1)
			default:
				atomic.AddUint64(&fc.dropped, 1)
				utils.L().Warn("fusion: output channel full, dropping estimate")
			}
		}
	}
}

// step runs predict + correct for one window and builds the estimate.
func (fc *FusionController) step(gps *models.GPSData, window []*models.BaroData, now int64) *models.AltitudeEstimate {
	fc.filter.Predict(utils.ElapsedSeconds(fc.lastTick, now))
	fc.lastTick = now

	est := &models.AltitudeEstimate{TimestampNs: now, BaroSamples: window}

	gpsOK := gps.Valid()
	if gpsOK {
		est.GPS = gps
		est.Position = fc.position(gps)
	}
	baroAlt, baroVar, baroOK := fc.voteBaro(window)
	if baroOK {
		est.BaroAltitude = &baroAlt
	}

	var (
		u   ekf.Update
		err error
	)
	switch {
	case gpsOK && baroOK:
		u, err = fc.filter.FuseWithNoise(baroAlt, baroVar, gps.Altitude, fc.cfg.RGPS)
	case gpsOK:
		u, err = fc.filter.FuseSingle(ekf.SourceGPS, gps.Altitude)
	case baroOK:
		u, err = fc.filter.FuseSingleWithNoise(ekf.SourceBaro, baroAlt, baroVar)
	default:
		u.Altitude, u.Variance = fc.filter.State()
	}
	if err != nil {
		utils.L().Error("fusion: correction skipped: %v", err)
		u = ekf.Update{}
		u.Altitude, u.Variance = fc.filter.State()
	}

	if u.RejectedGPS || u.RejectedBaro {
		utils.L().Warn("fusion: innovation gate rejected %s (ν_gps=%.2f ν_baro=%.2f)",
			sourceList(u.RejectedGPS, u.RejectedBaro), u.InnovationGPS, u.InnovationBaro)
	}
	if u.Reset {
		atomic.AddUint64(&fc.resets, 1)
		utils.L().Warn("fusion: every reading gated for %d steps, filter restarted at %.2fm",
			fc.cfg.ResetAfter, u.Altitude)
	}
	atomic.StoreUint64(&fc.rejected, fc.filter.Rejected())

	est.Altitude, est.Variance = u.Altitude, u.Variance
	est.GainGPS, est.GainBaro = u.Gain.GPS(), u.Gain.Baro()
	est.InnovationGPS, est.InnovationBaro = u.InnovationGPS, u.InnovationBaro
	est.Sources = sourceList(u.UsedGPS, u.UsedBaro)
	if u.RejectedGPS || u.RejectedBaro {
		est.Rejected = sourceList(u.RejectedGPS, u.RejectedBaro)
	}
	return est
}

// position places a fix relative to the launch site, which is the first fix
// seen with a horizontal position.
func (fc *FusionController) position(gps *models.GPSData) *models.Position {
	if !gps.HasPosition() {
		return nil
	}
	fix := geo.LLA{Lat: gps.Latitude, Lon: gps.Longitude, Alt: gps.Altitude}
	if fc.launch == nil {
		fc.launch = &fix
		utils.L().Info("fusion: launch site %.6f, %.6f", fix.Lat, fix.Lon)
	}
	o := *fc.launch
	ned := geo.GeoToNED(o, fix)
	return &models.Position{
		North:   ned.North,
		East:    ned.East,
		Range:   geo.Distance(o.Lat, o.Lon, fix.Lat, fix.Lon),
		Bearing: geo.Bearing(o.Lat, o.Lon, fix.Lat, fix.Lon) * 180 / math.Pi,
	}
}

// voteBaro combines the window's barometer samples. Each sample carries the
// configured barometer variance, so n usable samples vote to rBaro/n.
func (fc *FusionController) voteBaro(window []*models.BaroData) (alt, variance float64, ok bool) {
	var (
		usable int
		last   *models.BaroData
	)
	for _, b := range window {
		if !b.Saturated {
			usable++
			last = b
		}
	}
	if usable == 0 {
		return 0, 0, false
	}
	if fc.cfg.RBaro <= 0 {
		return last.Altitude, 0, true
	}

	v := ekf.Voting{
		Ranges:    make([]float64, len(window)),
		Variances: make([]float64, len(window)),
	}
	data := make([]float64, len(window))
	for i, b := range window {
		data[i] = b.Altitude
		v.Variances[i] = fc.cfg.RBaro
		v.Ranges[i] = math.Inf(1)
		if b.Saturated {
			// a zero range always votes the sample out
			v.Ranges[i] = 0
		}
	}
	alt, variance, err := v.Vote(data)
	if err != nil {
		utils.L().Error("fusion: baro vote: %v", err)
		return 0, 0, false
	}
	return alt, variance, true
}

// LogStats prints emitted/dropped/rejected counters.
func (fc *FusionController) LogStats() {
	utils.L().Info("  fusion   emitted=%d  dropped=%d  gated=%d  resets=%d",
		atomic.LoadUint64(&fc.emitted), atomic.LoadUint64(&fc.dropped),
		atomic.LoadUint64(&fc.rejected), atomic.LoadUint64(&fc.resets))
}

func sourceList(gps, baro bool) string {
	switch {
	case gps && baro:
		return "gps+baro"
	case gps:
		return "gps"
	case baro:
		return "baro"
	}
	return "none"
}
