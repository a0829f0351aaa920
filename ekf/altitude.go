package ekf

import (
	"math"

	"github.com/pkg/errors"
)

// Source identifies an altitude sensor.
type Source int

const (
	SourceGPS Source = iota
	SourceBaro
)

func (s Source) String() string {
	switch s {
	case SourceGPS:
		return "gps"
	case SourceBaro:
		return "baro"
	}
	return "unknown"
}

// Config holds the altitude filter tuning.
type Config struct {
	InitialAltitude float64 `yaml:"initial_altitude"` // metres
	InitialVariance float64 `yaml:"initial_variance"` // m²
	ProcessNoise    float64 `yaml:"process_noise"`    // m²/s, random-walk rate
	RBaro           float64 `yaml:"r_baro"`           // m²
	RGPS            float64 `yaml:"r_gps"`            // m²
	GateSigma       float64 `yaml:"gate_sigma"`       // 0 disables gating
	ResetAfter      int     `yaml:"reset_after"`      // consecutive gated steps before a reset, 0 never resets
}

// DefaultConfig matches the tuning used for the flight-log replays.
func DefaultConfig() Config {
	return Config{
		InitialVariance: 1000,
		ProcessNoise:    0.5,
		RBaro:           0.5,
		RGPS:            5,
		ResetAfter:      30,
	}
}

// Update describes the outcome of one correction step.
type Update struct {
	Gain           Gain
	InnovationGPS  float64
	InnovationBaro float64
	UsedGPS        bool
	UsedBaro       bool
	RejectedGPS    bool
	RejectedBaro   bool
	Reset          bool // every reading was gated for ResetAfter steps and the filter restarted at the measurement
	Altitude       float64
	Variance       float64
}

// AltitudeFilter estimates altitude from barometer and GPS readings with a
// one-state random-walk Kalman filter. It is not safe for concurrent use.
type AltitudeFilter struct {
	cfg      Config
	x        float64
	p        float64
	rejected uint64
	lockout  int
}

// NewAltitudeFilter creates a filter at cfg.InitialAltitude.
func NewAltitudeFilter(cfg Config) *AltitudeFilter {
	return &AltitudeFilter{
		cfg: cfg,
		x:   cfg.InitialAltitude,
		p:   cfg.InitialVariance,
	}
}

// Predict grows the variance by ProcessNoise·dt. Non-positive dt is ignored.
func (f *AltitudeFilter) Predict(dt float64) {
	if dt <= 0 {
		return
	}
	f.p += f.cfg.ProcessNoise * dt
}

// Fuse corrects the estimate with a barometer and a GPS altitude using the
// configured noise. When gating is enabled and one reading fails the gate,
// the other is fused alone.
func (f *AltitudeFilter) Fuse(baro, gps float64) (Update, error) {
	return f.FuseWithNoise(baro, f.cfg.RBaro, gps, f.cfg.RGPS)
}

// FuseWithNoise is Fuse with per-step measurement variances, e.g. for a
// barometer reading averaged over several samples.
func (f *AltitudeFilter) FuseWithNoise(baro, rBaro, gps, rGPS float64) (Update, error) {
	u := Update{
		InnovationGPS:  gps - f.x,
		InnovationBaro: baro - f.x,
	}
	u.RejectedGPS = !f.passGate(u.InnovationGPS, rGPS)
	u.RejectedBaro = !f.passGate(u.InnovationBaro, rBaro)

	switch {
	case u.RejectedGPS && u.RejectedBaro:
		f.rejected += 2
		if f.lockedOut() {
			f.Reset(blend(baro, rBaro, gps, rGPS))
			u.Reset = true
		}
		u.Altitude, u.Variance = f.x, f.p
		return u, nil
	case u.RejectedGPS:
		f.rejected++
		return f.fuseSingle(u, SourceBaro, baro, rBaro)
	case u.RejectedBaro:
		f.rejected++
		return f.fuseSingle(u, SourceGPS, gps, rGPS)
	}

	k, err := FusionGain(f.p, rBaro, rGPS)
	if err != nil {
		return u, err
	}

	f.x += k[0]*u.InnovationGPS + k[1]*u.InnovationBaro

	ikh := 1 - k.Sum()
	f.p = ikh*ikh*f.p + k[0]*k[0]*rGPS + k[1]*k[1]*rBaro
	f.lockout = 0

	u.Gain = k
	u.UsedGPS, u.UsedBaro = true, true
	u.Altitude, u.Variance = f.x, f.p
	return u, nil
}

// FuseSingle corrects the estimate with one sensor reading and its configured noise.
func (f *AltitudeFilter) FuseSingle(src Source, z float64) (Update, error) {
	return f.FuseSingleWithNoise(src, z, f.noise(src))
}

// FuseSingleWithNoise corrects the estimate with one reading of variance r.
func (f *AltitudeFilter) FuseSingleWithNoise(src Source, z, r float64) (Update, error) {
	var u Update
	switch src {
	case SourceGPS:
		u.InnovationGPS = z - f.x
		if !f.passGate(u.InnovationGPS, r) {
			u.RejectedGPS = true
			return f.gated(u, z), nil
		}
	case SourceBaro:
		u.InnovationBaro = z - f.x
		if !f.passGate(u.InnovationBaro, r) {
			u.RejectedBaro = true
			return f.gated(u, z), nil
		}
	default:
		return u, errors.Errorf("ekf: unknown source %d", src)
	}
	return f.fuseSingle(u, src, z, r)
}

// gated records a rejected lone reading z, restarting the filter at z once
// the lockout limit is reached.
func (f *AltitudeFilter) gated(u Update, z float64) Update {
	f.rejected++
	if f.lockedOut() {
		f.Reset(z)
		u.Reset = true
	}
	u.Altitude, u.Variance = f.x, f.p
	return u
}

// lockedOut counts a step where every reading was gated and reports whether
// ResetAfter consecutive steps have now been lost.
func (f *AltitudeFilter) lockedOut() bool {
	f.lockout++
	return f.cfg.ResetAfter > 0 && f.lockout >= f.cfg.ResetAfter
}

func (f *AltitudeFilter) fuseSingle(u Update, src Source, z, r float64) (Update, error) {
	k, err := ScalarGain(f.p, r)
	if err != nil {
		return u, err
	}

	f.x += k * (z - f.x)
	f.p = (1-k)*(1-k)*f.p + k*k*r
	f.lockout = 0

	if src == SourceGPS {
		u.Gain[0] = k
		u.UsedGPS = true
	} else {
		u.Gain[1] = k
		u.UsedBaro = true
	}
	u.Altitude, u.Variance = f.x, f.p
	return u, nil
}

// Reset reinitialises the estimate at altitude with the configured initial variance.
func (f *AltitudeFilter) Reset(altitude float64) {
	f.x = altitude
	f.p = f.cfg.InitialVariance
	f.lockout = 0
}

// State returns the altitude estimate and its variance.
func (f *AltitudeFilter) State() (altitude, variance float64) {
	return f.x, f.p
}

// Rejected returns the number of readings discarded by the innovation gate.
func (f *AltitudeFilter) Rejected() uint64 {
	return f.rejected
}

func (f *AltitudeFilter) noise(src Source) float64 {
	if src == SourceGPS {
		return f.cfg.RGPS
	}
	return f.cfg.RBaro
}

// blend is the inverse-variance mean of the two readings.
func blend(baro, rBaro, gps, rGPS float64) float64 {
	if rBaro+rGPS <= 0 {
		return baro
	}
	return (baro*rGPS + gps*rBaro) / (rBaro + rGPS)
}

func (f *AltitudeFilter) passGate(innovation, r float64) bool {
	if f.cfg.GateSigma <= 0 {
		return true
	}
	return math.Abs(innovation) <= f.cfg.GateSigma*math.Sqrt(f.p+r)
}
