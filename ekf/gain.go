package ekf

import (
	"math"

	"github.com/pkg/errors"
)

// Errors returned by the filters in this package.
var (
	ErrSingularInnovation = errors.New("ekf: innovation covariance is singular")
	ErrDimension          = errors.New("ekf: dimension mismatch")
	ErrVariance           = errors.New("ekf: variance must be positive")
)

// FusionObservation is the observation row for the altitude fusion step.
// GPS and barometer both observe the altitude state directly.
var FusionObservation = [2]float64{1, 1}

// Gain is the two-sensor Kalman gain. Index 0 weights the GPS innovation,
// index 1 the barometer innovation.
type Gain [2]float64

// GPS returns the gain applied to the GPS innovation.
func (k Gain) GPS() float64 { return k[0] }

// Baro returns the gain applied to the barometer innovation.
func (k Gain) Baro() float64 { return k[1] }

// Sum is K·H for the fusion observation, i.e. the fraction of prior variance removed.
func (k Gain) Sum() float64 {
	return k[0]*FusionObservation[0] + k[1]*FusionObservation[1]
}

// FusionGain computes the Kalman gain for a one-state, two-measurement update
// where p00 is the prior altitude variance and rBaro, rGPS are the measurement
// noise variances.
//
//	KS0 = p00*rBaro
//	KS1 = p00*rGPS
//	KS2 = 1/(KS0 + KS1 + rBaro*rGPS)
//	K   = [KS0*KS2, KS1*KS2]
func FusionGain(p00, rBaro, rGPS float64) (Gain, error) {
	ks0 := p00 * rBaro
	ks1 := p00 * rGPS
	den := ks0 + ks1 + rBaro*rGPS
	if den == 0 || !finite(den) {
		return Gain{}, errors.Wrapf(ErrSingularInnovation,
			"fusion gain p00=%g r_baro=%g r_gps=%g", p00, rBaro, rGPS)
	}
	ks2 := 1.0 / den

	k := Gain{ks0 * ks2, ks1 * ks2}
	if !finite(k[0]) || !finite(k[1]) {
		return Gain{}, errors.Wrapf(ErrSingularInnovation,
			"fusion gain overflow p00=%g r_baro=%g r_gps=%g", p00, rBaro, rGPS)
	}
	return k, nil
}

// ScalarGain is the single-measurement gain P/(P+R).
func ScalarGain(p, r float64) (float64, error) {
	s := p + r
	if s == 0 || !finite(s) {
		return 0, errors.Wrapf(ErrSingularInnovation, "scalar gain p=%g r=%g", p, r)
	}
	return p / s, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
