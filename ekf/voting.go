package ekf

import (
	"math"

	"github.com/pkg/errors"
)

// Voting combines redundant readings of one quantity by inverse-variance
// weighting. A reading at or beyond its sensor's range is treated as
// saturated and left out.
type Voting struct {
	Ranges    []float64
	Variances []float64
}

// Vote returns the weighted value and its combined variance. If every
// reading is saturated both results are zero. Unsaturated readings need a
// positive, finite variance.
func (v Voting) Vote(data []float64) (value, variance float64, err error) {
	if len(data) != len(v.Ranges) || len(data) != len(v.Variances) {
		return 0, 0, errors.Wrapf(ErrDimension,
			"vote: %d readings, %d ranges, %d variances", len(data), len(v.Ranges), len(v.Variances))
	}

	var num, den float64
	for i, d := range data {
		if math.Abs(d) >= v.Ranges[i] {
			continue
		}
		if !(v.Variances[i] > 0) || math.IsInf(v.Variances[i], 1) {
			return 0, 0, errors.Wrapf(ErrVariance, "vote: reading %d variance %g", i, v.Variances[i])
		}
		w := 1 / v.Variances[i]
		num += d * w
		den += w
	}
	if den == 0 {
		return 0, 0, nil
	}
	return num / den, 1 / den, nil
}
