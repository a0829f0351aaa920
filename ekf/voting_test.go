package ekf

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestVote(t *testing.T) {
	v := Voting{
		Ranges:    []float64{100, 100, 50},
		Variances: []float64{1, 4, 2},
	}

	tests := []struct {
		name         string
		data         []float64
		wantValue    float64
		wantVariance float64
	}{
		{"all valid", []float64{10, 20, 12}, (10 + 20.0/4 + 12.0/2) / 1.75, 1 / 1.75},
		{"one saturated", []float64{10, 20, 50}, (10 + 20.0/4) / 1.25, 1 / 1.25},
		{"negative saturation", []float64{-100, 20, 12}, (20.0/4 + 12.0/2) / 0.75, 1 / 0.75},
		{"all saturated", []float64{100, -101, 60}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, variance, err := v.Vote(tt.data)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(val-tt.wantValue) > tol || math.Abs(variance-tt.wantVariance) > tol {
				t.Fatalf("Vote = (%v, %v), want (%v, %v)", val, variance, tt.wantValue, tt.wantVariance)
			}
		})
	}
}

func TestVoteLengthMismatch(t *testing.T) {
	v := Voting{Ranges: []float64{1, 1}, Variances: []float64{1, 1}}
	if _, _, err := v.Vote([]float64{0}); errors.Cause(err) != ErrDimension {
		t.Fatalf("err = %v, want ErrDimension", err)
	}
}

func TestVoteRejectsBadVariance(t *testing.T) {
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		v := Voting{Ranges: []float64{10, 10}, Variances: []float64{1, bad}}
		if _, _, err := v.Vote([]float64{1, 2}); errors.Cause(err) != ErrVariance {
			t.Fatalf("variance %v: err = %v, want ErrVariance", bad, err)
		}
	}

	// a saturated reading is dropped before its variance is used
	v := Voting{Ranges: []float64{10, 0}, Variances: []float64{1, 0}}
	val, variance, err := v.Vote([]float64{3, 2})
	if err != nil || val != 3 || variance != 1 {
		t.Fatalf("Vote = (%v, %v, %v), want (3, 1, nil)", val, variance, err)
	}
}
