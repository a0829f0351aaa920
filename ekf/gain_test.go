package ekf

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-12

func TestFusionGainKnownValues(t *testing.T) {
	tests := []struct {
		name             string
		p00, rBaro, rGPS float64
		want             Gain
	}{
		{"replay tuning", 1, 0.5, 5, Gain{0.0625, 0.625}},
		{"equal noise", 2, 1, 1, Gain{0.4, 0.4}},
		{"zero prior", 0, 1, 3, Gain{0, 0}},
		{"large prior", 1e6, 2, 2, Gain{2e6 / (4e6 + 4), 2e6 / (4e6 + 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FusionGain(tt.p00, tt.rBaro, tt.rGPS)
			if err != nil {
				t.Fatalf("FusionGain: %v", err)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > tol {
					t.Fatalf("K[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFusionGainRatioIdentity(t *testing.T) {
	for _, p := range []float64{1e-3, 0.5, 1, 10, 1000} {
		for _, rb := range []float64{0.1, 0.5, 2} {
			for _, rg := range []float64{0.3, 5, 25} {
				k, err := FusionGain(p, rb, rg)
				if err != nil {
					t.Fatalf("FusionGain(%v,%v,%v): %v", p, rb, rg, err)
				}
				lhs, rhs := k.GPS()*rg, k.Baro()*rb
				if math.Abs(lhs-rhs) > tol*math.Max(1, math.Abs(lhs)) {
					t.Fatalf("K0*rGPS=%v != K1*rBaro=%v (p=%v rb=%v rg=%v)", lhs, rhs, p, rb, rg)
				}
				if s := k.Sum(); s <= 0 || s >= 1 {
					t.Fatalf("K0+K1 = %v, want in (0,1)", s)
				}
			}
		}
	}
}

func TestFusionGainSingular(t *testing.T) {
	tests := []struct {
		name             string
		p00, rBaro, rGPS float64
	}{
		{"all zero", 0, 0, 0},
		{"zero noise zero prior", 0, 0, 4},
		{"cancelling", 1, 1, -0.5},
		{"nan prior", math.NaN(), 1, 1},
		{"inf noise", 1, math.Inf(1), 1},
		{"subnormal denominator", 1e-300, 1e-300, 1e-10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := FusionGain(tt.p00, tt.rBaro, tt.rGPS)
			if errors.Cause(err) != ErrSingularInnovation {
				t.Fatalf("err = %v, want ErrSingularInnovation", err)
			}
			if k != (Gain{}) {
				t.Fatalf("gain = %v, want zero", k)
			}
		})
	}
}

func TestFusionGainOverflow(t *testing.T) {
	// den = 2e-310 is finite and non-zero, its reciprocal is not
	_, err := FusionGain(1e-300, 1e-300, 1e-10)
	if errors.Cause(err) != ErrSingularInnovation || !strings.Contains(err.Error(), "overflow") {
		t.Fatalf("err = %v, want gain overflow", err)
	}
}

func TestFusionGainMatchesMatrixFilter(t *testing.T) {
	const p0, rb, rg = 3.0, 0.5, 5.0

	want, err := FusionGain(p0, rb, rg)
	if err != nil {
		t.Fatal(err)
	}

	f, err := NewFilter([]float64{0}, p0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Correct([]float64{10, 12}, altitudeModel(rb, rg)); err != nil {
		t.Fatalf("Correct: %v", err)
	}
	k := f.Gain()
	if r, c := k.Dims(); r != 1 || c != 2 {
		t.Fatalf("gain dims = %dx%d, want 1x2", r, c)
	}
	for i := range 2 {
		if math.Abs(k.At(0, i)-want[i]) > tol {
			t.Fatalf("matrix K[%d] = %v, closed form %v", i, k.At(0, i), want[i])
		}
	}
}

func TestScalarGain(t *testing.T) {
	k, err := ScalarGain(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if k != 0.75 {
		t.Fatalf("k = %v, want 0.75", k)
	}
	if _, err := ScalarGain(0, 0); errors.Cause(err) != ErrSingularInnovation {
		t.Fatalf("err = %v, want ErrSingularInnovation", err)
	}
}

// altitudeModel observes the single altitude state with GPS then barometer.
func altitudeModel(rBaro, rGPS float64) MeasurementModel {
	return MeasurementModel{
		Observe: func(x mat.Vector) *mat.VecDense {
			return mat.NewVecDense(2, []float64{x.AtVec(0), x.AtVec(0)})
		},
		Jacobian: func(mat.Vector) mat.Matrix {
			return mat.NewDense(2, 1, FusionObservation[:])
		},
		Noise: mat.NewDiagDense(2, []float64{rGPS, rBaro}),
	}
}
