package ekf

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// constantVelocity is a [altitude, climb rate] model with white acceleration noise.
func constantVelocity(q float64) ProcessModel {
	return ProcessModel{
		Step: func(x mat.Vector, _ []float64, dt float64) *mat.VecDense {
			return mat.NewVecDense(2, []float64{x.AtVec(0) + x.AtVec(1)*dt, x.AtVec(1)})
		},
		Jacobian: func(_ mat.Vector, _ []float64, dt float64) mat.Matrix {
			return mat.NewDense(2, 2, []float64{1, dt, 0, 1})
		},
		Noise: func(_ mat.Vector, _ []float64, dt float64) mat.Matrix {
			dt2, dt3 := dt*dt, dt*dt*dt
			return mat.NewDense(2, 2, []float64{
				dt3 / 3 * q, dt2 / 2 * q,
				dt2 / 2 * q, dt * q,
			})
		},
	}
}

func TestNewFilterEmptyState(t *testing.T) {
	if _, err := NewFilter(nil, 1); errors.Cause(err) != ErrDimension {
		t.Fatalf("err = %v, want ErrDimension", err)
	}
}

func TestFilterPredictPropagatesCovariance(t *testing.T) {
	f, err := NewFilter([]float64{100, -2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Predict(constantVelocity(0), nil, 0.5); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	x := f.State()
	if x[0] != 99 || x[1] != -2 {
		t.Fatalf("state = %v, want [99 -2]", x)
	}

	// F P Fᵀ with P = I, F = [[1 dt][0 1]]
	want := mat.NewDense(2, 2, []float64{1.25, 0.5, 0.5, 1})
	if !mat.EqualApprox(f.Covariance(), want, tol) {
		t.Fatalf("P = %v, want %v", mat.Formatted(f.Covariance()), mat.Formatted(want))
	}
}

func TestFilterCorrectStaysSymmetric(t *testing.T) {
	f, err := NewFilter([]float64{0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	obs := MeasurementModel{
		Observe: func(x mat.Vector) *mat.VecDense {
			return mat.NewVecDense(2, []float64{x.AtVec(0), x.AtVec(0)})
		},
		Jacobian: func(mat.Vector) mat.Matrix {
			return mat.NewDense(2, 2, []float64{1, 0, 1, 0})
		},
		Noise: mat.NewDiagDense(2, []float64{5, 0.5}),
	}

	truth := 50.0
	for i := range 200 {
		if err := f.Predict(constantVelocity(0.1), nil, 0.1); err != nil {
			t.Fatalf("step %d Predict: %v", i, err)
		}
		if err := f.Correct([]float64{truth, truth}, obs); err != nil {
			t.Fatalf("step %d Correct: %v", i, err)
		}
		p := f.Covariance()
		if p.At(0, 1) != p.At(1, 0) {
			t.Fatalf("step %d: P not symmetric: %v", i, mat.Formatted(p))
		}
	}
	if x := f.State(); math.Abs(x[0]-truth) > 1e-2 {
		t.Fatalf("altitude = %v, want %v", x[0], truth)
	}
}

func TestFilterCorrectDimensionErrors(t *testing.T) {
	f, err := NewFilter([]float64{0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	m := altitudeModel(0.5, 5)

	if err := f.Correct([]float64{1}, m); errors.Cause(err) != ErrDimension {
		t.Fatalf("short z: err = %v, want ErrDimension", err)
	}

	m.Noise = mat.NewDiagDense(3, []float64{1, 1, 1})
	if err := f.Correct([]float64{1, 1}, m); errors.Cause(err) != ErrDimension {
		t.Fatalf("bad R: err = %v, want ErrDimension", err)
	}
	if f.Gain() != nil {
		t.Fatal("gain set after failed Correct")
	}
}

func TestFilterCorrectSingular(t *testing.T) {
	f, err := NewFilter([]float64{0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	m := altitudeModel(0, 0)
	if err := f.Correct([]float64{1, 1}, m); errors.Cause(err) != ErrSingularInnovation {
		t.Fatalf("err = %v, want ErrSingularInnovation", err)
	}
}
