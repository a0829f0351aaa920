package ekf

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ProcessModel describes the state transition used by Filter.Predict.
// Step is the nonlinear transition f(x, u, dt), Jacobian is ∂f/∂x evaluated
// at the prior state and Noise is the process covariance Q.
type ProcessModel struct {
	Step     func(x mat.Vector, u []float64, dt float64) *mat.VecDense
	Jacobian func(x mat.Vector, u []float64, dt float64) mat.Matrix
	Noise    func(x mat.Vector, u []float64, dt float64) mat.Matrix
}

// MeasurementModel describes one observation used by Filter.Correct.
type MeasurementModel struct {
	Observe  func(x mat.Vector) *mat.VecDense
	Jacobian func(x mat.Vector) mat.Matrix
	Noise    mat.Matrix
}

// Filter is a general Extended Kalman Filter over an n-dimensional state.
// It is not safe for concurrent use.
type Filter struct {
	x *mat.VecDense
	p *mat.Dense
	k *mat.Dense // gain from the last Correct
}

// NewFilter creates a filter with state x0 and covariance I·p0.
func NewFilter(x0 []float64, p0 float64) (*Filter, error) {
	if len(x0) == 0 {
		return nil, errors.Wrap(ErrDimension, "empty initial state")
	}
	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)

	p := eye(n)
	p.Scale(p0, p)

	return &Filter{x: mat.NewVecDense(n, x), p: p}, nil
}

// Predict propagates the state through the process model:
// x = f(x,u,dt), P = F P Fᵀ + Q.
func (f *Filter) Predict(m ProcessModel, u []float64, dt float64) error {
	n := f.x.Len()

	F := m.Jacobian(f.x, u, dt)
	Q := m.Noise(f.x, u, dt)
	if r, c := F.Dims(); r != n || c != n {
		return errors.Wrapf(ErrDimension, "transition jacobian is %dx%d, state is %d", r, c, n)
	}
	if r, c := Q.Dims(); r != n || c != n {
		return errors.Wrapf(ErrDimension, "process noise is %dx%d, state is %d", r, c, n)
	}

	next := m.Step(f.x, u, dt)
	if next.Len() != n {
		return errors.Wrapf(ErrDimension, "transition returned %d states, want %d", next.Len(), n)
	}

	var fp, p mat.Dense
	fp.Mul(F, f.p)
	p.Mul(&fp, F.T())
	p.Add(&p, Q)

	f.x = next
	f.p = &p
	f.forceSymmetry()
	return nil
}

// Correct fuses the measurement z:
//
//	K = P Hᵀ (H P Hᵀ + R)⁻¹
//	x = x + K (z − h(x))
//	P = (I − K H) P (I − K H)ᵀ + K R Kᵀ
func (f *Filter) Correct(z []float64, m MeasurementModel) error {
	n := f.x.Len()
	nz := len(z)

	H := m.Jacobian(f.x)
	if r, c := H.Dims(); r != nz || c != n {
		return errors.Wrapf(ErrDimension, "observation jacobian is %dx%d, want %dx%d", r, c, nz, n)
	}
	if r, c := m.Noise.Dims(); r != nz || c != nz {
		return errors.Wrapf(ErrDimension, "measurement noise is %dx%d, want %dx%d", r, c, nz, nz)
	}
	h := m.Observe(f.x)
	if h.Len() != nz {
		return errors.Wrapf(ErrDimension, "observation returned %d values, want %d", h.Len(), nz)
	}

	var pht, s, sinv mat.Dense
	pht.Mul(f.p, H.T())
	s.Mul(H, &pht)
	s.Add(&s, m.Noise)
	if err := sinv.Inverse(&s); err != nil {
		return errors.Wrap(ErrSingularInnovation, err.Error())
	}

	k := new(mat.Dense)
	k.Mul(&pht, &sinv)

	var y mat.VecDense
	y.SubVec(mat.NewVecDense(nz, z), h)

	var dx, x mat.VecDense
	dx.MulVec(k, &y)
	x.AddVec(f.x, &dx)

	var kh, ikh mat.Dense
	kh.Mul(k, H)
	ikh.Sub(eye(n), &kh)

	var a, p, kr, krk mat.Dense
	a.Mul(&ikh, f.p)
	p.Mul(&a, ikh.T())
	kr.Mul(k, m.Noise)
	krk.Mul(&kr, k.T())
	p.Add(&p, &krk)

	f.x = &x
	f.p = &p
	f.k = k
	f.forceSymmetry()
	return nil
}

// State returns a copy of the state vector.
func (f *Filter) State() []float64 {
	out := make([]float64, f.x.Len())
	for i := range out {
		out[i] = f.x.AtVec(i)
	}
	return out
}

// Covariance returns a copy of the state covariance.
func (f *Filter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(f.p)
}

// Gain returns a copy of the gain from the last Correct, or nil.
func (f *Filter) Gain() *mat.Dense {
	if f.k == nil {
		return nil
	}
	return mat.DenseCopyOf(f.k)
}

func (f *Filter) forceSymmetry() {
	n, _ := f.p.Dims()
	for i := range n {
		for j := range i {
			v := (f.p.At(i, j) + f.p.At(j, i)) / 2
			f.p.Set(i, j, v)
			f.p.Set(j, i, v)
		}
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := range n {
		m.Set(i, i, 1)
	}
	return m
}
