package mgflow

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FlowField is a pair of equally shaped grids: the horizontal (U) and
// vertical (V) displacement, or, as a right-hand side or residual, the
// forcing/defect of the two Euler–Lagrange equations.
type FlowField struct {
	U, V *Grid
}

// NewFlowField returns a zero field of the given shape.
func NewFlowField(s Shape) *FlowField {
	return &FlowField{
		U: NewGrid(s.Rows, s.Cols, 0),
		V: NewGrid(s.Rows, s.Cols, 0),
	}
}

// newCorrection allocates a zero coarse-level error field that prolongates
// back to fine.
func newCorrection(coarse, fine Shape) *FlowField {
	return &FlowField{
		U: newCoarseGrid(coarse, fine, 0),
		V: newCoarseGrid(coarse, fine, 0),
	}
}

func (f *FlowField) Shape() Shape { return f.U.Shape() }

func (f *FlowField) Clone() *FlowField {
	return &FlowField{U: f.U.Clone(), V: f.V.Clone()}
}

// Add adds o into f componentwise.
func (f *FlowField) Add(o *FlowField) {
	f.U.Add(o.U)
	f.V.Add(o.V)
}

// Restrict coarsens both components in place.
func (f *FlowField) Restrict() {
	f.U = f.U.Restrict()
	f.V = f.V.Restrict()
}

// Prolongate returns both components interpolated to their remembered fine
// shape.
func (f *FlowField) Prolongate() *FlowField {
	return &FlowField{U: f.U.Prolongate(), V: f.V.Prolongate()}
}

// ResidualNorm is ||U||_2 + ||V||_2, the convergence metric of the solver.
func (f *FlowField) ResidualNorm() float64 {
	return f.U.L2Norm() + f.V.L2Norm()
}

// Magnitude returns the per-pixel displacement length.
func (f *FlowField) Magnitude() *Grid {
	s := f.Shape()
	out := NewGrid(s.Rows, s.Cols, 0)
	for i := range s.Rows {
		for j := range s.Cols {
			out.Set(i, j, math.Hypot(f.U.At(i, j), f.V.At(i, j)))
		}
	}
	return out
}

// Normalize divides both components by the spread (max - min) of the
// per-pixel magnitude so the field fits an image's value range. A field of
// uniform magnitude is left as is.
func (f *FlowField) Normalize() {
	mag, _ := f.Magnitude().raw()
	spread := floats.Max(mag) - floats.Min(mag)
	if spread == 0 {
		return
	}
	f.U.Scale(1 / spread)
	f.V.Scale(1 / spread)
}

// Resize returns both components cropped or zero-padded to s.
func (f *FlowField) Resize(s Shape) *FlowField {
	return &FlowField{U: f.U.Resize(s), V: f.V.Resize(s)}
}

// Compare returns the mean error of f against a reference field, measured in
// norm n. Each component's error is relative to the reference component; a
// reference component that is zero everywhere contributes its absolute error.
func (f *FlowField) Compare(refU, refV *Grid, n Norm) float64 {
	if refU.Shape() != f.Shape() || refV.Shape() != f.Shape() {
		panic(fmt.Sprintf("mgflow: reference %v/%v does not match flow %v", refU.Shape(), refV.Shape(), f.Shape()))
	}
	return (componentError(f.U, refU, n) + componentError(f.V, refV, n)) / 2
}

func componentError(x, ref *Grid, n Norm) float64 {
	d := ref.Clone()
	d.Scale(-1)
	d.Add(x)
	e := d.Norm(n)
	if r := ref.Norm(n); r > 0 {
		e /= r
	}
	return e
}
