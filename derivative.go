package mgflow

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var (
	ErrShapeMismatch = errors.New("mgflow: frame shapes differ")
	ErrFrameTooSmall = errors.New("mgflow: frame smaller than 2x2")
)

// Derivatives holds the spatial (X along columns, Y along rows) and temporal
// image derivatives of a frame pair. The three grids share one shape, one
// sample smaller per axis than the frames: each derivative lives on the
// 2x2 cell between four pixels.
type Derivatives struct {
	X, Y, T *Grid
	// Spacing is the sample distance in finest-level pixels: 1 at the finest
	// level, doubled by every Restrict.
	Spacing float64
}

// NewDerivatives differentiates the frame pair (a, b), b being the later frame.
func NewDerivatives(a, b *Grid) (*Derivatives, error) {
	if a.Shape() != b.Shape() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape(), b.Shape())
	}
	if a.Rows() < 2 || a.Cols() < 2 {
		return nil, fmt.Errorf("%w: %v", ErrFrameTooSmall, a.Shape())
	}

	rows, cols := a.Rows()-1, a.Cols()-1
	d := &Derivatives{
		X: NewGrid(rows, cols, 0),
		Y: NewGrid(rows, cols, 0),
		T: NewGrid(rows, cols, 0),

		Spacing: 1,
	}

	pa, sa := a.raw()
	pb, sb := b.raw()

	// Each output sample depends only on the 2x2 neighbourhood of (i, j) in
	// both frames. The kernels differ only in how they combine the corners.
	type corners struct{ tl, tr, bl, br float64 }
	at := func(p []float64, s, i, j int) corners {
		return corners{p[i*s+j], p[i*s+j+1], p[(i+1)*s+j], p[(i+1)*s+j+1]}
	}
	fill := func(dst *Grid, kernel func(ca, cb corners) float64) func() error {
		return func() error {
			out, so := dst.raw()
			for i := range rows {
				for j := range cols {
					out[i*so+j] = kernel(at(pa, sa, i, j), at(pb, sb, i, j))
				}
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(fill(d.X, func(ca, cb corners) float64 {
		left := ca.tr - ca.tl + ca.br - ca.bl
		right := cb.tr - cb.tl + cb.br - cb.bl
		return 0.25 * (left + right)
	}))
	g.Go(fill(d.Y, func(ca, cb corners) float64 {
		left := ca.bl - ca.tl + ca.br - ca.tr
		right := cb.bl - cb.tl + cb.br - cb.tr
		return 0.25 * (left + right)
	}))
	g.Go(fill(d.T, func(ca, cb corners) float64 {
		left := ca.tl + ca.tr + ca.bl + ca.br
		right := cb.tl + cb.tr + cb.bl + cb.br
		return 0.25 * (right - left)
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDerivativesFromGrids assembles precomputed derivative grids.
func NewDerivativesFromGrids(x, y, t *Grid) *Derivatives {
	if x.Shape() != y.Shape() || x.Shape() != t.Shape() {
		panic(fmt.Sprintf("mgflow: derivative shapes %v, %v, %v differ", x.Shape(), y.Shape(), t.Shape()))
	}
	return &Derivatives{X: x, Y: y, T: t, Spacing: 1}
}

func (d *Derivatives) Shape() Shape { return d.X.Shape() }

// Restrict coarsens the three grids independently. The derivatives are not
// recomputed from coarsened frames.
func (d *Derivatives) Restrict() *Derivatives {
	return &Derivatives{
		X: d.X.Restrict(),
		Y: d.Y.Restrict(),
		T: d.T.Restrict(),

		Spacing: 2 * d.Spacing,
	}
}
