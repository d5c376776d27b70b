package mgflow

import (
	"fmt"

	"github.com/setanarut/mgflow/internal/workerpool"
)

// Solver owns the per-solve state of the multigrid engine: the derivative
// pyramid, the options and the worker pool shared by every smoother pass and
// residual evaluation. A Solver serves one solve at a time; the flow fields
// passed to it are mutated in place.
type Solver struct {
	pyr  *Pyramid
	opt  Options
	pool *workerpool.Pool
}

// NewSolver starts a worker pool of opt.Workers workers. Call Close when done.
func NewSolver(pyr *Pyramid, opt Options) *Solver {
	return &Solver{
		pyr:  pyr,
		opt:  opt,
		pool: workerpool.New(opt.Workers),
	}
}

func (s *Solver) Close() { s.pool.Close() }

func (s *Solver) Pyramid() *Pyramid { return s.pyr }

func (s *Solver) Options() Options { return s.opt }

// degree picks the fan-out for a row loop over a grid of shape sh. It is
// evaluated on every call, so the choice follows the level being worked on.
func (s *Solver) degree(sh Shape) int {
	if sh.Rows < s.opt.SmallGrid || sh.Cols < s.opt.SmallGrid {
		return 1
	}
	return s.pool.NumWorkers()
}

// weight returns the smoothness weight of the equations at d's level. With
// ScaleCoarseAlpha the weight follows the 1/h^2 of the discrete Laplacian, so
// a coarse level discretizes the same continuous problem as the finest one.
func (s *Solver) weight(d *Derivatives) float64 {
	if !s.opt.ScaleCoarseAlpha || d.Spacing <= 1 {
		return s.opt.Alpha
	}
	return s.opt.Alpha / (d.Spacing * d.Spacing)
}

// checkShapes panics unless phi, f and d describe the same level.
func checkShapes(phi, f *FlowField, d *Derivatives) {
	sh := d.Shape()
	if phi.U.Shape() != sh || phi.V.Shape() != sh || f.U.Shape() != sh || f.V.Shape() != sh {
		panic(fmt.Sprintf("mgflow: level shape %v, phi %v/%v, f %v/%v",
			sh, phi.U.Shape(), phi.V.Shape(), f.U.Shape(), f.V.Shape()))
	}
}

// stencil gathers the flat sample slices of one level. All grids of a level
// are allocated by this package and share stride == cols.
type stencil struct {
	u, v   []float64
	fu, fv []float64
	ix, iy []float64
	cols   int
	alpha  float64
}

func newStencil(phi, f *FlowField, d *Derivatives, alpha float64) *stencil {
	k := &stencil{cols: phi.Shape().Cols, alpha: alpha}
	k.u, _ = phi.U.raw()
	k.v, _ = phi.V.raw()
	k.fu, _ = f.U.raw()
	k.fv, _ = f.V.raw()
	k.ix, _ = d.X.raw()
	k.iy, _ = d.Y.raw()
	return k
}

func (k *stencil) neighbours(x []float64, c int) float64 {
	return x[c-k.cols] + x[c+k.cols] + x[c-1] + x[c+1]
}

// relaxU solves the u equation at flat index c for u, holding the rest fixed.
func (k *stencil) relaxU(c int) {
	ix, iy := k.ix[c], k.iy[c]
	k.u[c] = (k.fu[c] + k.alpha*k.neighbours(k.u, c) - ix*iy*k.v[c]) / (ix*ix + 4*k.alpha)
}

func (k *stencil) relaxV(c int) {
	ix, iy := k.ix[c], k.iy[c]
	k.v[c] = (k.fv[c] + k.alpha*k.neighbours(k.v, c) - ix*iy*k.u[c]) / (iy*iy + 4*k.alpha)
}

// defect returns the residual of both equations at flat index c.
func (k *stencil) defect(c int) (ru, rv float64) {
	ix, iy := k.ix[c], k.iy[c]
	ru = k.fu[c] - (ix*ix+4*k.alpha)*k.u[c] + k.alpha*k.neighbours(k.u, c) - ix*iy*k.v[c]
	rv = k.fv[c] - (iy*iy+4*k.alpha)*k.v[c] + k.alpha*k.neighbours(k.v, c) - ix*iy*k.u[c]
	return ru, rv
}
