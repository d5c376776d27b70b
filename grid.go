package mgflow

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Shape is the row/column extent of a grid.
type Shape struct {
	Rows, Cols int
}

// Coarse returns the shape one restriction below s. Odd extents round up so
// that every fine sample belongs to exactly one coarse cell.
func (s Shape) Coarse() Shape {
	return Shape{Rows: (s.Rows + 1) / 2, Cols: (s.Cols + 1) / 2}
}

// Fine returns the default prolongation target of a grid that has no
// remembered fine shape.
func (s Shape) Fine() Shape {
	return Shape{Rows: 2 * s.Rows, Cols: 2 * s.Cols}
}

// Min returns the smaller axis.
func (s Shape) Min() int { return min(s.Rows, s.Cols) }

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Norm selects the grid norm used by comparisons.
type Norm int

const (
	NormL2 Norm = iota
	NormLInf
)

func (n Norm) String() string {
	switch n {
	case NormLInf:
		return "Linf"
	default:
		return "L2"
	}
}

// Grid is a dense rows x cols array of float64 samples backed by a
// gonum matrix. A grid produced by Restrict (or allocated as a coarse-level
// correction) remembers the fine shape it came from, which is where
// Prolongate sends it back to.
type Grid struct {
	data   *mat.Dense
	target Shape
}

// NewGrid allocates a rows x cols grid with every sample set to fill.
func NewGrid(rows, cols int, fill float64) *Grid {
	g := &Grid{data: mat.NewDense(rows, cols, nil)}
	if fill != 0 {
		g.AddScalar(fill)
	}
	return g
}

// NewGridFromData wraps row-major data. len(data) must be rows*cols.
func NewGridFromData(rows, cols int, data []float64) *Grid {
	return &Grid{data: mat.NewDense(rows, cols, data)}
}

func newCoarseGrid(coarse, fine Shape, fill float64) *Grid {
	g := NewGrid(coarse.Rows, coarse.Cols, fill)
	g.target = fine
	return g
}

func (g *Grid) Rows() int {
	r, _ := g.data.Dims()
	return r
}

func (g *Grid) Cols() int {
	_, c := g.data.Dims()
	return c
}

func (g *Grid) Shape() Shape {
	r, c := g.data.Dims()
	return Shape{Rows: r, Cols: c}
}

// Target returns the shape Prolongate produces.
func (g *Grid) Target() Shape {
	if g.target.Rows == 0 || g.target.Cols == 0 {
		return g.Shape().Fine()
	}
	return g.target
}

func (g *Grid) At(i, j int) float64 { return g.data.At(i, j) }

func (g *Grid) Set(i, j int, v float64) { g.data.Set(i, j, v) }

// Dense exposes the backing matrix. Writes through it are visible in g.
func (g *Grid) Dense() *mat.Dense { return g.data }

func (g *Grid) Clone() *Grid {
	return &Grid{data: mat.DenseCopyOf(g.data), target: g.target}
}

// Resize returns a grid of shape s holding the overlapping top-left window
// of g. Cells outside g are zero.
func (g *Grid) Resize(s Shape) *Grid {
	out := NewGrid(s.Rows, s.Cols, 0)
	out.data.Copy(g.data)
	return out
}

// raw returns the backing row-major slice and its stride for the hot loops.
func (g *Grid) raw() ([]float64, int) {
	rm := g.data.RawMatrix()
	return rm.Data, rm.Stride
}

// Add adds o into g elementwise. Shapes must match.
func (g *Grid) Add(o *Grid) {
	g.data.Add(g.data, o.data)
}

// MulElem multiplies g by o elementwise. Shapes must match.
func (g *Grid) MulElem(o *Grid) {
	g.data.MulElem(g.data, o.data)
}

func (g *Grid) Scale(s float64) {
	g.data.Scale(s, g.data)
}

func (g *Grid) AddScalar(s float64) {
	for i := range g.Rows() {
		floats.AddConst(s, g.data.RawRowView(i))
	}
}

// L2Norm returns the Frobenius norm of the samples.
func (g *Grid) L2Norm() float64 {
	return mat.Norm(g.data, 2)
}

// LInfNorm returns the largest absolute sample.
func (g *Grid) LInfNorm() float64 {
	var m float64
	for i := range g.Rows() {
		m = max(m, floats.Norm(g.data.RawRowView(i), math.Inf(1)))
	}
	return m
}

func (g *Grid) Norm(n Norm) float64 {
	if n == NormLInf {
		return g.LInfNorm()
	}
	return g.L2Norm()
}

// Restrict averages 2x2 blocks into a grid of shape g.Shape().Coarse().
// Blocks cut by an odd edge average the samples they cover, so a constant
// grid restricts to the same constant. The result remembers g's shape.
func (g *Grid) Restrict() *Grid {
	fine := g.Shape()
	coarse := fine.Coarse()
	out := newCoarseGrid(coarse, fine, 0)

	src, ss := g.raw()
	dst, ds := out.raw()
	for ci := range coarse.Rows {
		i0, i1 := 2*ci, min(2*ci+2, fine.Rows)
		for cj := range coarse.Cols {
			j0, j1 := 2*cj, min(2*cj+2, fine.Cols)
			var sum float64
			for i := i0; i < i1; i++ {
				for j := j0; j < j1; j++ {
					sum += src[i*ss+j]
				}
			}
			dst[ci*ds+cj] = sum / float64((i1-i0)*(j1-j0))
		}
	}
	return out
}

// Prolongate interpolates g back to Target().
func (g *Grid) Prolongate() *Grid {
	return g.ProlongateTo(g.Target())
}

// ProlongateTo interpolates g onto fine, which must restrict to g's shape.
// Values are linear between the centres of the coarse blocks and constant
// beyond the outermost centres: constants and (away from the edges) linear
// fields are reproduced exactly.
func (g *Grid) ProlongateTo(fine Shape) *Grid {
	coarse := g.Shape()
	if fine.Coarse() != coarse {
		panic(fmt.Sprintf("mgflow: cannot prolongate %v to %v", coarse, fine))
	}
	rows := interpolation(coarse.Rows, fine.Rows)
	cols := interpolation(coarse.Cols, fine.Cols)

	out := NewGrid(fine.Rows, fine.Cols, 0)
	src, ss := g.raw()
	dst, ds := out.raw()
	for i, r := range rows {
		lo, hi := src[r.lo*ss:], src[r.hi*ss:]
		for j, c := range cols {
			top := (1-c.w)*lo[c.lo] + c.w*lo[c.hi]
			bottom := (1-c.w)*hi[c.lo] + c.w*hi[c.hi]
			dst[i*ds+j] = (1-r.w)*top + r.w*bottom
		}
	}
	return out
}

// lerp is a 1-D interpolation stencil: (1-w)*x[lo] + w*x[hi].
type lerp struct {
	lo, hi int
	w      float64
}

// blockCentre is the mean fine index of the samples averaged into coarse
// cell k by Restrict.
func blockCentre(k, fine int) float64 {
	lo, hi := 2*k, min(2*k+2, fine)
	return float64(lo+hi-1) / 2
}

func interpolation(coarse, fine int) []lerp {
	out := make([]lerp, fine)
	k := 0
	for i := range fine {
		x := float64(i)
		for k+1 < coarse && blockCentre(k+1, fine) <= x {
			k++
		}
		c0 := blockCentre(k, fine)
		if x <= c0 || k+1 >= coarse {
			out[i] = lerp{lo: k, hi: k}
			continue
		}
		c1 := blockCentre(k+1, fine)
		out[i] = lerp{lo: k, hi: k + 1, w: (x - c0) / (c1 - c0)}
	}
	return out
}
