package mgflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowFieldMagnitude(t *testing.T) {
	t.Parallel()

	f := &FlowField{U: NewGrid(2, 2, 3), V: NewGrid(2, 2, -4)}
	m := f.Magnitude()
	assert.InDelta(t, 0, maxAbsDiff(m, NewGrid(2, 2, 5), 0, math.MaxInt), 1e-12)
}

func TestFlowFieldNormalize(t *testing.T) {
	t.Parallel()

	t.Run("divides by magnitude spread", func(t *testing.T) {
		f := &FlowField{
			U: NewGridFromData(2, 2, []float64{0, 3, 6, 0}),
			V: NewGrid(2, 2, 0),
		}
		f.Normalize()
		assert.InDelta(t, 0.5, f.U.At(0, 1), 1e-12)
		assert.InDelta(t, 1.0, f.U.At(1, 0), 1e-12)
		assert.Zero(t, f.U.At(0, 0))
	})

	t.Run("uniform magnitude is untouched", func(t *testing.T) {
		f := &FlowField{U: NewGrid(3, 3, 0.6), V: NewGrid(3, 3, 0.8)}
		f.Normalize()
		assert.Equal(t, 0.6, f.U.At(1, 1))
		assert.Equal(t, 0.8, f.V.At(2, 0))

		zero := NewFlowField(Shape{4, 4})
		zero.Normalize()
		assert.Zero(t, zero.U.LInfNorm())
	})

	t.Run("mixed signs keep direction", func(t *testing.T) {
		f := &FlowField{
			U: NewGridFromData(1, 3, []float64{-2, 0, 1}),
			V: NewGridFromData(1, 3, []float64{0, 0, 0}),
		}
		f.Normalize()
		assert.InDelta(t, -1.0, f.U.At(0, 0), 1e-12)
		assert.InDelta(t, 0.5, f.U.At(0, 2), 1e-12)
	})
}

func TestFlowFieldCompare(t *testing.T) {
	t.Parallel()

	refU := gridOf(6, 6, func(i, j int) float64 { return 1 + float64(i+j) })
	refV := gridOf(6, 6, func(i, j int) float64 { return float64(i) - 2.5 })

	f := &FlowField{U: refU.Clone(), V: refV.Clone()}
	assert.InDelta(t, 0, f.Compare(refU, refV, NormL2), 1e-15)

	f.U.Scale(1.1)
	assert.InDelta(t, 0.05, f.Compare(refU, refV, NormL2), 1e-12)
	assert.InDelta(t, 0.05, f.Compare(refU, refV, NormLInf), 1e-12)

	assert.Panics(t, func() { f.Compare(NewGrid(5, 6, 1), refV, NormL2) })
}

func TestFlowFieldCompareZeroReference(t *testing.T) {
	t.Parallel()

	refU := gridOf(6, 6, func(i, j int) float64 { return 1 + float64(i+j) })
	still := NewGrid(6, 6, 0)
	f := &FlowField{U: refU.Clone(), V: NewGrid(6, 6, 0.3)}

	l2 := f.Compare(refU, still, NormL2)
	assert.False(t, math.IsNaN(l2))
	assert.InDelta(t, 0.3*6/2, l2, 1e-12)
	assert.InDelta(t, 0.3/2, f.Compare(refU, still, NormLInf), 1e-12)

	f.V = NewGrid(6, 6, 0)
	assert.Zero(t, f.Compare(refU, still, NormL2))
}

func TestFlowFieldResize(t *testing.T) {
	t.Parallel()

	f := &FlowField{
		U: gridOf(3, 4, func(i, j int) float64 { return float64(10*i + j) }),
		V: NewGrid(3, 4, -1),
	}
	padded := f.Resize(Shape{4, 5})
	assert.Equal(t, Shape{4, 5}, padded.Shape())
	assert.Equal(t, 23.0, padded.U.At(2, 3))
	assert.Equal(t, -1.0, padded.V.At(2, 3))
	for j := range 5 {
		assert.Zero(t, padded.U.At(3, j))
		assert.Zero(t, padded.V.At(3, j))
	}
	for i := range 4 {
		assert.Zero(t, padded.V.At(i, 4))
	}

	cropped := padded.Resize(Shape{2, 2})
	assert.Equal(t, Shape{2, 2}, cropped.Shape())
	assert.Equal(t, 11.0, cropped.U.At(1, 1))

	cropped.U.Set(0, 0, 99)
	assert.Zero(t, f.U.At(0, 0), "resize copies")
}

func TestFlowFieldTransfers(t *testing.T) {
	t.Parallel()

	f := &FlowField{U: NewGrid(9, 7, 1), V: NewGrid(9, 7, -1)}
	f.Restrict()
	require.Equal(t, Shape{5, 4}, f.Shape())
	assert.Equal(t, Shape{9, 7}, f.V.Target())

	p := f.Prolongate()
	require.Equal(t, Shape{9, 7}, p.Shape())
	assert.InDelta(t, -1.0, p.V.At(4, 3), 1e-12)

	p.Add(p.Clone())
	assert.InDelta(t, 2.0, p.U.At(8, 6), 1e-12)
	assert.InDelta(t, 2*math.Sqrt(9*7), p.ResidualNorm()/2, 1e-9)
}

func TestNewCorrectionProlongatesToFineShape(t *testing.T) {
	t.Parallel()

	eps := newCorrection(Shape{9, 5}, Shape{17, 9})
	assert.Zero(t, eps.U.LInfNorm())
	assert.Equal(t, Shape{17, 9}, eps.Prolongate().Shape())
}
