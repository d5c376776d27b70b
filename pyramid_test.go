package mgflow

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPyramidLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		frame Shape
		want  []Shape
	}{
		{"65x65", Shape{65, 65}, []Shape{{64, 64}, {32, 32}, {16, 16}, {8, 8}}},
		{"33x33", Shape{33, 33}, []Shape{{32, 32}, {16, 16}, {8, 8}}},
		{"non-square", Shape{40, 100}, []Shape{{39, 99}, {20, 50}, {10, 25}, {5, 13}}},
		{"odd", Shape{20, 20}, []Shape{{19, 19}, {10, 10}, {5, 5}}},
		{"tiny", Shape{6, 6}, []Shape{{5, 5}}},
		{"below floor", Shape{3, 30}, []Shape{{2, 29}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := NewGrid(tc.frame.Rows, tc.frame.Cols, 0.5)
			p, err := NewPyramid(a, a.Clone())
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, p.Shapes()); diff != "" {
				t.Errorf("level shapes mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(tc.want), p.Len())
			assert.Equal(t, len(tc.want)-1, p.Coarsest())
		})
	}
}

func TestPyramidCoarsestLevelSize(t *testing.T) {
	t.Parallel()

	a := NewGrid(65, 65, 0)
	p, err := NewPyramid(a, a.Clone())
	require.NoError(t, err)

	coarsest := p.Level(p.Coarsest()).Shape()
	assert.GreaterOrEqual(t, coarsest.Min(), MinLevelSize)
	assert.LessOrEqual(t, coarsest.Min(), 9)
	assert.Less(t, coarsest.Coarse().Min(), MinLevelSize)
	assert.Equal(t, int(math.Ceil(math.Log2(65.0/5))), p.Len())

	for i := 1; i < p.Len(); i++ {
		assert.Equal(t, p.Level(i-1).Shape().Coarse(), p.Level(i).Shape())
		assert.Equal(t, 2*p.Level(i-1).Spacing, p.Level(i).Spacing)
	}
}

func TestPyramidLevelOutOfRange(t *testing.T) {
	t.Parallel()

	a := NewGrid(17, 17, 0)
	p, err := NewPyramid(a, a.Clone())
	require.NoError(t, err)
	assert.Panics(t, func() { p.Level(p.Len()) })
	assert.Panics(t, func() { p.Level(-1) })
}

func TestPyramidPropagatesFrameErrors(t *testing.T) {
	t.Parallel()

	_, err := NewPyramid(NewGrid(8, 8, 0), NewGrid(8, 9, 0))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNewPyramidFromLevels(t *testing.T) {
	t.Parallel()

	fine := NewDerivativesFromGrids(NewGrid(10, 10, 1), NewGrid(10, 10, 0), NewGrid(10, 10, 0))
	p := NewPyramidFromLevels(fine, fine.Restrict())
	assert.Equal(t, 2, p.Len())

	assert.Panics(t, func() { NewPyramidFromLevels() })
	assert.Panics(t, func() { NewPyramidFromLevels(fine, fine) })
}

func TestRightHandSide(t *testing.T) {
	t.Parallel()

	a, b := shiftedRamp(9, 9, 2, 0.5)
	p, err := NewPyramid(a, b)
	require.NoError(t, err)

	f := p.RightHandSide()
	require.Equal(t, p.Level(0).Shape(), f.Shape())
	// -Ix*It = -(2)(-1)
	assert.InDelta(t, 0, maxAbsDiff(f.U, NewGrid(8, 8, 2), 0, math.MaxInt), 1e-12)
	assert.Zero(t, f.V.LInfNorm())
}
