package mgflow

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCycleKind(t *testing.T) {
	t.Parallel()

	cases := map[string]CycleKind{
		"v":       VCycle,
		"V":       VCycle,
		"f":       FCycle,
		"F-Cycle": FCycle,
		"wcycle":  WCycle,
		" w ":     WCycle,
	}
	for in, want := range cases {
		got, err := ParseCycleKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "x", "vw", "cycle"} {
		_, err := ParseCycleKind(bad)
		assert.ErrorIs(t, err, ErrUnknownCycle, bad)
	}

	for _, k := range []CycleKind{VCycle, FCycle, WCycle} {
		back, err := ParseCycleKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
	assert.Equal(t, "CycleKind(7)", CycleKind(7).String())
}

func TestEachCycleReducesResidual(t *testing.T) {
	t.Parallel()

	a, b := wavyFrames(65, 65)
	pyr, err := NewPyramid(a, b)
	require.NoError(t, err)
	require.Equal(t, 4, pyr.Len())

	for _, kind := range []CycleKind{VCycle, FCycle, WCycle} {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			s := newTestSolver(t, pyr, testOptions())
			fine := pyr.Level(0)
			f := pyr.RightHandSide()
			phi := NewFlowField(fine.Shape())

			prev := s.Residual(phi, f, fine).ResidualNorm()
			require.Positive(t, prev)
			for round := range 3 {
				s.Cycle(kind, phi, f, 0)
				norm := s.Residual(phi, f, fine).ResidualNorm()
				assert.Less(t, norm, prev, "round %d", round)
				prev = norm
			}
		})
	}
}

func TestCyclesAgreeOnSolution(t *testing.T) {
	t.Parallel()

	a, b := wavyFrames(33, 33)
	opt := testOptions()
	opt.Tolerance = 1e-6
	opt.MaxIterations = 200

	flows := make(map[CycleKind]*FlowField)
	for _, kind := range []CycleKind{VCycle, FCycle, WCycle} {
		opt.Cycle = kind
		res, err := Solve(context.Background(), a, b, opt)
		require.NoError(t, err)
		require.True(t, res.Converged, "%v-cycle final residual %g", kind, res.FinalResidual())
		flows[kind] = res.Flow
	}

	for _, kind := range []CycleKind{FCycle, WCycle} {
		assert.InDelta(t, 0, maxAbsDiff(flows[VCycle].U, flows[kind].U, 0, math.MaxInt), 1e-3, "%v vs v", kind)
		assert.InDelta(t, 0, maxAbsDiff(flows[VCycle].V, flows[kind].V, 0, math.MaxInt), 1e-3, "%v vs v", kind)
	}
}

func TestCycleAtCoarsestLevelRelaxes(t *testing.T) {
	t.Parallel()

	a, b := wavyFrames(12, 12)
	pyr, err := NewPyramid(a, b)
	require.NoError(t, err)
	require.Equal(t, 2, pyr.Len())

	coarsest := pyr.Coarsest()
	d := pyr.Level(coarsest)
	f := &FlowField{U: NewGrid(6, 6, 1), V: NewGrid(6, 6, -1)}

	opt := testOptions()
	s := newTestSolver(t, pyr, opt)

	relaxed := NewFlowField(d.Shape())
	s.smooth(relaxed, f, d, opt.CoarsestSmoothing)

	for _, kind := range []CycleKind{VCycle, FCycle, WCycle} {
		phi := NewFlowField(d.Shape())
		s.Cycle(kind, phi, f, coarsest)
		assert.Zero(t, maxAbsDiff(phi.U, relaxed.U, 0, math.MaxInt), kind.String())
		assert.Zero(t, maxAbsDiff(phi.V, relaxed.V, 0, math.MaxInt), kind.String())
	}
}

func TestSingleLevelPyramidCycles(t *testing.T) {
	t.Parallel()

	a, b := wavyFrames(7, 9)
	pyr, err := NewPyramid(a, b)
	require.NoError(t, err)
	require.Equal(t, 1, pyr.Len())

	s := newTestSolver(t, pyr, testOptions())
	d := pyr.Level(0)
	f := pyr.RightHandSide()
	phi := NewFlowField(d.Shape())
	before := s.Residual(phi, f, d).ResidualNorm()
	s.Cycle(WCycle, phi, f, 0)
	assert.Less(t, s.Residual(phi, f, d).ResidualNorm(), before)
}

func TestCycleRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	a, b := wavyFrames(12, 12)
	pyr, err := NewPyramid(a, b)
	require.NoError(t, err)
	s := newTestSolver(t, pyr, testOptions())
	assert.Panics(t, func() {
		s.Cycle(CycleKind(9), NewFlowField(pyr.Level(0).Shape()), pyr.RightHandSide(), 0)
	})
}
