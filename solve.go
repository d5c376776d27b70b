// Package mgflow estimates dense optical flow between two grayscale frames by
// solving the Horn–Schunck equations with a geometric multigrid solver
// (red-black Gauss-Seidel smoothing, V/F/W cycles over a derivative pyramid).
package mgflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// baselineCheckInterval is how many lexicographic sweeps SolveGaussSeidel runs
// between residual evaluations.
const baselineCheckInterval = 100

// Result is the outcome of an outer convergence loop.
type Result struct {
	// RunID tags the log lines and exported artefacts of one solve.
	RunID string
	Flow  *FlowField
	// Iterations counts top-level cycles (or sweeps for SolveGaussSeidel).
	Iterations int
	// Residuals[0] is the residual norm of the zero initial guess; each
	// further entry follows one evaluation of the loop.
	Residuals []float64
	Converged bool
	Levels    []Shape
	Elapsed   time.Duration
}

// FinalResidual returns the last recorded residual norm.
func (r *Result) FinalResidual() float64 {
	if len(r.Residuals) == 0 {
		return 0
	}
	return r.Residuals[len(r.Residuals)-1]
}

// Solve estimates the optical flow from frame a to frame b. It runs
// opt.Cycle at the finest level until the residual norm falls below
// opt.Tolerance or opt.MaxIterations cycles have run. Stopping at the cap is
// not an error; Result.Converged reports which limit ended the loop.
//
// ctx is checked between cycles. On cancellation the partial result is
// returned together with the context error.
func Solve(ctx context.Context, a, b *Grid, opt Options) (*Result, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	pyr, err := NewPyramid(a, b)
	if err != nil {
		return nil, err
	}
	s := NewSolver(pyr, opt)
	defer s.Close()

	res := &Result{RunID: uuid.NewString(), Levels: pyr.Shapes()}
	Logf("[%s] %v-cycle solve, alpha=%g, levels=%v", res.RunID, opt.Cycle, opt.Alpha, res.Levels)

	fine := pyr.Level(0)
	phi := NewFlowField(fine.Shape())
	f := pyr.RightHandSide()
	res.Flow = phi

	norm := s.Residual(phi, f, fine).ResidualNorm()
	res.Residuals = append(res.Residuals, norm)
	for norm >= opt.Tolerance && res.Iterations < opt.MaxIterations {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("solve %s interrupted after %d cycles: %w", res.RunID, res.Iterations, err)
		}
		s.Cycle(opt.Cycle, phi, f, 0)
		res.Iterations++

		norm = s.Residual(phi, f, fine).ResidualNorm()
		res.Residuals = append(res.Residuals, norm)
		Logf("[%s] iteration %d residual norm: %g", res.RunID, res.Iterations, norm)
	}
	res.Converged = norm < opt.Tolerance
	res.Elapsed = time.Since(start)
	Logf("[%s] done: converged=%t iterations=%d residual=%g in %v",
		res.RunID, res.Converged, res.Iterations, norm, res.Elapsed)
	return res, nil
}

// SolveGaussSeidel is the single-grid baseline: lexicographic Gauss-Seidel
// sweeps at the finest level, with the residual checked every 100 sweeps.
// opt.MaxIterations caps the number of sweeps; opt.Cycle is ignored.
func SolveGaussSeidel(ctx context.Context, a, b *Grid, opt Options) (*Result, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	d, err := NewDerivatives(a, b)
	if err != nil {
		return nil, err
	}
	pyr := NewPyramidFromLevels(d)
	s := NewSolver(pyr, opt)
	defer s.Close()

	res := &Result{RunID: uuid.NewString(), Levels: pyr.Shapes()}
	Logf("[%s] Gauss-Seidel baseline, alpha=%g, grid=%v", res.RunID, opt.Alpha, d.Shape())

	phi := NewFlowField(d.Shape())
	f := pyr.RightHandSide()
	res.Flow = phi

	norm := s.Residual(phi, f, d).ResidualNorm()
	res.Residuals = append(res.Residuals, norm)
	for norm >= opt.Tolerance && res.Iterations < opt.MaxIterations {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("baseline %s interrupted after %d sweeps: %w", res.RunID, res.Iterations, err)
		}
		s.GaussSeidel(phi, f, d)
		res.Iterations++
		if res.Iterations%baselineCheckInterval != 0 && res.Iterations < opt.MaxIterations {
			continue
		}
		norm = s.Residual(phi, f, d).ResidualNorm()
		res.Residuals = append(res.Residuals, norm)
		Logf("[%s] sweep %d residual norm: %g", res.RunID, res.Iterations, norm)
	}
	res.Converged = norm < opt.Tolerance
	res.Elapsed = time.Since(start)
	return res, nil
}
