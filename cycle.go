package mgflow

import (
	"errors"
	"fmt"
	"strings"
)

// CycleKind selects the multigrid recursion pattern.
type CycleKind int

const (
	VCycle CycleKind = iota
	FCycle
	WCycle
)

var ErrUnknownCycle = errors.New("mgflow: unknown cycle kind")

func (k CycleKind) String() string {
	switch k {
	case VCycle:
		return "v"
	case FCycle:
		return "f"
	case WCycle:
		return "w"
	default:
		return fmt.Sprintf("CycleKind(%d)", int(k))
	}
}

// ParseCycleKind accepts "v", "f", "w", optionally suffixed with "-cycle"
// or "cycle", in any case.
func ParseCycleKind(s string) (CycleKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimSuffix(strings.TrimSuffix(name, "cycle"), "-")
	switch name {
	case "v":
		return VCycle, nil
	case "f":
		return FCycle, nil
	case "w":
		return WCycle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCycle, s)
}

// Cycle runs one cycle of the given kind on level, improving phi in place
// towards the solution of A(phi) = f.
func (s *Solver) Cycle(kind CycleKind, phi, f *FlowField, level int) {
	switch kind {
	case VCycle:
		s.VCycle(phi, f, level)
	case FCycle:
		s.FCycle(phi, f, level)
	case WCycle:
		s.WCycle(phi, f, level)
	default:
		panic(fmt.Sprintf("mgflow: %v", kind))
	}
}

// VCycle: pre-smooth, coarse correction by one V recursion, post-smooth.
func (s *Solver) VCycle(phi, f *FlowField, level int) {
	if s.atCoarsest(phi, f, level) {
		return
	}
	d := s.pyr.Level(level)

	s.smooth(phi, f, d, s.opt.PreSmoothing)
	s.correct(VCycle, phi, f, level)
	s.smooth(phi, f, d, s.opt.PostSmoothing)
}

// FCycle corrects twice between smoothings: first through an F recursion,
// then, on a freshly computed residual, through a V recursion.
func (s *Solver) FCycle(phi, f *FlowField, level int) {
	s.twoRounds(FCycle, VCycle, phi, f, level)
}

// WCycle corrects twice between smoothings, both times through a W
// recursion.
func (s *Solver) WCycle(phi, f *FlowField, level int) {
	s.twoRounds(WCycle, WCycle, phi, f, level)
}

func (s *Solver) twoRounds(first, second CycleKind, phi, f *FlowField, level int) {
	if s.atCoarsest(phi, f, level) {
		return
	}
	d := s.pyr.Level(level)

	s.smooth(phi, f, d, s.opt.PreSmoothing)
	s.correct(first, phi, f, level)
	s.smooth(phi, f, d, s.opt.PostSmoothing)
	s.correct(second, phi, f, level)
	s.smooth(phi, f, d, s.opt.PostSmoothing)
}

// atCoarsest relaxes phi directly when level has no coarser level below it.
func (s *Solver) atCoarsest(phi, f *FlowField, level int) bool {
	if level < s.pyr.Coarsest() {
		return false
	}
	s.smooth(phi, f, s.pyr.Level(level), s.opt.CoarsestSmoothing)
	return true
}

// correct restricts the residual of phi to level+1, solves for the error
// there starting from zero, and adds the prolongated error into phi.
func (s *Solver) correct(kind CycleKind, phi, f *FlowField, level int) {
	r := s.Residual(phi, f, s.pyr.Level(level))
	r.Restrict()
	eps := newCorrection(r.Shape(), phi.Shape())

	// The coarsest level is relaxed, never recursed into: checked here,
	// before the recursive call.
	if level+1 >= s.pyr.Coarsest() {
		s.smooth(eps, r, s.pyr.Level(level+1), s.opt.CoarsestSmoothing)
	} else {
		s.Cycle(kind, eps, r, level+1)
	}

	phi.Add(eps.Prolongate())
}
