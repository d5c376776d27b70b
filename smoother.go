package mgflow

// Smooth performs one red-black Gauss-Seidel sweep of the Horn–Schunck
// equations on the interior of phi, in four synchronized passes: u on each
// colour, then v on each colour. Within a pass every updated cell only reads
// cells of the other colour, so the rows of a pass are split across the pool.
// Boundary cells are never written.
func (s *Solver) Smooth(phi, f *FlowField, d *Derivatives) {
	checkShapes(phi, f, d)
	sh := phi.Shape()
	if sh.Rows < 3 || sh.Cols < 3 {
		return
	}
	k := newStencil(phi, f, d, s.weight(d))
	workers := s.degree(sh)

	for _, relax := range []func(int){k.relaxU, k.relaxV} {
		for colour := range 2 {
			s.pool.ParallelFor(workers, sh.Rows-2, func(start, end int) {
				for i := start + 1; i <= end; i++ {
					row := i * sh.Cols
					for j := 1 + (i+colour)%2; j < sh.Cols-1; j += 2 {
						relax(row + j)
					}
				}
			})
		}
	}
}

// GaussSeidel performs one lexicographic Gauss-Seidel sweep, updating u and
// v cell by cell. It runs on the calling goroutine: the sweep order is a
// data dependency.
func (s *Solver) GaussSeidel(phi, f *FlowField, d *Derivatives) {
	checkShapes(phi, f, d)
	sh := phi.Shape()
	k := newStencil(phi, f, d, s.weight(d))
	for i := 1; i < sh.Rows-1; i++ {
		for j := 1; j < sh.Cols-1; j++ {
			c := i*sh.Cols + j
			k.relaxU(c)
			k.relaxV(c)
		}
	}
}

// smooth runs n red-black sweeps.
func (s *Solver) smooth(phi, f *FlowField, d *Derivatives, n int) {
	for range n {
		s.Smooth(phi, f, d)
	}
}
