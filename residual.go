package mgflow

// Residual returns the defect f - A(phi) of the discretized equations on the
// interior of the level; boundary cells are zero. phi is only read, so all
// interior rows are evaluated concurrently.
func (s *Solver) Residual(phi, f *FlowField, d *Derivatives) *FlowField {
	checkShapes(phi, f, d)
	sh := phi.Shape()
	res := NewFlowField(sh)
	if sh.Rows < 3 || sh.Cols < 3 {
		return res
	}
	k := newStencil(phi, f, d, s.weight(d))
	ru, _ := res.U.raw()
	rv, _ := res.V.raw()

	s.pool.ParallelFor(s.degree(sh), sh.Rows-2, func(start, end int) {
		for i := start + 1; i <= end; i++ {
			for j := 1; j < sh.Cols-1; j++ {
				c := i*sh.Cols + j
				ru[c], rv[c] = k.defect(c)
			}
		}
	})
	return res
}
