package mgflow

import "fmt"

// MinLevelSize is the smallest extent either axis of a pyramid level may have.
const MinLevelSize = 5

// Pyramid holds the derivatives of one frame pair at successively coarser
// resolutions. Level 0 is the finest; each further level is the restriction
// of the previous one. The last level is the coarsest grid that still has
// both axes >= MinLevelSize, and is where every cycle relaxes instead of
// recursing.
type Pyramid struct {
	levels []*Derivatives
}

// NewPyramid differentiates (a, b) and restricts until one more restriction
// would take an axis below MinLevelSize.
func NewPyramid(a, b *Grid) (*Pyramid, error) {
	current, err := NewDerivatives(a, b)
	if err != nil {
		return nil, err
	}
	p := &Pyramid{levels: []*Derivatives{current}}
	for current.Shape().Coarse().Min() >= MinLevelSize {
		current = current.Restrict()
		p.levels = append(p.levels, current)
	}
	return p, nil
}

// NewPyramidFromLevels wraps prebuilt levels, finest first. Each level must be
// the coarse shape of the one before it.
func NewPyramidFromLevels(levels ...*Derivatives) *Pyramid {
	if len(levels) == 0 {
		panic("mgflow: empty pyramid")
	}
	for i := 1; i < len(levels); i++ {
		if want := levels[i-1].Shape().Coarse(); levels[i].Shape() != want {
			panic(fmt.Sprintf("mgflow: pyramid level %d is %v, want %v", i, levels[i].Shape(), want))
		}
	}
	return &Pyramid{levels: levels}
}

// Len returns the number of levels.
func (p *Pyramid) Len() int { return len(p.levels) }

// Coarsest returns the index of the coarsest level.
func (p *Pyramid) Coarsest() int { return len(p.levels) - 1 }

// Level returns the derivatives at level i. An index outside the pyramid is
// a programming error.
func (p *Pyramid) Level(i int) *Derivatives {
	if i < 0 || i >= len(p.levels) {
		panic(fmt.Sprintf("mgflow: level %d outside pyramid of %d levels", i, len(p.levels)))
	}
	return p.levels[i]
}

// Shapes lists the level shapes, finest first.
func (p *Pyramid) Shapes() []Shape {
	out := make([]Shape, len(p.levels))
	for i, l := range p.levels {
		out[i] = l.Shape()
	}
	return out
}

// RightHandSide returns the forcing term of the Horn–Schunck normal equations
// at the finest level: (-Ix*It, -Iy*It).
func (p *Pyramid) RightHandSide() *FlowField {
	d := p.levels[0]
	u := d.X.Clone()
	u.MulElem(d.T)
	u.Scale(-1)
	v := d.Y.Clone()
	v.MulElem(d.T)
	v.Scale(-1)
	return &FlowField{U: u, V: v}
}
