package cell

import (
	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/function"
)

// coeffSet adapts the function manager to ele.Coefficients for one
// quadrature point, resolving each name lazily against whichever
// registration kind (space-time or solution-dependent) was used.
type coeffSet struct {
	mgr   *function.Manager
	loc   function.Location
	block int
	t     float64
	x     []float64
	width int
	u     ad.Value
	gradU []ad.Value
}

func (c coeffSet) Get(name string) (ad.Value, bool) {
	if !c.mgr.Has(name, c.loc, c.block) {
		return ad.Value{}, false
	}
	v, err := c.mgr.Evaluate(name, c.loc, c.block, c.t, c.x, c.width, c.u, c.gradU)
	if err != nil {
		return ad.Value{}, false
	}
	return v, true
}
