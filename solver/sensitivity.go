// Sensitivity assembly implements the two pathways of spec.md §4.6,
// sharing the forward Newton linear algebra: scalar (active) parameters
// take two extra assembly passes each (a central difference), discretized
// (field) parameters take two extra passes per field dof. Both
// perturb-and-reassemble rather than
// AD-seed a second derivative slot, since the coefficient functions a
// physics module reads (function.Manager's SolutionFn closures) carry
// plain float64 parameter values rather than ad.Value — see DESIGN.md's
// "scalar/discretized sensitivity" entry for the grounding of that
// choice.
package solver

import (
	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/param"
)

// ScalarSensitivityStep computes, for a single time step's converged
// state u and adjoint phi (both ghosted), the gradient contribution
// -phi^T * (dR/dtheta_p) for every active parameter in pm, via a central
// finite difference on the assembled residual with that parameter's
// value perturbed by h (relative, floored at a small absolute step).
// Callers sum this over every time step to get the full transient
// gradient, per spec.md §4.6.
func ScalarSensitivityStep(mgr *assembly.Manager, exp *la.Exporter, aopt assembly.AssembleOptions, u, uPrev []float64, phiOwned []float64, pm *param.Manager) (map[string]float64, error) {
	grad := make(map[string]float64)
	n := exp.Ghosted.Size()
	for _, name := range pm.ActiveNames() {
		p := pm.Get(name)
		h := 1e-6 * absOrFloor(p.Value)

		orig := p.Value
		p.Value = orig + h
		rPlus := make([]float64, n)
		if err := mgr.Residual(aopt, u, uPrev, rPlus, nil); err != nil {
			p.Value = orig
			return nil, err
		}
		p.Value = orig - h
		rMinus := make([]float64, n)
		if err := mgr.Residual(aopt, u, uPrev, rMinus, nil); err != nil {
			p.Value = orig
			return nil, err
		}
		p.Value = orig

		dRdTheta := make([]float64, n)
		for i := range dRdTheta {
			dRdTheta[i] = (rPlus[i] - rMinus[i]) / (2 * h)
		}
		owned := exportOwned(exp, dRdTheta)

		var dot float64
		for i, v := range owned {
			dot += phiOwned[i] * v
		}
		grad[name] -= dot
	}
	return grad, nil
}

func absOrFloor(v float64) float64 {
	if v < 0 {
		v = -v
	}
	if v < 1e-3 {
		return 1e-3
	}
	return v
}

// DiscretizedSensitivityStep computes one time step's contribution to
// the rectangular Jacobian dR/dp (owned rows x len(p.Values) columns)
// for a single discretized parameter p, by perturbing each field dof in
// turn and reassembling, then folds it against phi to return the
// gradient -( dR/dp )^T * phi, per spec.md §4.6's discretized pathway.
// The per-dof perturbation loop costs two residual assemblies per field
// dof; this is the same finite-difference tradeoff as
// ScalarSensitivityStep and is only tractable for moderate field sizes,
// which is what the dot-product-test scenario in spec.md §8 exercises.
func DiscretizedSensitivityStep(mgr *assembly.Manager, exp *la.Exporter, aopt assembly.AssembleOptions, u, uPrev []float64, phiOwned []float64, p *param.Parameter) ([]float64, error) {
	n := exp.Ghosted.Size()
	grad := make([]float64, len(p.Values))
	for j := range p.Values {
		h := 1e-6 * absOrFloor(p.Values[j])
		orig := p.Values[j]

		p.Values[j] = orig + h
		rPlus := make([]float64, n)
		if err := mgr.Residual(aopt, u, uPrev, rPlus, nil); err != nil {
			p.Values[j] = orig
			return nil, err
		}
		p.Values[j] = orig - h
		rMinus := make([]float64, n)
		if err := mgr.Residual(aopt, u, uPrev, rMinus, nil); err != nil {
			p.Values[j] = orig
			return nil, err
		}
		p.Values[j] = orig

		col := make([]float64, n)
		for i := range col {
			col[i] = (rPlus[i] - rMinus[i]) / (2 * h)
		}
		ownedCol := exportOwned(exp, col)

		var dot float64
		for i, v := range ownedCol {
			dot += phiOwned[i] * v
		}
		grad[j] -= dot
	}
	return grad, nil
}
