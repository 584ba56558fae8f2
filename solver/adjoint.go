package solver

import (
	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/la"
)

// ObjectiveGrad fills the objective's partial derivative with respect to
// the state at one time step into the owned-sized dLdU slice (additive:
// callers should zero it themselves if they reuse the buffer).
type ObjectiveGrad func(step int, time float64, uGhosted []float64, dLdU []float64)

// SolveAdjoint walks forward's trajectory in reverse and, at each step,
// solves the linear adjoint equation J(u*)^T phi = dL/du + alpha_next *
// phi_next (the backward-Euler discrete-adjoint recurrence: the
// alpha_next term is the coupling introduced by u_dot's dependence on
// the current state through the next step's BDF "star"), using the
// physics Jacobian assembled at the converged forward state with
// IsAdjoint=true and FormParam=1 so the Nitsche boundary form takes its
// symmetric shape. Per spec.md §4.4, this is solved by the same Newton
// driver's linear algebra path in at most two iterations — since the
// equation is linear in phi, one iteration solves it exactly and the
// second only confirms convergence, so SolveAdjoint performs that single
// solve directly rather than re-deriving it through a trivial Newton
// residual.
//
// The returned Trajectory is built terminal-time-first (reverse time
// order), matching spec.md §3's "the adjoint track stores values in
// reverse time order."
func SolveAdjoint(mgr *assembly.Manager, exp *la.Exporter, forward *Trajectory, opt TimeOptions, grad ObjectiveGrad) (*Trajectory, error) {
	adj := NewTrajectory()
	nSteps := forward.Len()
	if nSteps == 0 {
		return adj, nil
	}

	var phiPrevOwned []float64
	var alphaNext float64

	for k := nSteps - 1; k >= 0; k-- {
		cur := forward.At(k)
		var uPrev []float64
		if k > 0 {
			uPrev = forward.At(k - 1).U
		} else {
			uPrev = cur.U
		}
		var alpha float64
		if !opt.Steady && k > 0 {
			alpha, _ = bdfStar(opt.Order, opt.Dt, uPrev, prevPrev(forward, k))
		}

		n := exp.Ghosted.Size()
		Rscratch := make([]float64, n)
		J := la.NewMatrix(exp, 64, 64)
		aopt := assembly.AssembleOptions{Time: cur.Time, Alpha: alpha, IsAdjoint: true, FormParam: 1.0}
		if err := mgr.Residual(aopt, cur.U, uPrev, Rscratch, J); err != nil {
			return adj, err
		}
		J.Export()

		rhs := make([]float64, exp.Owned.Size())
		if grad != nil {
			grad(k, cur.Time, cur.U, rhs)
		}
		if phiPrevOwned != nil {
			for i := range rhs {
				rhs[i] += alphaNext * phiPrevOwned[i]
			}
		}

		phiOwned := make([]float64, exp.Owned.Size())
		if err := J.SolveTranspose(phiOwned, rhs); err != nil {
			return adj, err
		}

		phiGhosted := make([]float64, n)
		exp.ImportVector(phiGhosted, phiOwned)
		adj.Append(cur.Time, phiGhosted)

		phiPrevOwned = phiOwned
		alphaNext = alpha
	}
	return adj, nil
}

func prevPrev(traj *Trajectory, k int) []float64 {
	if k < 2 {
		return nil
	}
	return traj.At(k - 2).U
}
