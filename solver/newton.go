// Package solver implements the nonlinear/time-stepping/sensitivity
// driver: a damped Newton loop over the assembler, BDF-1/BDF-2 time
// stepping, and the forward/adjoint/scalar-sensitivity/discretized-
// sensitivity pathways of spec.md §4.4-4.6, all sharing the same Newton
// linear algebra per spec.md's "share the Newton linear algebra."
package solver

import (
	"math"

	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/errs"
	"github.com/sandialabs/milo/la"
)

// NewtonOptions configures the damped Newton loop of spec.md §4.4.
type NewtonOptions struct {
	Tol        float64
	MaxIter    int
	LineSearch bool
	NNZGuess   int // preallocation hint passed to la.NewMatrix
}

func DefaultNewtonOptions() NewtonOptions {
	return NewtonOptions{Tol: 1e-8, MaxIter: 30, NNZGuess: 64}
}

func infNorm(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// applyOwnedDelta adds step*deltaOwned into the ghosted vector u at every
// globally owned dof, the Newton update's scatter-back step.
func applyOwnedDelta(exp *la.Exporter, u []float64, deltaOwned []float64, step float64) {
	for oi, g := range exp.Owned.GlobalIDs {
		if li, ok := exp.Ghosted.LocalOf(g); ok {
			u[li] += step * deltaOwned[oi]
		}
	}
}

func exportOwned(exp *la.Exporter, ghosted []float64) []float64 {
	owned := make([]float64, exp.Owned.Size())
	exp.ExportAddVector(owned, ghosted)
	return owned
}

func negate(v []float64) []float64 {
	n := make([]float64, len(v))
	for i, x := range v {
		n[i] = -x
	}
	return n
}

// Newton runs the damped Newton loop of spec.md §4.4 against mgr:
// ‖r‖∞/‖r0‖∞ ≤ tol, or iter ≥ maxIter, with the initial scaled residual
// treated as converged when ‖r0‖∞ < 1e-14. In adjoint mode the iteration
// cap is clamped to 2, since the adjoint residual is linear in the
// unknown. Line search is off unless opt.LineSearch, in which case a
// three-point parabolic step size is used.
func Newton(mgr *assembly.Manager, exp *la.Exporter, aopt assembly.AssembleOptions, u, uPrev []float64, opt NewtonOptions) (iters int, err error) {
	maxIter := opt.MaxIter
	if aopt.IsAdjoint && maxIter > 2 {
		maxIter = 2
	}

	R := make([]float64, exp.Ghosted.Size())
	J := la.NewMatrix(exp, opt.NNZGuess, opt.NNZGuess)

	var r0 float64
	for iter := 0; iter < maxIter; iter++ {
		if err := mgr.Residual(aopt, u, uPrev, R, J); err != nil {
			return iter, err
		}
		rinf := infNorm(exportOwned(exp, R))

		if iter == 0 {
			r0 = rinf
			if r0 < 1e-14 {
				return 0, nil
			}
		} else if r0 > 0 && rinf/r0 <= opt.Tol {
			return iter, nil
		}

		J.Export()
		deltaOwned := make([]float64, exp.Owned.Size())
		rhs := negate(exportOwned(exp, R))
		if err := J.Solve(deltaOwned, rhs); err != nil {
			return iter, err
		}

		step := 1.0
		if opt.LineSearch {
			step = parabolicLineSearch(mgr, exp, aopt, u, uPrev, deltaOwned, rinf)
		}
		applyOwnedDelta(exp, u, deltaOwned, step)
	}

	return maxIter, errs.NonConvergenceError("solver: Newton did not converge in %d iterations (tol=%g)", maxIter, opt.Tol)
}

// parabolicLineSearch evaluates the residual norm at step sizes 0, 0.5
// and 1 along the Newton direction and returns the minimizer of the
// interpolating parabola, clamped to [0.1, 1] to avoid a degenerate
// near-zero step.
func parabolicLineSearch(mgr *assembly.Manager, exp *la.Exporter, aopt assembly.AssembleOptions, u, uPrev, deltaOwned []float64, phi0 float64) float64 {
	trial := func(step float64) float64 {
		uTrial := append([]float64(nil), u...)
		applyOwnedDelta(exp, uTrial, deltaOwned, step)
		R := make([]float64, exp.Ghosted.Size())
		if err := mgr.Residual(aopt, uTrial, uPrev, R, nil); err != nil {
			return math.Inf(1)
		}
		return infNorm(exportOwned(exp, R))
	}

	phiHalf := trial(0.5)
	phiOne := trial(1.0)

	// Fit phi(s) = a*s^2 + b*s + phi0 through (0,phi0),(0.5,phiHalf),(1,phiOne).
	a := 2*phi0 - 4*phiHalf + 2*phiOne
	b := -3*phi0 + 4*phiHalf - phiOne
	if a <= 0 {
		if phiOne < phiHalf {
			return 1.0
		}
		return 0.5
	}
	s := -b / (2 * a)
	if s < 0.1 {
		s = 0.1
	}
	if s > 1.0 {
		s = 1.0
	}
	return s
}
