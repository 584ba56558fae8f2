package la

import (
	gosl "github.com/cpmech/gosl/la"

	"github.com/sandialabs/milo/errs"
)

// SolveOptions configures the preconditioner cascade (spec.md §4.4): each
// rung is tried in turn, falling back to the next on non-convergence, and
// finally to a direct sparse factorization before giving up.
type SolveOptions struct {
	GMRES       GMRESOptions
	DropTol     float64 // ILU0 drop tolerance
	MaxLevels   int     // AMG max levels
	CoarseSize  int     // AMG coarsening stop size
	DirectSolver string // name passed to gosl/la.GetSolver, e.g. "umfpack"
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		GMRES:        DefaultGMRESOptions(),
		DropTol:      1e-3,
		MaxLevels:    4,
		CoarseSize:   200,
		DirectSolver: "umfpack",
	}
}

// Solve runs the preconditioner cascade against the matrix's current
// owned assembly: aggregation AMG first (cheapest per-iterate, best for
// elliptic-dominated systems), then ILU(0) if AMG stalls, then
// Jacobi-preconditioned GMRES, and finally a direct factorization via
// gosl/la.LinSol as the last resort. Returns LinearSolveError only if
// every rung fails to converge.
func (m *Matrix) Solve(x, b []float64) error {
	csr := m.BuildCSR()
	if solveCascade(csr, m.Options, x, b, func() error { return directSolve(m, x, b) }) {
		return nil
	}
	return errs.LinearSolveError("la: GMRES stalled under AMG, ILU(0), and Jacobi preconditioning, and the direct factorization also failed")
}

// SolveTranspose solves A^T x = b against the matrix's current owned
// assembly — the adjoint linear solve's shape, J^T φ = ∂L/∂u, which the
// assembler never builds directly since it only ever fills the forward
// Jacobian. The direct fallback re-triplets the explicitly transposed
// CSR rather than relying on an unconfirmed transpose flag on
// gosl/la.LinSol, keeping the fallback's correctness independent of
// that API's exact semantics.
func (m *Matrix) SolveTranspose(x, b []float64) error {
	csrT := m.BuildCSR().Transpose()
	if solveCascade(csrT, m.Options, x, b, func() error { return directSolveCSR(csrT, m.Options.DirectSolver, x, b) }) {
		return nil
	}
	return errs.LinearSolveError("la: transposed GMRES stalled under AMG, ILU(0), and Jacobi preconditioning, and the direct factorization also failed")
}

// solveCascade runs the shared AMG -> ILU0 -> Jacobi -> direct
// preconditioner cascade against an already-built CSR matrix.
func solveCascade(csr *CSR, opt SolveOptions, x, b []float64, direct func() error) bool {
	amg := BuildAMGPC(csr, opt.MaxLevels, opt.CoarseSize)
	if _, ok := GMRES(csr, amg, b, x, opt.GMRES); ok {
		return true
	}

	resetGuess(x)
	ilu := NewILU0PC(csr, opt.DropTol)
	if _, ok := GMRES(csr, ilu, b, x, opt.GMRES); ok {
		return true
	}

	resetGuess(x)
	jac := NewJacobiPC(csr)
	if _, ok := GMRES(csr, jac, b, x, opt.GMRES); ok {
		return true
	}

	resetGuess(x)
	return direct() == nil
}

// DirectFactorization wraps one gosl/la.LinSol factorization so several
// SolveR passes can reuse the same numeric factorization without
// re-factoring — the subgrid solver's "have_sym_factor" reuse of
// spec.md §4.7 step 3, across repeated mortar-trace evaluations whose
// Jacobian does not change. The underlying solver's concrete type is
// never named here: Factorize captures it in a closure so this type
// stays independent of exactly which gosl/la.LinSol implementation
// GetSolver returns.
type DirectFactorization struct {
	solve func(x, b []float64) error
	clean func()
}

// Factorize discards any previous factorization and factors m's current
// owned triplet.
func (d *DirectFactorization) Factorize(m *Matrix) error {
	d.Clean()
	solver := gosl.GetSolver(m.Options.DirectSolver)
	if err := solver.InitR(m.owned, false, false, false); err != nil {
		return errs.LinearSolveError("la: direct factorization init failed: %v", err)
	}
	if err := solver.Fact(); err != nil {
		return errs.LinearSolveError("la: direct factorization failed: %v", err)
	}
	d.solve = func(x, b []float64) error {
		if err := solver.SolveR(x, b, false); err != nil {
			return errs.LinearSolveError("la: direct solve failed: %v", err)
		}
		return nil
	}
	d.clean = solver.Clean
	return nil
}

// Solve runs one SolveR pass against the current factorization.
func (d *DirectFactorization) Solve(x, b []float64) error {
	if d.solve == nil {
		return errs.LinearSolveError("la: DirectFactorization.Solve called before Factorize")
	}
	return d.solve(x, b)
}

// Ready reports whether Factorize has succeeded and not since been
// Clean-ed.
func (d *DirectFactorization) Ready() bool { return d.solve != nil }

// Clean releases the underlying factorization, if any; safe to call on
// an already-clean or never-factorized value.
func (d *DirectFactorization) Clean() {
	if d.clean != nil {
		d.clean()
		d.solve, d.clean = nil, nil
	}
}

func resetGuess(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// directSolve wraps gosl/la.LinSol over the owned triplet, the fallback
// stage of the cascade. It factors on every call; the multiscale
// subgrid's "have_sym_factor" reuse goes through DirectFactorization
// instead.
func directSolve(m *Matrix, x, b []float64) error {
	solver := gosl.GetSolver(m.Options.DirectSolver)
	defer solver.Clean()
	if err := solver.InitR(m.owned, false, false, false); err != nil {
		return errs.LinearSolveError("la: direct factorization init failed: %v", err)
	}
	if err := solver.Fact(); err != nil {
		return errs.LinearSolveError("la: direct factorization failed: %v", err)
	}
	if err := solver.SolveR(x, b, false); err != nil {
		return errs.LinearSolveError("la: direct solve failed: %v", err)
	}
	return nil
}

// directSolveCSR is directSolve's counterpart for a plain CSR matrix that
// was not built through a Matrix's owned triplet (the transposed-system
// fallback), re-triplet-ing the CSR's entries with gosl/la.Triplet before
// handing off to the confirmed InitR/Fact/SolveR/Clean sequence.
func directSolveCSR(c *CSR, solverName string, x, b []float64) error {
	t := new(gosl.Triplet)
	t.Init(c.N, c.N, len(c.Val))
	for i := 0; i < c.N; i++ {
		for k := c.RowPtr[i]; k < c.RowPtr[i+1]; k++ {
			t.Put(i, c.ColIdx[k], c.Val[k])
		}
	}
	solver := gosl.GetSolver(solverName)
	defer solver.Clean()
	if err := solver.InitR(t, false, false, false); err != nil {
		return errs.LinearSolveError("la: direct factorization init failed: %v", err)
	}
	if err := solver.Fact(); err != nil {
		return errs.LinearSolveError("la: direct factorization failed: %v", err)
	}
	if err := solver.SolveR(x, b, false); err != nil {
		return errs.LinearSolveError("la: direct solve failed: %v", err)
	}
	return nil
}

