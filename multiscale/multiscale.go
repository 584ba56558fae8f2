// Package multiscale implements the mortar macro/subgrid coupling of
// spec.md §4.7: each macro-side interface is backed by a SubgridModel, a
// second, finer FE discretization over the macro element's extent that
// the macro assembler treats as a Dirichlet-to-Neumann map — hand it the
// macro trace λ, get back the homogenized outward flux and its
// sensitivity to λ. Grounded on the same dof/assembly/cell/solver
// machinery the macro problem itself uses, since a subgrid is, from its
// own point of view, an ordinary FE problem with one Dirichlet side.
package multiscale

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/mpi"

	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/cell"
	"github.com/sandialabs/milo/dof"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/ele/thermal"
	"github.com/sandialabs/milo/errs"
	"github.com/sandialabs/milo/function"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/shp"
	"github.com/sandialabs/milo/solver"
)

// SubgridModel is the fine-scale problem backing one macro-element
// interface: a 1D thermal bar over [0, length] (NewSubgridModel's length
// argument; the Length field holds the element count), strongly fixed to 0 at
// its far end and driven at its macro-facing end by the mortar trace λ.
type SubgridModel struct {
	ID     int
	Length int // element count, also doubles as spec.md's cost_estimate element factor

	DOF *dof.Manager
	Mgr *assembly.Manager
	Exp *la.Exporter

	block int
	BCGid int // global dof id of the macro-facing node

	u []float64 // ghosted fine solution, persisted (warm start) across Evaluate calls

	// HaveSymFactor enables spec.md §4.7 step 3's factorization reuse:
	// once true, the first Evaluate call factors the subgrid Jacobian
	// and every later call reuses that numeric factorization for its
	// du_sub/dλ solve rather than re-factoring. Only valid while the
	// subgrid's conductivity keeps the Jacobian λ-independent (true for
	// the linear case; a strongly nonlinear conductivity should leave
	// this false).
	HaveSymFactor bool
	factor        la.DirectFactorization

	lastSteps int // BDF substeps performed by the most recent Evaluate, for CostEstimate
}

// NewSubgridModel builds a fine 1D thermal bar of nElems elements over
// [0, length], grounded on the same thermal module and batch wiring
// solver_test.go's buildBar uses for the macro problem.
func NewSubgridModel(id, nElems int, length float64, cond thermal.Conductivity) (*SubgridModel, error) {
	if nElems < 1 {
		return nil, errs.ConfigError("multiscale: subgrid %d needs at least one element, got %d", id, nElems)
	}
	d := dof.NewManager()
	block := d.AddBlock(dof.Block{Name: "subgrid", Ndim: 1, NElems: nElems,
		Variables: []dof.Variable{{Name: "u", Block: 0, Order: 1, Basis: "HGRAD"}},
		Physics:   []string{"thermal"}})
	offsets := [][]int{{0, 1}}
	if err := d.SetOffsets(block, offsets); err != nil {
		return nil, err
	}
	nNodes := nElems + 1
	for e := 0; e < nElems; e++ {
		d.BindElement(block, e, []int{e, e + 1})
	}
	d.SetStrongDirichlet(0, 0.0)

	ids := make([]int, nNodes)
	for i := range ids {
		ids[i] = i
	}
	ghosted := la.NewMap(ids)

	mod, err := ele.New("thermal", "subgrid")
	if err != nil {
		return nil, err
	}
	mod.(*thermal.Module).Cond = cond

	basis := shp.NewBasis(1, 1)
	fm := function.NewManager()
	fm.AddSpaceTime("specific heat", function.LocIP, block, &fun.Cte{C: 1})

	batch, err := cell.NewBatch(block, []string{"u"}, offsets, basis, 2, []ele.Module{mod}, fm)
	if err != nil {
		return nil, err
	}

	mgr := assembly.NewManager(d, ghosted)
	dx := length / float64(nElems)
	coords := make([][][]float64, nElems)
	for e := 0; e < nElems; e++ {
		x0 := float64(e) * dx
		coords[e] = [][]float64{{x0, x0 + dx}}
	}
	mgr.BindBlock(block, batch, assembly.BlockMesh{Coords: coords})

	exp, err := la.NewExporter(ghosted, ghosted)
	if err != nil {
		return nil, err
	}

	return &SubgridModel{
		ID: id, Length: nElems,
		DOF: d, Mgr: mgr, Exp: exp,
		block: block, BCGid: nNodes - 1,
		u: make([]float64, nNodes),
	}, nil
}

// CostEstimate is spec.md §4.7's load-balancing unit: element count
// times the BDF substep count of the most recently performed Evaluate.
func (s *SubgridModel) CostEstimate() float64 {
	steps := s.lastSteps
	if steps < 1 {
		steps = 1
	}
	return float64(s.Length) * float64(steps)
}

// Evaluate resolves the subgrid for the given macro trace λ — spec.md
// §4.7 steps 2-4: runs the subgrid's own Newton solve (BDF-substepped
// `steps` times when dt>0), then reads the homogenized outward flux
// F(u_sub,λ) and its sensitivity dF/dλ = ∂F/∂λ + (∂F/∂u_sub)(du_sub/dλ).
// In this Dirichlet-to-Neumann parametrization ∂F/∂λ is zero — λ enters
// the subgrid only through the strong boundary constraint u_sub=λ, so
// the whole λ-dependence of F runs through u_sub — leaving
// dF/dλ = (∂F/∂u_sub)(du_sub/dλ), which is what is returned.
func (s *SubgridModel) Evaluate(t, dt, lambda float64, steps int, newtonOpt solver.NewtonOptions) (flux, dFluxDLambda float64, err error) {
	if steps < 1 {
		steps = 1
	}
	s.lastSteps = steps

	alpha := 0.0
	uPrev := append([]float64(nil), s.u...)
	if dt > 0 {
		subDt := dt / float64(steps)
		alpha = 1.0 / subDt
		for i := 0; i < steps; i++ {
			s.DOF.SetStrongDirichlet(s.BCGid, lambda)
			if _, err := solver.Newton(s.Mgr, s.Exp, assembly.AssembleOptions{Time: t, Alpha: alpha}, s.u, uPrev, newtonOpt); err != nil {
				return 0, 0, errs.SubgridError("multiscale: subgrid %d failed to converge at t=%g: %v", s.ID, t, err)
			}
			uPrev = append(uPrev[:0], s.u...)
		}
	} else {
		s.DOF.SetStrongDirichlet(s.BCGid, lambda)
		if _, err := solver.Newton(s.Mgr, s.Exp, assembly.AssembleOptions{Time: t, Alpha: 0}, s.u, uPrev, newtonOpt); err != nil {
			return 0, 0, errs.SubgridError("multiscale: subgrid %d failed to converge at t=%g: %v", s.ID, t, err)
		}
	}

	aopt := assembly.AssembleOptions{Time: t, Alpha: alpha}
	n := s.Exp.Ghosted.Size()

	// Physics-only Jacobian/residual: the row at BCGid is a free
	// equation here (no row replacement), so Rraw[BCGid] is exactly the
	// subgrid's reaction flux at the converged state.
	Rraw := make([]float64, n)
	Jraw := la.NewMatrix(s.Exp, 64, 64)
	if err := s.Mgr.ResidualRaw(aopt, s.u, uPrev, Rraw, Jraw); err != nil {
		return 0, 0, err
	}
	liRaw, ok := s.Exp.Ghosted.LocalOf(s.BCGid)
	if !ok {
		return 0, 0, errs.ConsistencyError("multiscale: subgrid %d boundary gid %d missing from its own ghosted map", s.ID, s.BCGid)
	}
	flux = Rraw[liRaw]

	// Row-replaced Jacobian: solving J*(du/dλ)=e_BCGid gives exactly
	// du_sub/dλ, since the replaced row is the identity u_BCGid=λ and
	// every other row keeps its true physics coupling into the boundary
	// column.
	Jrep := la.NewMatrix(s.Exp, 64, 64)
	if err := s.Mgr.Residual(aopt, s.u, uPrev, make([]float64, n), Jrep); err != nil {
		return 0, 0, err
	}
	Jrep.Export()

	oi, ok := s.Exp.Owned.LocalOf(s.BCGid)
	if !ok {
		return 0, 0, errs.ConsistencyError("multiscale: subgrid %d boundary gid %d missing from its own owned map", s.ID, s.BCGid)
	}
	rhs := make([]float64, s.Exp.Owned.Size())
	rhs[oi] = 1.0
	duDlambda := make([]float64, s.Exp.Owned.Size())

	switch {
	case s.HaveSymFactor && s.factor.Ready():
		if err := s.factor.Solve(duDlambda, rhs); err != nil {
			return 0, 0, err
		}
	case s.HaveSymFactor:
		if err := s.factor.Factorize(Jrep); err != nil {
			return 0, 0, err
		}
		if err := s.factor.Solve(duDlambda, rhs); err != nil {
			return 0, 0, err
		}
	default:
		if err := Jrep.Solve(duDlambda, rhs); err != nil {
			return 0, 0, err
		}
	}

	csrRaw := Jraw.BuildCSR()
	for k := csrRaw.RowPtr[oi]; k < csrRaw.RowPtr[oi+1]; k++ {
		dFluxDLambda += csrRaw.Val[k] * duDlambda[csrRaw.ColIdx[k]]
	}
	return flux, dFluxDLambda, nil
}

// Coupling binds one macro-side interface to the subgrid model backing
// it, and remembers the trace λ̃ the subgrid was last actually solved
// at, per spec.md §4.7's λ/λ̃ packaging.
type Coupling struct {
	MacroBlock, MacroElem int
	MacroFace             shp.Face
	MacroGid              int // global dof id of the macro-facing trace node
	Subgrid               *SubgridModel
	Tol                   float64 // re-solve the subgrid only once |λ-λ̃| exceeds this

	solved       bool
	lambdaTilde  float64
	flux         float64
	dFluxDLambda float64
}

// Flux and DFluxDLambda expose the coupling's last-resolved homogenized
// flux and its λ-sensitivity, for the sensitivity pathway's chain-rule
// composition.
func (c *Coupling) Flux() float64         { return c.flux }
func (c *Coupling) DFluxDLambda() float64 { return c.dFluxDLambda }

// Manager drives every registered macro/subgrid coupling for one macro
// problem, and reports the subgrid cost-imbalance metric of spec.md
// §4.7's load-balancing note.
type Manager struct {
	Couplings []*Coupling
	Steps     int // BDF substeps per macro step, shared by every subgrid
	NewtonOpt solver.NewtonOptions
}

// NewManager returns a Manager with no couplings registered yet.
func NewManager(steps int, newtonOpt solver.NewtonOptions) *Manager {
	if steps < 1 {
		steps = 1
	}
	return &Manager{Steps: steps, NewtonOpt: newtonOpt}
}

// Register binds a subgrid model to one macro element's interface side,
// keyed by the macro global dof id whose value is the mortar trace λ.
func (m *Manager) Register(macroBlock, macroElem int, macroFace shp.Face, macroGid int, sub *SubgridModel, tol float64) *Coupling {
	c := &Coupling{MacroBlock: macroBlock, MacroElem: macroElem, MacroFace: macroFace, MacroGid: macroGid, Subgrid: sub, Tol: tol}
	m.Couplings = append(m.Couplings, c)
	return c
}

// Apply drives every registered coupling for the macro assembler's
// current Newton iterate: reads each coupling's current trace out of
// the macro solution, lazily re-resolves the subgrid only once the
// trace has moved by more than its tolerance since the last resolve
// (spec.md §4.7's independent-per-element, no-cancellation-token
// coupling), and writes the resulting homogenized flux into the macro
// assembler as a Neumann side so the next Residual call picks
// it up. A failing subgrid is reported as errs.SubgridError, which
// re-wraps to an Assembly-kind error at the macro level per spec.md §7.
func (m *Manager) Apply(macroMgr *assembly.Manager, macroGhosted *la.Map, uMacroGhosted []float64, t, dt float64) error {
	for _, c := range m.Couplings {
		li, ok := macroGhosted.LocalOf(c.MacroGid)
		if !ok {
			return errs.ConsistencyError("multiscale: macro trace gid %d not present in the macro ghosted map", c.MacroGid)
		}
		lambda := uMacroGhosted[li]
		if !c.solved || math.Abs(lambda-c.lambdaTilde) > c.Tol {
			flux, dFluxDLambda, err := c.Subgrid.Evaluate(t, dt, lambda, m.Steps, m.NewtonOpt)
			if err != nil {
				return err
			}
			c.solved = true
			c.lambdaTilde = lambda
			c.flux, c.dFluxDLambda = flux, dFluxDLambda
		}
		macroMgr.SetNeumannSide(c.MacroBlock, c.MacroElem, c.MacroFace, c.flux)
	}
	return nil
}

// ComposeParameterSensitivity implements spec.md §4.7 step 5's chain
// rule one level further: for a parameter that reaches the macro
// residual only through one coupling's trace λ, the gradient
// contribution is dL/dFlux * dFlux/dλ * dλ/dParam.
func ComposeParameterSensitivity(dLdFlux, dFluxDLambda, dLambdaDParam float64) float64 {
	return dLdFlux * dFluxDLambda * dLambdaDParam
}

// LoadReport summarizes the subgrid cost-imbalance metric of spec.md
// §4.7: each rank's total subgrid cost (element count x BDF substeps,
// summed over its own couplings), gathered across ranks.
type LoadReport struct {
	Min, Max, Mean float64
	Imbalance      float64 // Max/Min; 1 when ranks are perfectly balanced or MPI is off
}

// LoadBalance gathers every rank's subgrid cost estimate and reports the
// min/max/mean and the max/min imbalance factor. Gathering is done with
// AllReduceSum over a per-rank one-hot slot rather than a dedicated
// min/max reduction, since AllReduceSum is the only cross-rank reduction
// grounded in the corpus (PaddySchmidt-gofem's s_implicit.go/s_linimp.go
// use it for boundary-condition weight assembly); once every rank holds
// the same full per-rank vector, min/max/mean are plain local reads.
func (m *Manager) LoadBalance() LoadReport {
	local := 0.0
	for _, c := range m.Couplings {
		local += c.Subgrid.CostEstimate()
	}
	if !mpi.IsOn() {
		return LoadReport{Min: local, Max: local, Mean: local, Imbalance: 1}
	}
	n := mpi.Size()
	mine := make([]float64, n)
	mine[mpi.Rank()] = local
	all := make([]float64, n)
	mpi.AllReduceSum(all, mine)

	min, max := all[0], all[0]
	for _, v := range all {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := stat.Mean(all, nil)
	imbalance := 1.0
	if min > 0 {
		imbalance = max / min
	}
	return LoadReport{Min: min, Max: max, Mean: mean, Imbalance: imbalance}
}
