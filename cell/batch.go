// Package cell implements the element batch: per-cell gather of the
// global solution into AD-seeded local values, physics-module
// invocation, AD-buffer extraction into residual/Jacobian, and scatter
// back into the ghosted global residual/matrix — the workset-driven
// assembly loop of spec.md §4.3, grounded on the teacher's
// Diffusion.AddToRhs/AddToKb pair generalized from a single hand-coded
// K matrix to AD extraction.
package cell

import (
	"math"

	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/errs"
	"github.com/sandialabs/milo/function"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/shp"
)

// BoundarySide is a resolved (post side-info lookup) boundary
// contribution for one face of one element: the assembly manager
// consults dof.SideInfo to build these, keeping cell free of a
// dependency on the DOF manager.
type BoundarySide struct {
	Face      shp.Face
	Kind      ele.SideKind
	Gdata     float64 // prescribed Dirichlet/Neumann data
	Lambda    float64 // mortar trace, multiscale sides only
	FormParam float64
}

// Batch is the per-block scratch the assembler drives one cell at a
// time through: basis evaluator, quadrature rules, the block's variable
// list and per-variable/per-vertex local dof offsets, and the physics
// modules bound to this block.
type Batch struct {
	Block    int
	VarNames []string
	Offsets  [][]int // [varIdx][vertex] -> local dof slot
	Basis    *shp.Basis
	VolIps   []shp.Ipoint
	SideOrder int
	Physics  []ele.Module
	FuncMgr  *function.Manager
}

// NewBatch builds a Batch for one block, binding the physics modules'
// variable sets via SetVars.
func NewBatch(block int, varNames []string, offsets [][]int, basis *shp.Basis, quadOrder int, physics []ele.Module, fm *function.Manager) (*Batch, error) {
	for _, m := range physics {
		if err := m.SetVars(varNames); err != nil {
			return nil, err
		}
	}
	return &Batch{
		Block:     block,
		VarNames:  varNames,
		Offsets:   offsets,
		Basis:     basis,
		VolIps:    shp.VolumeRule(basis.Ndim, quadOrder),
		SideOrder: quadOrder,
		Physics:   physics,
		FuncMgr:   fm,
	}, nil
}

func (b *Batch) varIndex(name string) int {
	for i, n := range b.VarNames {
		if n == name {
			return i
		}
	}
	return -1
}

// nodal holds, for one element, every variable's per-vertex AD-seeded
// current value and plain previous-step value.
type nodal struct {
	cur  map[string][]ad.Value
	prev map[string][]float64
}

func (b *Batch) gather(gids []int, ghosted *la.Map, uGhosted, uPrevGhosted []float64) (nodal, []int, error) {
	nDof := len(gids)
	locIdx := make([]int, nDof)
	for j, g := range gids {
		li, ok := ghosted.LocalOf(g)
		if !ok {
			return nodal{}, nil, errs.AssemblyError("cell: global dof %d is not present in the ghosted map", g)
		}
		locIdx[j] = li
	}
	n := nodal{cur: make(map[string][]ad.Value), prev: make(map[string][]float64)}
	for vi, name := range b.VarNames {
		nv := len(b.Offsets[vi])
		cur := make([]ad.Value, nv)
		prev := make([]float64, nv)
		for m := 0; m < nv; m++ {
			slot := b.Offsets[vi][m]
			v, err := ad.Seed(nDof, slot, uGhosted[locIdx[slot]])
			if err != nil {
				return nodal{}, nil, err
			}
			cur[m] = v
			prev[m] = uPrevGhosted[locIdx[slot]]
		}
		n.cur[name] = cur
		n.prev[name] = prev
	}
	return n, locIdx, nil
}

func interpValue(S []float64, nodalVals []ad.Value) ad.Value {
	var r ad.Value
	for m, s := range S {
		r = ad.AddScaled(r, s, nodalVals[m])
	}
	return r
}

func interpFloat(S []float64, nodalVals []float64) float64 {
	var r float64
	for m, s := range S {
		r += s * nodalVals[m]
	}
	return r
}

func interpGrad(elem *shp.Element, nodalVals []ad.Value) []ad.Value {
	ndim := elem.Ndim
	g := make([]ad.Value, ndim)
	for m := range nodalVals {
		ga := elem.GradAt(m)
		for d := 0; d < ndim; d++ {
			g[d] = ad.AddScaled(g[d], ga[d], nodalVals[m])
		}
	}
	return g
}

// buildPoint interpolates every block variable's value/gradient at the
// element's current evaluation point and forms the time-derivative via
// the BDF "star" construction: u_dot = alpha*(u - u_prev_interp), so
// d(u_dot)/du_j = alpha * d(u)/du_j automatically through the shared AD
// seeding.
func (b *Batch) buildPoint(elem *shp.Element, n nodal, alpha float64) (map[string]ad.Value, map[string][]ad.Value, map[string]ad.Value) {
	vars := make(map[string]ad.Value, len(b.VarNames))
	grads := make(map[string][]ad.Value, len(b.VarNames))
	udot := make(map[string]ad.Value, len(b.VarNames))
	for _, name := range b.VarNames {
		u := interpValue(elem.S, n.cur[name])
		vars[name] = u
		grads[name] = interpGrad(elem, n.cur[name])
		uPrev := interpFloat(elem.S, n.prev[name])
		ud := ad.Scale(alpha, u)
		ud.V -= alpha * uPrev
		udot[name] = ud
	}
	return vars, grads, udot
}

// local is the per-element residual/Jacobian-bearing accumulator,
// indexed by local dof slot; each entry's ad.Value carries both the
// residual row and, in its Dx slots, the exact Jacobian row.
type local struct {
	n int
	r []ad.Value
}

func newLocal(n int) *local {
	l := &local{n: n, r: make([]ad.Value, n)}
	for i := range l.r {
		l.r[i] = ad.Value{N: n}
	}
	return l
}

func (l *local) add(row int, v ad.Value) {
	l.r[row] = ad.Add(l.r[row], v)
}

// AssembleElement runs the full per-cell contribution: gather, AD
// seeding, volume and boundary physics invocation, and scatter into the
// ghosted residual vector and matrix.
func (b *Batch) AssembleElement(
	elem int,
	gids []int,
	x [][]float64,
	t, alpha float64,
	uGhosted, uPrevGhosted []float64,
	ghosted *la.Map,
	sides []BoundarySide,
	isAdjoint bool,
	formParam float64,
	R []float64,
	J *la.Matrix,
) error {
	nDof := len(gids)
	nd, locIdx, err := b.gather(gids, ghosted, uGhosted, uPrevGhosted)
	if err != nil {
		return err
	}

	se := shp.NewElement(b.Basis, x)
	loc := newLocal(nDof)

	for _, ip := range b.VolIps {
		r := []float64{ip[0], ip[1], ip[2]}[:b.Basis.Ndim]
		if err := se.CalcAtIp(r); err != nil {
			return err
		}
		coef := se.J * ip[3]

		vars, grads, udot := b.buildPoint(se, nd, alpha)
		primary := b.VarNames[0]
		pt := ele.Point{
			Time: t, Alpha: alpha,
			X:     se.RealCoords(r),
			Vars:  vars, GradU: grads, Udot: udot,
			IsAdjoint: isAdjoint, FormParam: formParam,
		}
		coeffs := coeffSet{mgr: b.FuncMgr, loc: function.LocIP, block: b.Block, t: t, x: pt.X, width: nDof, u: vars[primary], gradU: grads[primary]}

		for _, mod := range b.Physics {
			forms, err := mod.VolumeResidual(pt, coeffs)
			if err != nil {
				return err
			}
			for name, wf := range forms {
				vi := b.varIndex(name)
				if vi < 0 {
					continue
				}
				for m := 0; m < len(b.Offsets[vi]); m++ {
					row := b.Offsets[vi][m]
					contrib := ad.Scale(se.S[m], wf.Scalar)
					ga := se.GradAt(m)
					for d, fx := range wf.Flux {
						if d < len(ga) {
							contrib = ad.AddScaled(contrib, ga[d], fx)
						}
					}
					loc.add(row, ad.Scale(coef, contrib))
				}
			}
		}
	}

	for _, side := range sides {
		if err := b.assembleSide(se, x, nd, t, alpha, isAdjoint, formParam, side, loc); err != nil {
			return err
		}
	}

	for row := 0; row < nDof; row++ {
		R[locIdx[row]] += loc.r[row].V
		if J == nil {
			continue
		}
		for col := 0; col < nDof; col++ {
			if loc.r[row].Dx[col] != 0 {
				J.PutGhosted(locIdx[row], locIdx[col], loc.r[row].Dx[col])
			}
		}
	}
	return nil
}

func (b *Batch) assembleSide(se *shp.Element, x [][]float64, nd nodal, t, alpha float64, isAdjoint bool, formParam float64, side BoundarySide, loc *local) error {
	ndim := b.Basis.Ndim
	rule := shp.SideRule(ndim, b.SideOrder)
	nDof := loc.n

	for _, sip := range rule {
		faceR := []float64{sip[0], sip[1]}[:ndim-1]
		r := shp.FaceCoords(side.Face, ndim, faceR)
		if err := se.CalcAtIp(r); err != nil {
			return err
		}
		normal, ds := se.FaceNormal(side.Face.Dir, side.Face.Value)
		coef := ds * sip[3]

		vars, grads, udot := b.buildPoint(se, nd, alpha)
		h := elementSize(se, side.Face.Dir)
		primary := b.VarNames[0]
		pt := ele.Point{
			Time: t, Alpha: alpha,
			X:     se.RealCoords(r),
			Vars:  vars, GradU: grads, Udot: udot,
			Normal: normal, H: h,
			Gdata: ad.Const(side.Gdata), Lambda: ad.Const(side.Lambda),
			IsAdjoint: isAdjoint, FormParam: formParam,
		}
		coeffs := coeffSet{mgr: b.FuncMgr, loc: function.LocSideIP, block: b.Block, t: t, x: pt.X, width: nDof, u: vars[primary], gradU: grads[primary]}

		for _, mod := range b.Physics {
			if side.Kind == ele.SideMultiscale {
				contribByVar, err := mod.ComputeFlux(pt, coeffs)
				if err != nil {
					return err
				}
				for name, val := range contribByVar {
					vi := b.varIndex(name)
					if vi < 0 {
						continue
					}
					for _, vIdx := range side.Face.Verts {
						if vIdx >= len(b.Offsets[vi]) {
							continue
						}
						row := b.Offsets[vi][vIdx]
						sVal := basisValueAt(se, vIdx)
						loc.add(row, ad.Scale(coef*sVal, val))
					}
				}
				continue
			}

			contribByVar, err := mod.BoundaryResidual(pt, side.Kind, coeffs)
			if err != nil {
				return err
			}
			for name, form := range contribByVar {
				vi := b.varIndex(name)
				if vi < 0 {
					continue
				}
				for _, vIdx := range side.Face.Verts {
					if vIdx >= len(b.Offsets[vi]) {
						continue
					}
					row := b.Offsets[vi][vIdx]
					sVal := basisValueAt(se, vIdx)
					dndVal := basisNormalDerivAt(se, vIdx, normal)
					contrib := ad.AddScaled(ad.Scale(coef*sVal, form.Scalar), coef*dndVal, form.Normal)
					loc.add(row, contrib)
				}
			}
		}
	}
	return nil
}

func basisValueAt(se *shp.Element, vIdx int) float64 {
	if vIdx < len(se.S) {
		return se.S[vIdx]
	}
	return 0
}

// basisNormalDerivAt returns the test function's outward-normal
// derivative ∂ϕ_i/∂n = ∇ϕ_i · normal at the last-evaluated point, the
// weight the Nitsche form's symmetrizing term is dotted against
// (spec.md §4.1).
func basisNormalDerivAt(se *shp.Element, vIdx int, normal []float64) float64 {
	if se.B == nil || vIdx >= se.B.Nverts {
		return 0
	}
	g := se.GradAt(vIdx)
	var d float64
	for i, gi := range g {
		if i < len(normal) {
			d += gi * normal[i]
		}
	}
	return d
}

// elementSize returns a characteristic element length for the Nitsche
// penalty term: the n-th root of the reference-to-physical Jacobian
// determinant, the usual "h ~ vol^(1/ndim)" estimate.
func elementSize(se *shp.Element, dir int) float64 {
	_ = dir
	if se.J <= 0 {
		return 1e-6
	}
	return math.Pow(se.J, 1.0/float64(se.Ndim))
}
